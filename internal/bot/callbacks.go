package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/fizzy-bot/internal/logging"
	"github.com/xaenox/fizzy-bot/internal/models"
	"github.com/xaenox/fizzy-bot/internal/storage"
	"go.uber.org/zap"
)

// HandleCallback handles an inline keyboard press. The callback is always
// answered first so the client stops its spinner.
func (b *Bot) HandleCallback(ctx context.Context, cb *Callback) {
	req := b.newRequest(cb.UpdateID, cb.conversation(), "keyboard")
	req.callback = cb
	defer b.recoverPanic(ctx, req)

	if err := b.messenger.AnswerCallback(ctx, cb.ID); err != nil {
		req.logger.Warn("Failed to answer callback query", zap.Error(err), zap.String("data", cb.Data))
	}

	var err error
	if alias, ok := selectedAlias(cb.Data); ok {
		req.name = "account_selection"
		err = b.selectAccount(ctx, req, alias)
	} else {
		err = b.handleMenu(ctx, req)
	}
	if err != nil {
		b.handleError(ctx, req, err)
	}
}

func (b *Bot) handleMenu(ctx context.Context, req *request) error {
	data := req.callback.Data

	switch data {
	case callbackSetToken:
		req.log(logging.StatusSelected, data)
		reply := req.reply(configTokenHelp)
		reply.ParseMode = ParseMarkdownV2
		return b.sendMessage(ctx, reply)
	case callbackStart:
		req.log(logging.StatusSelected, data)
		return b.sendWelcome(ctx, req)
	case callbackStatus:
		req.log(logging.StatusSelected, data)
		return b.sendStatus(ctx, req)
	case callbackHelp:
		req.log(logging.StatusSelected, data)
		return b.sendHelp(ctx, req)
	case callbackSelectAccount:
		req.name = "/select_account"
		return b.showAccountMenu(ctx, req)
	default:
		req.logger.Debug("Ignoring unknown callback", zap.String("data", data))
		return nil
	}
}

// selectAccount links alias to the chat and, when a card is waiting for
// this choice, creates it. The selection message is edited in place with
// the progress and the result.
func (b *Bot) selectAccount(ctx context.Context, req *request, alias string) error {
	userID, chatID := req.userID(), req.chatKey()

	if err := b.storage.SaveChatLink(ctx, models.ChatTokenLink{UserID: userID, ChatID: chatID, Alias: alias}); err != nil {
		return fmt.Errorf("save chat link: %w", err)
	}

	card, ok := b.pending.Take(userID, chatID)
	if !ok {
		req.log(logging.StatusSuccess, "account linked: "+alias)
		b.editSelection(ctx, req, accountSelected(alias))
		return nil
	}

	token, err := b.storage.GetUserToken(ctx, userID, alias)
	if errors.Is(err, storage.ErrNotFound) {
		req.log(logging.StatusError, "token not found: "+alias)
		b.editSelection(ctx, req, tokenNotFound(alias))
		return nil
	}
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	board, err := b.resolver.Board(ctx, card.TopicID)
	if errors.Is(err, ErrNoBoard) {
		req.log(logging.StatusWarning, "board not configured")
		b.editSelection(ctx, req, noBoardConfigured)
		return nil
	}
	if err != nil {
		return err
	}

	b.editSelection(ctx, req, accountSelectedWithPending(alias))
	return b.submitCard(ctx, req, card, token, board, req.callback.MessageID, "selected account: "+alias)
}

// editSelection rewrites the prompt message. Failures are logged only: the
// command record has been written by then.
func (b *Bot) editSelection(ctx context.Context, req *request, text string) {
	if err := b.messenger.Edit(ctx, req.chatID, req.callback.MessageID, text); err != nil {
		req.logger.Error("Failed to edit selection message", zap.Error(err), zap.Int("message_id", req.callback.MessageID))
	}
}
