package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/fizzy-bot/internal/fizzy"
	"github.com/xaenox/fizzy-bot/internal/logging"
	"github.com/xaenox/fizzy-bot/internal/models"
	"github.com/xaenox/fizzy-bot/internal/storage"
	"go.uber.org/zap"
)

// Board ids shorter than this are rejected before any lookup.
const minBoardIDLength = 10

func (b *Bot) handleConfigToken(ctx context.Context, req *request) error {
	if !req.isPrivate() {
		return b.refuse(ctx, req, ErrNotPrivate, "not in private chat", req.reply(configTokenNotPrivate))
	}

	cmd := req.cmd
	userID := req.userID()

	_, err := b.storage.GetUserToken(ctx, userID, cmd.Alias)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get token: %w", err)
	}
	isUpdate := err == nil

	token := models.UserToken{UserID: userID, Alias: cmd.Alias, AccountSlug: cmd.AccountSlug, Token: cmd.Token}
	if err := b.storage.SaveUserToken(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	req.logger.Debug("Token stored",
		zap.String("alias", cmd.Alias),
		zap.String("account_slug", cmd.AccountSlug),
		logging.Secret("token", cmd.Token))

	reply := req.reply(tokenSaved(cmd.Alias, cmd.AccountSlug))
	details := "saved token: " + cmd.Alias
	if isUpdate {
		reply.Text = tokenUpdated(cmd.Alias, cmd.AccountSlug)
		details = "updated token: " + cmd.Alias
	}
	reply.Keyboard = privateMenu()

	req.log(logging.StatusSuccess, details)
	return b.sendMessage(ctx, reply)
}

func (b *Bot) handleDeleteAccount(ctx context.Context, req *request) error {
	if !req.isPrivate() {
		return b.refuse(ctx, req, ErrNotPrivate, "not in private chat", req.reply(deleteAccountNotPrivate))
	}

	alias := req.cmd.Alias
	err := b.storage.DeleteUserToken(ctx, req.userID(), alias)
	if errors.Is(err, storage.ErrNotFound) {
		return b.refuse(ctx, req, ErrNotFound, "account not found: "+alias, req.reply(deleteAccountNotFound(alias)))
	}
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	req.log(logging.StatusSuccess, "deleted account: "+alias)
	reply := req.reply(deleteAccountSuccess(alias))
	reply.Keyboard = privateMenu()
	return b.sendMessage(ctx, reply)
}

func (b *Bot) handleConfigBoard(ctx context.Context, req *request) error {
	boardID := req.cmd.BoardID
	if len(boardID) < minBoardIDLength {
		return b.refuse(ctx, req, ErrUsage, "invalid board id", req.reply(configBoardInvalidID))
	}
	if req.isPrivate() {
		return b.configBoardPrivate(ctx, req)
	}

	res, err := b.resolver.Account(ctx, req.userID(), req.chatKey())
	var (
		dangling  *TokenNotFoundError
		ambiguous *AmbiguousAccountError
	)
	switch {
	case errors.Is(err, ErrNoAccounts):
		return b.refuse(ctx, req, err, "no accounts configured", req.reply(configBoardNoTokenPrivate))
	case errors.As(err, &dangling):
		return b.refuse(ctx, req, err, "token not found: "+dangling.Alias, req.reply(tokenNotFound(dangling.Alias)))
	case errors.As(err, &ambiguous):
		return b.promptAccount(ctx, req, logging.StatusInfo, ambiguous.Candidates, "")
	case err != nil:
		return err
	}

	token := res.Token
	board, err := b.cards.FetchBoardInfo(ctx, fizzy.Target{AccountSlug: token.AccountSlug, BoardID: boardID, Token: token.Token})
	if err != nil {
		return b.refuse(ctx, req, err, fmt.Sprintf("board not found: %s: %v", boardID, err), req.reply(boardNotFound(boardID)))
	}

	topic := req.topicID()
	if err := b.storage.SaveTopicBoard(ctx, models.TopicBoard{TopicID: topic, BoardID: boardID, BoardName: &board.Name}); err != nil {
		return fmt.Errorf("save board: %w", err)
	}

	note := ""
	if res.AutoSelected {
		note = "auto-selected account: " + token.Alias
	}
	req.log(logging.StatusSuccess, withNote("board set for topic: "+topic, note))
	return b.sendMessage(ctx, req.reply(boardSet(boardID, &board.Name, token.Alias, token.AccountSlug)))
}

// configBoardPrivate validates the board with the first saved token. A
// user without tokens can still save the board, without a name.
func (b *Bot) configBoardPrivate(ctx context.Context, req *request) error {
	boardID := req.cmd.BoardID

	var name *string
	token, err := b.resolver.AnyAccount(ctx, req.userID())
	switch {
	case err == nil:
		board, err := b.cards.FetchBoardInfo(ctx, fizzy.Target{AccountSlug: token.AccountSlug, BoardID: boardID, Token: token.Token})
		if err != nil {
			return b.refuse(ctx, req, err, fmt.Sprintf("board not found: %s: %v", boardID, err), req.reply(boardNotFound(boardID)))
		}
		name = &board.Name
	case !errors.Is(err, ErrNoAccounts):
		return err
	}

	topic := req.topicID()
	if err := b.storage.SaveTopicBoard(ctx, models.TopicBoard{TopicID: topic, BoardID: boardID, BoardName: name}); err != nil {
		return fmt.Errorf("save board: %w", err)
	}

	req.log(logging.StatusSuccess, "board set for topic: "+topic)
	return b.sendMessage(ctx, req.reply(boardSet(boardID, name, "", "")))
}

func (b *Bot) handleSelectAccount(ctx context.Context, req *request) error {
	if req.isPrivate() {
		return b.refuse(ctx, req, ErrUsage, "not in group chat", req.reply(selectAccountNotGroup))
	}
	return b.showAccountMenu(ctx, req)
}

// showAccountMenu lists the user's accounts with the linked one marked.
func (b *Bot) showAccountMenu(ctx context.Context, req *request) error {
	tokens, err := b.storage.GetUserTokens(ctx, req.userID())
	if err != nil {
		return fmt.Errorf("get tokens: %w", err)
	}
	if len(tokens) == 0 {
		return b.refuse(ctx, req, ErrNoAccounts, "no accounts configured", req.reply(noAccountsConfigured))
	}

	current, err := b.resolver.CurrentAlias(ctx, req.userID(), req.chatKey())
	if err != nil {
		return err
	}
	return b.promptAccount(ctx, req, logging.StatusSuccess, tokens, current)
}

func (b *Bot) promptAccount(ctx context.Context, req *request, status string, tokens []models.UserToken, current string) error {
	req.log(status, "account selection menu shown")
	reply := req.reply(selectAccountPrompt)
	reply.Keyboard = accountKeyboard(tokens, current)
	return b.sendMessage(ctx, reply)
}

func (b *Bot) handleStatus(ctx context.Context, req *request) error {
	req.log(logging.StatusExecuted, "")
	return b.sendStatus(ctx, req)
}

func (b *Bot) sendStatus(ctx context.Context, req *request) error {
	userID := req.userID()

	if req.isPrivate() {
		tokens, err := b.storage.GetUserTokens(ctx, userID)
		if err != nil {
			return fmt.Errorf("get tokens: %w", err)
		}
		reply := req.reply(statusPrivateNoAccounts)
		if len(tokens) > 0 {
			reply.Text = statusPrivateWithAccounts(tokens)
		}
		reply.Keyboard = privateMenu()
		return b.sendMessage(ctx, reply)
	}

	link, err := b.storage.GetChatLink(ctx, userID, req.chatKey())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("get chat link: %w", err)
	}
	var token *models.UserToken
	if link != nil {
		token, err = b.storage.GetUserToken(ctx, userID, link.Alias)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("get token: %w", err)
		}
	}
	board, err := b.resolver.Board(ctx, req.topicID())
	if err != nil && !errors.Is(err, ErrNoBoard) {
		return err
	}

	return b.sendMessage(ctx, req.reply(statusGroup(link, token, board)))
}

func (b *Bot) handleStart(ctx context.Context, req *request) error {
	req.log(logging.StatusExecuted, "")
	return b.sendWelcome(ctx, req)
}

func (b *Bot) sendWelcome(ctx context.Context, req *request) error {
	reply := req.reply(welcomeGroup)
	reply.ParseMode = ParseMarkdown
	reply.Keyboard = groupMenu(b.opts.BotUsername)
	if req.isPrivate() {
		reply.Text = welcomePrivate(b.opts.FizzyBaseURL)
		reply.Keyboard = privateMenu()
	}
	return b.sendMessage(ctx, reply)
}

func (b *Bot) handleHelp(ctx context.Context, req *request) error {
	req.log(logging.StatusExecuted, "")
	return b.sendHelp(ctx, req)
}

func (b *Bot) sendHelp(ctx context.Context, req *request) error {
	reply := req.reply(helpGroup)
	reply.ParseMode = ParseMarkdownV2
	reply.Keyboard = groupMenu(b.opts.BotUsername)
	if req.isPrivate() {
		reply.Text = helpPrivate
		reply.Keyboard = privateMenu()
	}
	return b.sendMessage(ctx, reply)
}

func withNote(details, note string) string {
	if note == "" {
		return details
	}
	return details + " (" + note + ")"
}
