package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/fizzy-bot/internal/fizzy"
	"github.com/xaenox/fizzy-bot/internal/logging"
	"github.com/xaenox/fizzy-bot/internal/models"
	"go.uber.org/zap"
)

const attributionPrefix = "\n\n\n\nvia telegram by "

func (b *Bot) handleCreateCard(ctx context.Context, req *request) error {
	cmd := req.cmd

	board, err := b.resolver.Board(ctx, req.topicID())
	if errors.Is(err, ErrNoBoard) {
		return b.refuse(ctx, req, err, "no board configured", req.reply(noBoardConfigured))
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(cmd.Title) == "" {
		return b.refuse(ctx, req, ErrUsage, "missing title", req.reply(missingTitle(cmd.Verb)))
	}

	userID, chatID := req.userID(), req.chatKey()
	res, err := b.resolver.Account(ctx, userID, chatID)
	var (
		dangling  *TokenNotFoundError
		ambiguous *AmbiguousAccountError
	)
	switch {
	case errors.Is(err, ErrNoAccounts):
		return b.refuse(ctx, req, err, "no accounts configured", req.reply(noAccountsForCard))
	case errors.As(err, &dangling):
		return b.refuse(ctx, req, err, "token not found: "+dangling.Alias, req.reply(tokenNotFound(dangling.Alias)))
	case errors.As(err, &ambiguous):
		card, err := b.buildCard(ctx, req)
		if err != nil {
			return err
		}
		b.pending.Put(userID, chatID, card)
		return b.promptAccount(ctx, req, logging.StatusSuccess, ambiguous.Candidates, "")
	case err != nil:
		return err
	}

	card, err := b.buildCard(ctx, req)
	if err != nil {
		return err
	}

	token := res.Token
	status := req.reply(creatingCard)
	note := ""
	if res.AutoSelected {
		status.Text = accountSelectedWithPending(token.Alias)
		note = "auto-selected account: " + token.Alias
	}
	status.ReplyToMessageID = req.msg.MessageID

	statusID, err := b.messenger.Send(ctx, status)
	if err != nil {
		return fmt.Errorf("send status message: %w", err)
	}
	return b.submitCard(ctx, req, card, token, board, statusID, note)
}

// buildCard assembles the card from the command and the message it
// replies to. Quoted text wins over -d, which wins over the title.
func (b *Bot) buildCard(ctx context.Context, req *request) (models.PendingCard, error) {
	msg, cmd := req.msg, req.cmd

	card := models.PendingCard{
		Title:          cmd.Title,
		HasDescription: cmd.HasDescription,
		TopicID:        req.topicID(),
		WasReply:       msg.ReplyTo != nil,
	}

	switch {
	case msg.ReplyTo != nil && msg.ReplyTo.Text != "":
		card.Description = msg.ReplyTo.Text
	case msg.ReplyTo != nil && msg.ReplyTo.Caption != "":
		card.Description = msg.ReplyTo.Caption
	case cmd.HasDescription:
		card.Description = cmd.Description
	default:
		card.Description = cmd.Title
	}
	card.Description += attributionPrefix + req.sender()

	image, err := b.replyImage(ctx, msg.ReplyTo)
	if err != nil {
		return models.PendingCard{}, err
	}
	card.Image = image
	return card, nil
}

// replyImage downloads the largest size of a quoted photo, if any.
func (b *Bot) replyImage(ctx context.Context, quoted *Quoted) (*models.Image, error) {
	photo, ok := largestPhoto(quoted)
	if !ok {
		return nil, nil
	}

	content, err := b.messenger.DownloadFile(ctx, photo.FileID)
	if err != nil {
		return nil, fmt.Errorf("download photo %s: %w", photo.FileID, err)
	}
	return &models.Image{
		Content:     content,
		Filename:    "photo_" + photo.FileID + ".jpg",
		ContentType: "image/jpeg",
	}, nil
}

// largestPhoto picks the size with the biggest file size. Ties keep the
// first one seen.
func largestPhoto(quoted *Quoted) (Photo, bool) {
	if quoted == nil || len(quoted.Photos) == 0 {
		return Photo{}, false
	}
	best := quoted.Photos[0]
	for _, p := range quoted.Photos[1:] {
		if p.FileSize > best.FileSize {
			best = p
		}
	}
	return best, true
}

// submitCard creates the card and edits the status message with the result.
func (b *Bot) submitCard(ctx context.Context, req *request, card models.PendingCard, token *models.UserToken, board *models.TopicBoard, statusID int, note string) error {
	target := fizzy.Target{AccountSlug: token.AccountSlug, BoardID: board.BoardID, Token: token.Token}

	var text string
	url, err := b.cards.CreateCard(ctx, target, card.Title, card.Description, card.Image)
	if err != nil {
		req.log(logging.StatusError, withNote(fmt.Sprintf("card creation failed: %s: %v", token.Alias, err), note))
		text = cardCreationFailed(fizzy.Describe(err, token.Alias, token.AccountSlug))
	} else {
		req.log(logging.StatusSuccess, withNote(cardType(card), note))
		text = cardCreated(card.Title, url)
	}

	// The outcome is already logged; a failed edit must not add a record.
	if err := b.messenger.Edit(ctx, req.chatID, statusID, text); err != nil {
		req.logger.Error("Failed to edit status message", zap.Error(err), zap.Int("message_id", statusID))
	}
	return nil
}

func cardType(card models.PendingCard) string {
	switch {
	case card.WasReply && card.Image != nil:
		return "Card with reply and media created"
	case card.WasReply:
		return "Card with reply created"
	case card.HasDescription:
		return "Card with description created"
	default:
		return "Card created"
	}
}
