package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/fizzy-bot/internal/models"
	"github.com/xaenox/fizzy-bot/internal/storage"
)

// Resolution is the account a group chat action runs as.
type Resolution struct {
	Token *models.UserToken
	// AutoSelected is set when the chat link was created during resolution
	// because the user owns exactly one token.
	AutoSelected bool
}

// Resolver decides which saved account and board apply to a conversation.
type Resolver struct {
	storage storage.Storage
}

func NewResolver(store storage.Storage) *Resolver {
	return &Resolver{storage: store}
}

// Account resolves the credential for userID in a group chat. The linked
// alias wins; without a link a single token is linked automatically.
// Errors: ErrNoAccounts, *TokenNotFoundError for a dangling link and
// *AmbiguousAccountError when the user has to choose.
func (r *Resolver) Account(ctx context.Context, userID, chatID string) (*Resolution, error) {
	link, err := r.storage.GetChatLink(ctx, userID, chatID)
	switch {
	case err == nil:
		token, err := r.storage.GetUserToken(ctx, userID, link.Alias)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &TokenNotFoundError{Alias: link.Alias}
		}
		if err != nil {
			return nil, fmt.Errorf("get token %q: %w", link.Alias, err)
		}
		return &Resolution{Token: token}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("get chat link: %w", err)
	}

	tokens, err := r.storage.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get tokens: %w", err)
	}

	switch len(tokens) {
	case 0:
		return nil, ErrNoAccounts
	case 1:
		token := tokens[0]
		if err := r.storage.SaveChatLink(ctx, models.ChatTokenLink{UserID: userID, ChatID: chatID, Alias: token.Alias}); err != nil {
			return nil, fmt.Errorf("save chat link: %w", err)
		}
		return &Resolution{Token: &token, AutoSelected: true}, nil
	default:
		return nil, &AmbiguousAccountError{Candidates: tokens}
	}
}

// AnyAccount returns the first saved token of userID. Used in private
// chats where no chat link applies.
func (r *Resolver) AnyAccount(ctx context.Context, userID string) (*models.UserToken, error) {
	tokens, err := r.storage.GetUserTokens(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, ErrNoAccounts
	}
	return &tokens[0], nil
}

// Board returns the board configured for topicID or ErrNoBoard.
func (r *Resolver) Board(ctx context.Context, topicID string) (*models.TopicBoard, error) {
	board, err := r.storage.GetTopicBoard(ctx, topicID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoBoard
	}
	if err != nil {
		return nil, fmt.Errorf("get board for topic %s: %w", topicID, err)
	}
	return board, nil
}

// CurrentAlias returns the alias linked to the chat, or "".
func (r *Resolver) CurrentAlias(ctx context.Context, userID, chatID string) (string, error) {
	link, err := r.storage.GetChatLink(ctx, userID, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get chat link: %w", err)
	}
	return link.Alias, nil
}
