package storage

import (
	"context"
	"errors"

	"github.com/xaenox/fizzy-bot/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type Storage interface {
	TokenStorage
	ChatLinkStorage
	BoardStorage

	// Reset drops and recreates every table. All data is lost.
	Reset(ctx context.Context) error
	Close() error
}

// TokenStorage holds per-user credentials keyed by (user, alias).
type TokenStorage interface {
	GetUserTokens(ctx context.Context, userID string) ([]models.UserToken, error)
	GetUserToken(ctx context.Context, userID, alias string) (*models.UserToken, error)
	SaveUserToken(ctx context.Context, token models.UserToken) error
	DeleteUserToken(ctx context.Context, userID, alias string) error
}

// ChatLinkStorage holds the active alias per (user, chat).
type ChatLinkStorage interface {
	GetChatLink(ctx context.Context, userID, chatID string) (*models.ChatTokenLink, error)
	SaveChatLink(ctx context.Context, link models.ChatTokenLink) error
}

// BoardStorage holds the board configured for each topic.
type BoardStorage interface {
	GetTopicBoard(ctx context.Context, topicID string) (*models.TopicBoard, error)
	SaveTopicBoard(ctx context.Context, board models.TopicBoard) error
}
