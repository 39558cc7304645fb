package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/xaenox/fizzy-bot/internal/models"
)

type userAliasKey struct {
	userID string
	alias  string
}

type userChatKey struct {
	userID string
	chatID string
}

// MemoryStorage keeps everything in process memory. Used for tests and
// throwaway deployments.
type MemoryStorage struct {
	mu     sync.RWMutex
	tokens map[userAliasKey]models.UserToken
	links  map[userChatKey]models.ChatTokenLink
	boards map[string]models.TopicBoard
}

func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{}
	s.init()
	return s
}

func (s *MemoryStorage) init() {
	s.tokens = make(map[userAliasKey]models.UserToken)
	s.links = make(map[userChatKey]models.ChatTokenLink)
	s.boards = make(map[string]models.TopicBoard)
}

// Token methods
func (s *MemoryStorage) GetUserTokens(ctx context.Context, userID string) ([]models.UserToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := []models.UserToken{}
	for key, token := range s.tokens {
		if key.userID == userID {
			tokens = append(tokens, token)
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Alias < tokens[j].Alias })
	return tokens, nil
}

func (s *MemoryStorage) GetUserToken(ctx context.Context, userID, alias string) (*models.UserToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token, exists := s.tokens[userAliasKey{userID, alias}]; exists {
		return &token, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveUserToken(ctx context.Context, token models.UserToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[userAliasKey{token.UserID, token.Alias}] = token
	return nil
}

func (s *MemoryStorage) DeleteUserToken(ctx context.Context, userID, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userAliasKey{userID, alias}
	if _, exists := s.tokens[key]; !exists {
		return ErrNotFound
	}
	delete(s.tokens, key)
	return nil
}

// Chat link methods
func (s *MemoryStorage) GetChatLink(ctx context.Context, userID, chatID string) (*models.ChatTokenLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if link, exists := s.links[userChatKey{userID, chatID}]; exists {
		return &link, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveChatLink(ctx context.Context, link models.ChatTokenLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.links[userChatKey{link.UserID, link.ChatID}] = link
	return nil
}

// Board methods
func (s *MemoryStorage) GetTopicBoard(ctx context.Context, topicID string) (*models.TopicBoard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if board, exists := s.boards[topicID]; exists {
		return &board, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) SaveTopicBoard(ctx context.Context, board models.TopicBoard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boards[board.TopicID] = board
	return nil
}

func (s *MemoryStorage) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.init()
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
