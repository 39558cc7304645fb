// Package pending holds card creation requests that are waiting for the
// user to choose an account.
package pending

import (
	"sync"

	"github.com/xaenox/fizzy-bot/internal/models"
)

type key struct {
	userID string
	chatID string
}

// Buffer stores at most one pending card per (user, chat). Safe for
// concurrent use. Contents are lost on restart.
type Buffer struct {
	mu    sync.Mutex
	cards map[key]models.PendingCard
}

func NewBuffer() *Buffer {
	return &Buffer{cards: make(map[key]models.PendingCard)}
}

// Put stores card, replacing any earlier pending card for the same user and chat.
func (b *Buffer) Put(userID, chatID string, card models.PendingCard) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cards[key{userID, chatID}] = card
}

// Take removes and returns the pending card, if any.
func (b *Buffer) Take(userID, chatID string) (models.PendingCard, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{userID, chatID}
	card, ok := b.cards[k]
	if ok {
		delete(b.cards, k)
	}
	return card, ok
}

// Len reports how many cards are waiting.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.cards)
}
