package bot

import (
	"errors"
	"fmt"

	"github.com/xaenox/fizzy-bot/internal/models"
)

var (
	ErrUsage            = errors.New("usage error")
	ErrNotPrivate       = errors.New("command requires a private chat")
	ErrNotFound         = errors.New("not found")
	ErrNoAccounts       = errors.New("no accounts configured")
	ErrNoBoard          = errors.New("no board configured")
	ErrTokenNotFound    = errors.New("token not found")
	ErrAmbiguousAccount = errors.New("more than one account could be used")
)

// TokenNotFoundError is a chat link pointing at an alias the user no longer has.
type TokenNotFoundError struct {
	Alias string
}

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("token %q not found", e.Alias)
}

func (e *TokenNotFoundError) Is(target error) bool {
	return target == ErrTokenNotFound || target == ErrNotFound
}

// AmbiguousAccountError is returned when the user must pick an account
// before the action can go ahead.
type AmbiguousAccountError struct {
	Candidates []models.UserToken
}

func (e *AmbiguousAccountError) Error() string {
	return fmt.Sprintf("%d accounts to choose from", len(e.Candidates))
}

func (e *AmbiguousAccountError) Is(target error) bool {
	return target == ErrAmbiguousAccount
}
