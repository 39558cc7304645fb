package fizzy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Error is a failed call to the Fizzy API. StatusCode is zero when the
// request never got a response.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newStatusError(op string, resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &Error{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Describe renders a card creation failure for the user, naming the
// account that was used.
func Describe(err error, alias, accountSlug string) string {
	switch StatusCode(err) {
	case http.StatusForbidden:
		return fmt.Sprintf("Your '%s' (%s) account doesn't have access to this board.\n\nTry /select_account or check permissions on fizzy.do", alias, accountSlug)
	case http.StatusUnauthorized:
		return fmt.Sprintf("Token '%s' (%s) is invalid or expired.\n\nPlease update it in private chat with /config_token", alias, accountSlug)
	case http.StatusNotFound:
		return fmt.Sprintf("Board not found. The board ID might be incorrect or was deleted.\n\nUsed account: %s (%s)", alias, accountSlug)
	default:
		return fmt.Sprintf("Failed: %v\n\nUsed account: %s (%s)", err, alias, accountSlug)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
