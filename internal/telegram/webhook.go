package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20

	// A healthy webhook keeps its queue short and has not failed recently.
	maxPendingUpdates = 10
	recentErrorWindow = time.Hour
)

var ErrNoWebhook = errors.New("no webhook configured")

// WebhookHandler receives updates pushed by Telegram. Each request is
// handled to completion before it is acknowledged.
type WebhookHandler struct {
	handler Handler
	secret  string
	logger  *zap.Logger
}

// NewWebhookHandler returns the HTTP endpoint for updates. A non-empty
// secret must match the secret token header Telegram sends.
func NewWebhookHandler(h Handler, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		handler: h,
		secret:  secret,
		logger:  logger.With(zap.String("component", "webhook")),
	}
}

func (wh *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if wh.secret != "" && r.Header.Get(secretHeader) != wh.secret {
		wh.logger.Warn("Rejected webhook request with bad secret", zap.String("remote_addr", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if err := Dispatch(context.WithoutCancel(r.Context()), body, wh.handler); err != nil {
		wh.logger.Error("Failed to decode update", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// WebhookInfo returns the webhook Telegram currently delivers to.
func (c *Client) WebhookInfo() (tgbotapi.WebhookInfo, error) {
	return c.api.GetWebhookInfo()
}

// SetWebhook points Telegram at link. secret may be empty.
func (c *Client) SetWebhook(link, secret string) error {
	params := tgbotapi.Params{}
	params.AddNonEmpty("url", link)
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return err
	}

	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	c.logger.Info("Webhook set", zap.String("url", link))
	return nil
}

func (c *Client) DeleteWebhook(dropPending bool) error {
	if _, err := c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	c.logger.Info("Webhook deleted", zap.Bool("drop_pending_updates", dropPending))
	return nil
}

// CheckWebhook reports an unhealthy webhook: none set, a backlog of
// pending updates or a delivery error within the last hour.
func CheckWebhook(info tgbotapi.WebhookInfo, now time.Time) error {
	if info.URL == "" {
		return ErrNoWebhook
	}
	if info.PendingUpdateCount > maxPendingUpdates {
		return fmt.Errorf("high pending updates (%d), webhook not delivering", info.PendingUpdateCount)
	}
	if info.LastErrorDate != 0 {
		ago := now.Sub(time.Unix(int64(info.LastErrorDate), 0))
		if ago < recentErrorWindow {
			return fmt.Errorf("recent error %d minutes ago: %s", int(ago.Minutes()), info.LastErrorMessage)
		}
	}
	return nil
}
