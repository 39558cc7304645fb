// Package telegram connects the bot engine to the Telegram Bot API using
// go-telegram-bot-api. Raw requests are used where the library predates
// forum topics (message_thread_id).
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/fizzy-bot/internal/bot"
	"go.uber.org/zap"
)

type ClientConfig struct {
	Token string
	// APIRoot replaces https://api.telegram.org, e.g. for a proxy.
	APIRoot    string
	HTTPClient *http.Client
}

// Endpoints returns the method and file endpoint formats for root.
func Endpoints(root string) (api, file string) {
	if root == "" {
		return tgbotapi.APIEndpoint, tgbotapi.FileEndpoint
	}
	root = strings.TrimRight(root, "/")
	return root + "/bot%s/%s", root + "/file/bot%s/%s"
}

// Client implements bot.Messenger.
type Client struct {
	api          *tgbotapi.BotAPI
	fileEndpoint string
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ bot.Messenger = (*Client)(nil)

// NewClient connects to the Bot API and verifies the token with getMe.
func NewClient(cfg ClientConfig, logger *zap.Logger) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}

	apiEndpoint, fileEndpoint := Endpoints(cfg.APIRoot)
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, apiEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Client{
		api:          api,
		fileEndpoint: fileEndpoint,
		httpClient:   httpClient,
		logger:       logger.With(zap.String("component", "telegram")),
	}, nil
}

// Self is the bot account the token belongs to.
func (c *Client) Self() tgbotapi.User {
	return c.api.Self
}

func (c *Client) Send(ctx context.Context, reply bot.Reply) (int, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", reply.ChatID)
	params.AddNonEmpty("text", reply.Text)
	params.AddNonZero("message_thread_id", reply.ThreadID)
	params.AddNonEmpty("parse_mode", reply.ParseMode)
	params.AddNonZero("reply_to_message_id", reply.ReplyToMessageID)
	if len(reply.Keyboard) > 0 {
		if err := params.AddInterface("reply_markup", inlineKeyboard(reply.Keyboard)); err != nil {
			return 0, err
		}
	}

	resp, err := c.api.MakeRequest("sendMessage", params)
	if err != nil {
		c.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", reply.ChatID))
		return 0, err
	}

	var sent tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return 0, fmt.Errorf("decode sent message: %w", err)
	}
	return sent.MessageID, nil
}

func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if _, err := c.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		c.logger.Error("Failed to edit message",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.Int("message_id", messageID))
		return err
	}
	return nil
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// DownloadFile resolves fileID with getFile and fetches the bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.fileEndpoint, c.api.Token, file.FilePath), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func inlineKeyboard(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Probe checks that the token works against root and reports the latency.
func Probe(token, root string, httpClient *http.Client) (tgbotapi.User, time.Duration, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	apiEndpoint, _ := Endpoints(root)

	start := time.Now()
	api, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, httpClient)
	if err != nil {
		return tgbotapi.User{}, time.Since(start), err
	}
	return api.Self, time.Since(start), nil
}
