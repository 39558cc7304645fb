// Package fizzy is a minimal client for the Fizzy boards API: card creation
// (with optional image attachment) and board lookup.
package fizzy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/xaenox/fizzy-bot/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://app.fizzy.do"

	maxErrorBody     = 200
	defaultBoardName = "Unnamed Board"
)

var cardIDPattern = regexp.MustCompile(`cards/(\d+)`)

// Target identifies the account, board and bearer token a request runs as.
type Target struct {
	AccountSlug string
	BoardID     string
	Token       string
}

// Board is the subset of board metadata the bot uses.
type Board struct {
	ID   string
	Name string
}

// Client talks to a Fizzy instance. Every call is a single attempt.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "fizzy")),
	}
}

// BaseURL returns the instance root, e.g. https://app.fizzy.do.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type cardRequest struct {
	Card struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"card"`
}

// CreateCard creates a card on t.BoardID and returns its URL. When image is
// set it is uploaded first and embedded at the top of the description; an
// upload failure aborts before the card request is sent.
func (c *Client) CreateCard(ctx context.Context, t Target, title, description string, image *models.Image) (string, error) {
	finalDescription := description
	if image != nil {
		blob, err := c.uploadImage(ctx, t, image)
		if err != nil {
			return "", fmt.Errorf("image upload failed: %w", err)
		}
		finalDescription = blob.attachmentTag() + "<p>" + strings.ReplaceAll(description, "\n", "<br>") + "</p>"
	}

	var body cardRequest
	body.Card.Title = title
	body.Card.Description = finalDescription

	endpoint := fmt.Sprintf("%s/%s/boards/%s/cards.json", c.baseURL, t.AccountSlug, t.BoardID)
	resp, err := c.do(ctx, http.MethodPost, endpoint, t.Token, body)
	if err != nil {
		c.logger.Error("Card creation exception",
			zap.Error(err),
			zap.String("account_slug", t.AccountSlug),
			zap.String("board_id", t.BoardID),
			zap.String("title", title))
		return "", &Error{Op: "create card", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError("create card", resp)
		c.logger.Error("Card creation failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("error", apiErr.Body),
			zap.String("account_slug", t.AccountSlug),
			zap.String("board_id", t.BoardID),
			zap.String("title", title))
		return "", apiErr
	}
	io.Copy(io.Discard, resp.Body)

	cardURL := fmt.Sprintf("%s/%s/boards/%s", c.baseURL, t.AccountSlug, t.BoardID)
	cardID := ""
	if m := cardIDPattern.FindStringSubmatch(resp.Header.Get("Location")); m != nil {
		cardID = m[1]
		cardURL = fmt.Sprintf("%s/%s/cards/%s", c.baseURL, t.AccountSlug, cardID)
	}

	c.logger.Info("Card created successfully",
		zap.String("account_slug", t.AccountSlug),
		zap.String("board_id", t.BoardID),
		zap.String("card_id", cardID),
		zap.String("title", title),
		zap.Bool("has_image", image != nil))

	return cardURL, nil
}

// FetchBoardInfo reads board metadata. It is used to validate a board id
// before it is saved.
func (c *Client) FetchBoardInfo(ctx context.Context, t Target) (*Board, error) {
	endpoint := fmt.Sprintf("%s/%s/boards/%s.json", c.baseURL, t.AccountSlug, t.BoardID)
	resp, err := c.do(ctx, http.MethodGet, endpoint, t.Token, nil)
	if err != nil {
		c.logger.Error("Board info fetch exception",
			zap.Error(err),
			zap.String("account_slug", t.AccountSlug),
			zap.String("board_id", t.BoardID))
		return nil, &Error{Op: "fetch board", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newStatusError("fetch board", resp)
		c.logger.Error("Board info fetch failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("error", apiErr.Body),
			zap.String("account_slug", t.AccountSlug),
			zap.String("board_id", t.BoardID))
		return nil, apiErr
	}

	var data struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &Error{Op: "fetch board", Err: fmt.Errorf("decode response: %w", err)}
	}
	if data.Name == "" {
		data.Name = defaultBoardName
	}

	c.logger.Info("Board info fetched successfully",
		zap.String("account_slug", t.AccountSlug),
		zap.String("board_id", t.BoardID),
		zap.String("board_name", data.Name))

	return &Board{ID: t.BoardID, Name: data.Name}, nil
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}
