package telegram

import (
	"context"
	"encoding/json"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const retryDelay = 3 * time.Second

type PollConfig struct {
	// Timeout is the long polling timeout in seconds.
	Timeout int
	// Workers bounds how many updates are handled at once.
	Workers int
}

// Poll fetches updates with getUpdates until ctx is done. Each update is
// handled in its own goroutine; Poll waits for them before returning.
func (c *Client) Poll(ctx context.Context, h Handler, cfg PollConfig) error {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	defer g.Wait()

	handleCtx := context.WithoutCancel(ctx)
	offset := 0
	for ctx.Err() == nil {
		res, ok := c.awaitUpdates(ctx, offset, cfg.Timeout)
		if !ok {
			break
		}
		if res.err != nil {
			c.logger.Error("Failed to get updates, retrying in 3 seconds...", zap.Error(res.err))
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		for _, raw := range res.updates {
			var head struct {
				UpdateID int `json:"update_id"`
			}
			if err := json.Unmarshal(raw, &head); err != nil {
				c.logger.Error("Skipping undecodable update", zap.Error(err))
				continue
			}
			if head.UpdateID >= offset {
				offset = head.UpdateID + 1
			}

			g.Go(func() error {
				if err := Dispatch(handleCtx, raw, h); err != nil {
					c.logger.Error("Failed to decode update", zap.Error(err), zap.Int("update_id", head.UpdateID))
				}
				return nil
			})
		}
	}
	return nil
}

type pollResult struct {
	updates []json.RawMessage
	err     error
}

// awaitUpdates runs one getUpdates call and stops waiting for it when ctx
// is done (ok is false). The abandoned call ends within the poll timeout;
// whatever it returns was never confirmed and is delivered again later.
func (c *Client) awaitUpdates(ctx context.Context, offset, timeout int) (pollResult, bool) {
	results := make(chan pollResult, 1)
	go func() {
		updates, err := c.getUpdates(offset, timeout)
		results <- pollResult{updates, err}
	}()

	select {
	case <-ctx.Done():
		return pollResult{}, false
	case res := <-results:
		return res, true
	}
}

func (c *Client) getUpdates(offset, timeout int) ([]json.RawMessage, error) {
	params := tgbotapi.Params{}
	params.AddNonZero("offset", offset)
	params.AddNonZero("timeout", timeout)
	if err := params.AddInterface("allowed_updates", allowedUpdates); err != nil {
		return nil, err
	}

	resp, err := c.api.MakeRequest("getUpdates", params)
	if err != nil {
		return nil, err
	}

	var updates []json.RawMessage
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
