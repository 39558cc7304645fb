package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xaenox/fizzy-bot/internal/bot"
	"github.com/xaenox/fizzy-bot/internal/fizzy"
	"github.com/xaenox/fizzy-bot/internal/pending"
	"github.com/xaenox/fizzy-bot/internal/storage"
	"github.com/xaenox/fizzy-bot/internal/telegram"
	"github.com/xaenox/fizzy-bot/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot (webhook server or long polling)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	client, err := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Telegram.Token,
		APIRoot: cfg.Telegram.APIRoot,
	}, logger)
	if err != nil {
		return err
	}
	self := client.Self()
	logger.Info("Authorized on account", zap.String("username", self.UserName))

	cards := fizzy.NewClient(cfg.Fizzy.BaseURL, &http.Client{Timeout: cfg.Fizzy.HTTPTimeout}, logger)
	engine := bot.New(client, cards, store, pending.NewBuffer(), bot.Options{
		BotUsername:  self.UserName,
		FizzyBaseURL: cards.BaseURL(),
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	switch cfg.Telegram.Mode {
	case config.ModePolling:
		// getUpdates is refused while a webhook is set.
		if err := client.DeleteWebhook(false); err != nil {
			return err
		}
		logger.Info("Starting long polling", zap.Int("workers", cfg.Telegram.Workers))
		g.Go(func() error {
			return client.Poll(ctx, engine, telegram.PollConfig{
				Timeout: cfg.Telegram.PollTimeout,
				Workers: cfg.Telegram.Workers,
			})
		})
	default:
		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           newMux(telegram.NewWebhookHandler(engine, cfg.Telegram.WebhookSecret, logger)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Starting webhook server",
				zap.String("addr", srv.Addr),
				zap.String("path", cfg.Telegram.WebhookPath))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("Bot stopped")
	return err
}

func newMux(webhook http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle(cfg.Telegram.WebhookPath, webhook)
	return mux
}

func openStorage(ctx context.Context, db config.DatabaseConfig) (storage.Storage, error) {
	switch db.Driver {
	case config.DriverMemory:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStorage(), nil
	case config.DriverPostgres:
		return storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			DBName:   db.DBName,
			SSLMode:  db.SSLMode,
		}, logger)
	case config.DriverSQLite:
		return storage.NewSQLiteStorage(ctx, db.Path, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}
