package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/fizzy-bot/internal/models"
	"github.com/xaenox/fizzy-bot/internal/storage"
	"github.com/xaenox/fizzy-bot/pkg/config"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T, c *config.Config) {
	t.Helper()
	prevCfg, prevLogger := cfg, logger
	cfg, logger = c, zaptest.NewLogger(t)
	t.Cleanup(func() { cfg, logger = prevCfg, prevLogger })
}

func TestOpenStorage(t *testing.T) {
	setup(t, &config.Config{})
	ctx := context.Background()

	mem, err := openStorage(ctx, config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStorage{}, mem)
	require.NoError(t, mem.Close())

	path := filepath.Join(t.TempDir(), "data", "bot.db")
	db, err := openStorage(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	require.NoError(t, db.SaveTopicBoard(ctx, models.TopicBoard{TopicID: "general", BoardID: "03f770pvr5f56"}))
	require.NoError(t, db.Close())

	_, err = openStorage(ctx, config.DatabaseConfig{Driver: "mysql"})
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestDBSetupAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	setup(t, &config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: path}})

	cmd, _, err := rootCmd.Find([]string{"db", "setup"})
	require.NoError(t, err)
	cmd.SetContext(context.Background())
	require.NoError(t, runDBSetup(cmd, nil))
	assert.FileExists(t, path)

	// Second run finds the file and skips.
	require.NoError(t, runDBSetup(cmd, nil))

	ctx := context.Background()
	store, err := storage.NewSQLiteStorage(ctx, path, logger)
	require.NoError(t, err)
	require.NoError(t, store.SaveTopicBoard(ctx, models.TopicBoard{TopicID: "general", BoardID: "03f770pvr5f56"}))
	require.NoError(t, store.Close())

	reset, _, err := rootCmd.Find([]string{"db", "reset"})
	require.NoError(t, err)
	reset.SetContext(ctx)
	require.NoError(t, runDBReset(reset, nil))

	store, err = storage.NewSQLiteStorage(ctx, path, logger)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.GetTopicBoard(ctx, "general")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNewMux(t *testing.T) {
	setup(t, &config.Config{Telegram: config.TelegramConfig{WebhookPath: "/hook"}})

	var hits int
	mux := newMux(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}")))
	assert.Equal(t, 1, hits)
}

func TestPrintWebhookInfo(t *testing.T) {
	var buf bytes.Buffer
	printWebhookInfo(&buf, tgbotapi.WebhookInfo{})
	assert.Contains(t, buf.String(), "No webhook configured")

	buf.Reset()
	printWebhookInfo(&buf, tgbotapi.WebhookInfo{
		URL:                "https://bot.example.com/",
		PendingUpdateCount: 3,
		LastErrorDate:      int(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Unix()),
		LastErrorMessage:   "Connection refused",
	})
	out := buf.String()
	assert.Contains(t, out, "URL: https://bot.example.com/")
	assert.Contains(t, out, "Pending updates: 3")
	assert.Contains(t, out, "Last error: 2026-01-02T03:04:05Z (Connection refused)")
}
