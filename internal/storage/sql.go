package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/fizzy-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql reset.sql
var migrations embed.FS

// SQLStorage implements Storage on database/sql. Queries are written with
// "?" placeholders and rebound for drivers that use "$n".
type SQLStorage struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

func newSQLStorage(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) (*SQLStorage, error) {
	s := &SQLStorage{db: db, driver: driver, logger: logger.With(zap.String("component", "storage"), zap.String("driver", driver))}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if err := s.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return s, nil
}

func (s *SQLStorage) initializeSchema(ctx context.Context) error {
	return s.execFile(ctx, "migrations.sql")
}

func (s *SQLStorage) execFile(ctx context.Context, name string) error {
	script, err := migrations.ReadFile(name)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", name, err)
	}

	for _, stmt := range strings.Split(string(script), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error executing %s: %w", name, err)
		}
	}
	return nil
}

// Reset drops all tables and recreates the schema.
func (s *SQLStorage) Reset(ctx context.Context) error {
	s.logger.Warn("Dropping all tables")
	if err := s.execFile(ctx, "reset.sql"); err != nil {
		return err
	}
	if err := s.initializeSchema(ctx); err != nil {
		return err
	}
	s.logger.Info("Database reset complete")
	return nil
}

func (s *SQLStorage) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStorage) GetUserTokens(ctx context.Context, userID string) ([]models.UserToken, error) {
	query := `
		SELECT user_id, alias, account_slug, token
		FROM user_tokens
		WHERE user_id = ?
		ORDER BY alias`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("error querying user tokens: %w", err)
	}
	defer rows.Close()

	tokens := []models.UserToken{}
	for rows.Next() {
		var token models.UserToken
		if err := rows.Scan(&token.UserID, &token.Alias, &token.AccountSlug, &token.Token); err != nil {
			return nil, fmt.Errorf("error scanning user token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user tokens: %w", err)
	}

	return tokens, nil
}

func (s *SQLStorage) GetUserToken(ctx context.Context, userID, alias string) (*models.UserToken, error) {
	query := `
		SELECT user_id, alias, account_slug, token
		FROM user_tokens
		WHERE user_id = ? AND alias = ?`

	token := &models.UserToken{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID, alias).
		Scan(&token.UserID, &token.Alias, &token.AccountSlug, &token.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user token: %w", err)
	}

	return token, nil
}

func (s *SQLStorage) SaveUserToken(ctx context.Context, token models.UserToken) error {
	query := `
		INSERT INTO user_tokens (user_id, alias, account_slug, token)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, alias)
		DO UPDATE SET account_slug = excluded.account_slug, token = excluded.token`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), token.UserID, token.Alias, token.AccountSlug, token.Token); err != nil {
		return fmt.Errorf("error saving user token: %w", err)
	}
	return nil
}

func (s *SQLStorage) DeleteUserToken(ctx context.Context, userID, alias string) error {
	query := `DELETE FROM user_tokens WHERE user_id = ? AND alias = ?`

	result, err := s.db.ExecContext(ctx, s.rebind(query), userID, alias)
	if err != nil {
		return fmt.Errorf("error deleting user token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *SQLStorage) GetChatLink(ctx context.Context, userID, chatID string) (*models.ChatTokenLink, error) {
	query := `
		SELECT user_id, chat_id, alias
		FROM chat_token_links
		WHERE user_id = ? AND chat_id = ?`

	link := &models.ChatTokenLink{}
	err := s.db.QueryRowContext(ctx, s.rebind(query), userID, chatID).Scan(&link.UserID, &link.ChatID, &link.Alias)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying chat link: %w", err)
	}

	return link, nil
}

func (s *SQLStorage) SaveChatLink(ctx context.Context, link models.ChatTokenLink) error {
	query := `
		INSERT INTO chat_token_links (user_id, chat_id, alias)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, chat_id)
		DO UPDATE SET alias = excluded.alias`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), link.UserID, link.ChatID, link.Alias); err != nil {
		return fmt.Errorf("error saving chat link: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetTopicBoard(ctx context.Context, topicID string) (*models.TopicBoard, error) {
	query := `
		SELECT topic_id, board_id, board_name
		FROM topic_boards
		WHERE topic_id = ?`

	var (
		board models.TopicBoard
		name  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, s.rebind(query), topicID).Scan(&board.TopicID, &board.BoardID, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying topic board: %w", err)
	}
	if name.Valid {
		board.BoardName = &name.String
	}

	return &board, nil
}

func (s *SQLStorage) SaveTopicBoard(ctx context.Context, board models.TopicBoard) error {
	query := `
		INSERT INTO topic_boards (topic_id, board_id, board_name)
		VALUES (?, ?, ?)
		ON CONFLICT (topic_id)
		DO UPDATE SET board_id = excluded.board_id, board_name = excluded.board_name`

	var name sql.NullString
	if board.BoardName != nil {
		name = sql.NullString{String: *board.BoardName, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(query), board.TopicID, board.BoardID, name); err != nil {
		return fmt.Errorf("error saving topic board: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}
