// Package logging builds the process logger and the per-command log records
// emitted by the bot.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "fizzy-telegram-bot"

// New builds a zap logger. format is "json" (default) or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", ServiceName)), nil
}

// Command statuses.
const (
	StatusSuccess    = "success"
	StatusValidation = "validation"
	StatusWarning    = "warning"
	StatusError      = "error"
	StatusInfo       = "info"
	StatusSelected   = "option_selected"
	StatusExecuted   = "command executed"
)

// Command writes the single record every handled command produces. The
// level follows status: error -> Error, warning -> Warn, anything else Info.
func Command(logger *zap.Logger, command, status, details, sender string) {
	fields := []zap.Field{
		zap.String("command", command),
		zap.String("status", status),
		zap.String("component", "bot"),
	}
	if details != "" {
		fields = append(fields, zap.String("details", details))
	}
	if sender != "" {
		fields = append(fields, zap.String("sender", sender))
	}

	message := "Command " + command + " " + status
	switch status {
	case StatusError, "failed":
		logger.Error(message, fields...)
	case StatusWarning:
		logger.Warn(message, fields...)
	default:
		logger.Info(message, fields...)
	}
}

// Secret logs a credential without revealing it.
func Secret(key, value string) zap.Field {
	return zap.String(key, Redact(value))
}

// Redact keeps the first four characters and the length.
func Redact(value string) string {
	if value == "" {
		return ""
	}
	prefix := value
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return fmt.Sprintf("%s%s(len=%d)", prefix, strings.Repeat("*", 4), len(value))
}
