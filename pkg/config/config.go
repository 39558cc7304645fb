package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Fizzy    FizzyConfig    `mapstructure:"fizzy"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
	// APIRoot overrides https://api.telegram.org, e.g. with a proxy.
	APIRoot       string `mapstructure:"api_root"`
	Mode          string `mapstructure:"mode"`
	WebhookPath   string `mapstructure:"webhook_path"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	PollTimeout   int    `mapstructure:"poll_timeout"`
	Workers       int    `mapstructure:"workers"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Path       string `mapstructure:"path"`
	ForceSetup bool   `mapstructure:"force_setup"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type FizzyConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// HTTPTimeout of 0 leaves Fizzy requests without a client timeout.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps the deployment environment onto config keys.
var envBindings = map[string]string{
	"telegram.token":          "BOT_TOKEN",
	"telegram.api_root":       "TELEGRAM_API_PROXY_URL",
	"telegram.mode":           "BOT_MODE",
	"telegram.webhook_secret": "WEBHOOK_SECRET",
	"server.port":             "PORT",
	"database.force_setup":    "FORCE_DB_SETUP",
	"fizzy.base_url":          "FIZZY_BASE_URL",
	"log.level":               "LOG_LEVEL",
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path (optional; a missing file is fine) and the
// environment. Environment values win.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("telegram.mode", ModeWebhook)
	v.SetDefault("telegram.webhook_path", "/")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.workers", 16)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("fizzy.base_url", "https://app.fizzy.do")
	v.SetDefault("fizzy.http_timeout", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix("FIZZY_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.ForceSetup = config.Database.ForceSetup
		config.Database = dbConfig
	}

	if config.Database.Driver == DriverSQLite && config.Database.Path == "" {
		config.Database.Path = "bot.db"
		if dir := os.Getenv("RAILWAY_VOLUME_MOUNT_PATH"); dir != "" {
			config.Database.Path = filepath.Join(dir, "bot.db")
		}
	}

	return &config, nil
}

// Validate reports settings the bot cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram token is required (BOT_TOKEN)"))
	}
	switch c.Telegram.Mode {
	case ModeWebhook, ModePolling:
	default:
		errs = append(errs, fmt.Errorf("unknown telegram mode %q", c.Telegram.Mode))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	return errors.Join(errs...)
}
