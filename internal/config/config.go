// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath    = "config.toml"
	DefaultHTTPAddr      = ":8080"
	DefaultPollTimeout   = 30
	DefaultPGHost        = "127.0.0.1"
	DefaultPGPort        = 5432
	DefaultPGUser        = "postgres"
	DefaultPGDatabase    = "shelfmark"
	DefaultPGSSLMode     = "disable"
	DefaultJWTExpiresIn  = "24h"
	DefaultDigestPattern = "0 8 * * *"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Telegram TelegramConfig `toml:"telegram"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Digest   DigestConfig   `toml:"digest"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TelegramConfig holds the bot token and long-poll timeout in seconds.
type TelegramConfig struct {
	BotToken    string `toml:"bot_token"`
	BotUsername string `toml:"bot_username"`
	PollTimeout int    `toml:"poll_timeout"`
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// ServerConfig holds the ops HTTP API listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the ops API JWT secret, token expiry, and the bcrypt hash
// of the admin password accepted by /auth/login.
type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	JWTExpiresIn      string `toml:"jwt_expires_in"`
	AdminPasswordHash string `toml:"admin_password_hash"`
}

// DigestConfig holds the cron pattern for the daily pending-requests summary.
type DigestConfig struct {
	Enabled bool   `toml:"enabled"`
	Pattern string `toml:"pattern"`
}

// Load reads TOML configuration from path, filling defaults first.
// A missing file is not an error; defaults are returned.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telegram: TelegramConfig{
			PollTimeout: DefaultPollTimeout,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Digest: DigestConfig{
			Pattern: DefaultDigestPattern,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
