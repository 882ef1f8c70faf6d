package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Server.Addr != DefaultHTTPAddr {
		t.Errorf("Server.Addr = %q, want %q", cfg.Server.Addr, DefaultHTTPAddr)
	}
	if cfg.Telegram.PollTimeout != DefaultPollTimeout {
		t.Errorf("Telegram.PollTimeout = %d, want %d", cfg.Telegram.PollTimeout, DefaultPollTimeout)
	}
	if cfg.Auth.JWTExpiresIn != DefaultJWTExpiresIn {
		t.Errorf("Auth.JWTExpiresIn = %q, want %q", cfg.Auth.JWTExpiresIn, DefaultJWTExpiresIn)
	}
	if cfg.Digest.Pattern != DefaultDigestPattern {
		t.Errorf("Digest.Pattern = %q, want %q", cfg.Digest.Pattern, DefaultDigestPattern)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"
format = "json"

[telegram]
bot_token = "123:abc"
bot_username = "shelfmark_bot"
poll_timeout = 10

[postgres]
host = "db.internal"
port = 5433

[digest]
enabled = true
pattern = "30 7 * * *"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Telegram.BotToken != "123:abc" || cfg.Telegram.PollTimeout != 10 {
		t.Errorf("unexpected telegram config: %+v", cfg.Telegram)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 {
		t.Errorf("unexpected postgres config: %+v", cfg.Postgres)
	}
	// untouched sections keep their defaults
	if cfg.Postgres.SSLMode != DefaultPGSSLMode {
		t.Errorf("Postgres.SSLMode = %q, want %q", cfg.Postgres.SSLMode, DefaultPGSSLMode)
	}
	if !cfg.Digest.Enabled || cfg.Digest.Pattern != "30 7 * * *" {
		t.Errorf("unexpected digest config: %+v", cfg.Digest)
	}
}
