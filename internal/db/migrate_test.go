package db

import (
	"testing"

	"github.com/shelfmark/shelfmark/internal/config"
)

func TestRunMigrateUnknownCommand(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "shelfmark",
		Password: "secret",
		Database: "shelfmark",
		SSLMode:  "disable",
	}
	err := RunMigrate(nil, cfg, nil, "invalid", nil)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRunMigrateForceRequiresVersion(t *testing.T) {
	err := RunMigrate(nil, config.PostgresConfig{}, nil, "force", nil)
	if err == nil {
		t.Fatal("expected error when force is missing a version argument")
	}
}
