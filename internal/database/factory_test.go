package database

import (
	"os"
	"path/filepath"
	"testing"

	"mbackup-go/internal/config"
)

func TestNewHistoryFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite database", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "lib")
		got, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if got.Path() != filepath.Join(dataDir, HistoryFileName) {
			t.Errorf("Path() = %q", got.Path())
		}
		if _, err := os.Stat(got.Path()); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("sqlite without data dir", func(t *testing.T) {
		if _, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "sqlite"}); err == nil {
			t.Error("NewHistoryFromConfig() expected error")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewHistoryFromConfig(config.DatabaseConfig{Type: "postgres"}); err == nil {
			t.Error("NewHistoryFromConfig() expected error")
		}
	})
}
