package database

import (
	"fmt"
	"path/filepath"

	"mbackup-go/internal/config"
)

// HistoryFileName is the database file created under data_dir.
const HistoryFileName = "history.db"

// NewHistoryFromConfig creates a run history store based on the database config type.
func NewHistoryFromConfig(cfg config.DatabaseConfig) (*SQLiteHistory, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		return NewSQLiteHistory(filepath.Join(cfg.DataDir, HistoryFileName))
	case "memory":
		return NewSQLiteHistory(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
