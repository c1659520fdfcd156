package database

import (
	"fmt"

	"github.com/JossMR/VersionsControlRepository/internal/config"
)

// NewStoreFromConfig creates the account store selected by the database config type.
func NewStoreFromConfig(cfg *config.Config) (*SQLiteStore, error) {
	switch cfg.Database.Type {
	case "sqlite":
		path := cfg.DatabasePath()
		if path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		return NewSQLiteStore(path)
	case "memory":
		return NewSQLiteStore(MemoryPath)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Database.Type)
	}
}
