// Package storage opens the db.Store selected by configuration.
package storage

import (
	"fmt"
	"strings"

	"gorm.io/gorm/logger"

	"github.com/thebtf/peopledb/internal/config"
	"github.com/thebtf/peopledb/internal/db"
	"github.com/thebtf/peopledb/internal/db/gorm"
	"github.com/thebtf/peopledb/internal/db/sqlite"
)

// Open connects to the configured backend and brings its schema up to date.
// The caller owns the returned store and must Close it.
func Open(cfg *config.Config) (db.Store, error) {
	switch cfg.Backend {
	case config.BackendSQL:
		store, err := sqlite.NewStore(sqlite.StoreConfig{
			Path:     cfg.DBPath,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return store, nil

	case config.BackendGorm, "":
		store, err := OpenGorm(cfg)
		if err != nil {
			return nil, err
		}
		return gorm.NewRepository(store), nil

	default:
		return nil, fmt.Errorf("open database: unknown backend %q", cfg.Backend)
	}
}

// OpenGorm opens the gorm store directly, for callers that need migration
// control.
func OpenGorm(cfg *config.Config) (*gorm.Store, error) {
	store, err := gorm.NewStore(gorm.Config{
		Path:     cfg.DBPath,
		DSN:      cfg.DSN,
		MaxConns: cfg.MaxConns,
		LogLevel: GormLogLevel(cfg.GormLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

// GormLogLevel maps a config string onto gorm's logger levels. Unknown
// values fall back to silent.
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	default:
		return logger.Silent
	}
}
