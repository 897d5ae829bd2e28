// Package gorm provides the GORM-backed implementation of the peopledb stores.
//
// The store opens a local SQLite file through the pure-Go modernc driver, or a
// PostgreSQL database when a DSN is configured, and keeps the schema current
// with gormigrate on open.
//
//	store, err := gorm.NewStore(gorm.Config{
//	    Path:     "people.db",
//	    MaxConns: 4,
//	    LogLevel: logger.Silent,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	repo := gorm.NewRepository(store)
//
// Record types live in models.go and are converted to pkg/models at the store
// boundary, so callers never see gorm tags.
package gorm
