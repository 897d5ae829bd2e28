package gorm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/thebtf/peopledb/internal/db"
)

// sqlitePragmas are applied to every pooled connection by the modernc driver.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// minConns keeps one connection free for owner lookups while a cursor is open.
const minConns = 2

// Store represents the GORM database connection.
type Store struct {
	healthCacheTime time.Time
	DB              *gorm.DB
	sqlDB           *sql.DB
	cachedHealth    *db.HealthInfo
	queryCounter    metric.Int64Counter
	healthCacheTTL  time.Duration
	queries         atomic.Int64
	healthCacheMu   sync.RWMutex
}

// Config holds database configuration.
type Config struct {
	Path     string          // SQLite database file (e.g. people.db)
	DSN      string          // PostgreSQL DSN; takes precedence over Path
	MaxConns int             // Maximum number of open connections (default: 4)
	LogLevel logger.LogLevel // GORM log level (logger.Silent for production)
}

func (c Config) dialector() gorm.Dialector {
	if c.DSN != "" {
		return postgres.Open(c.DSN)
	}
	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}
	return sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        c.Path + sep + sqlitePragmas,
	})
}

// NewStore opens the database, verifies the connection and applies pending
// migrations.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		if cfg.Path == "" {
			return nil, fmt.Errorf("open database: empty path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
			return nil, fmt.Errorf("open database: create parent dir: %w", err)
		}
	}

	// 1. Open GORM with the configured dialect
	gdb, err := gorm.Open(cfg.dialector(), &gorm.Config{
		Logger:      logger.Default.LogMode(cfg.LogLevel),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// 2. Get underlying *sql.DB for pool configuration
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	// 3. Configure connection pool
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 4
	}
	if maxConns < minConns {
		maxConns = minConns
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(0)

	// 4. Verify connection
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// 5. Run migrations
	if err := runMigrations(gdb); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{
		DB:             gdb,
		sqlDB:          sqlDB,
		healthCacheTTL: 5 * time.Second,
	}

	// 6. Count read queries from here on; migration lookups are not interesting.
	if err := store.registerQueryCounter(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("register query counter: %w", err)
	}

	log.Debug().
		Str("dialect", gdb.Dialector.Name()).
		Int("max_conns", maxConns).
		Msg("Database opened")

	return store, nil
}

func (s *Store) registerQueryCounter() error {
	counter, err := otel.Meter("github.com/thebtf/peopledb/internal/db/gorm").Int64Counter(
		"peopledb.db.queries",
		metric.WithDescription("Read queries issued through gorm"),
	)
	if err != nil {
		return err
	}
	s.queryCounter = counter

	record := func(tx *gorm.DB) {
		// Sub-queries are rendered with DryRun and never reach the database.
		if tx.DryRun {
			return
		}
		s.queries.Add(1)
		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		s.queryCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("table", tx.Statement.Table)))
	}

	if err := s.DB.Callback().Query().After("gorm:query").Register("peopledb:count_query", record); err != nil {
		return err
	}
	return s.DB.Callback().Row().After("gorm:row").Register("peopledb:count_row", record)
}

// QueryCount returns the number of read queries issued since the store opened.
func (s *Store) QueryCount() int64 {
	return s.queries.Load()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// GetDB returns the GORM DB instance for standard queries.
func (s *Store) GetDB() *gorm.DB {
	return s.DB
}

// Reset deletes every pet and person in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := tx.Delete(&Pet{}).Error; err != nil {
			return fmt.Errorf("delete pets: %w", err)
		}
		if err := tx.Delete(&Person{}).Error; err != nil {
			return fmt.Errorf("delete people: %w", err)
		}
		return nil
	})
}

// HealthCheck reports pool statistics and a probe query latency.
// Results are cached for healthCacheTTL to keep monitoring cheap.
func (s *Store) HealthCheck(ctx context.Context) *db.HealthInfo {
	s.healthCacheMu.RLock()
	if s.cachedHealth != nil && time.Since(s.healthCacheTime) < s.healthCacheTTL {
		cached := s.cachedHealth
		s.healthCacheMu.RUnlock()
		return cached
	}
	s.healthCacheMu.RUnlock()

	info := db.ProbeHealth(ctx, s.sqlDB, s.QueryCount())

	s.healthCacheMu.Lock()
	s.cachedHealth = info
	s.healthCacheTime = time.Now()
	s.healthCacheMu.Unlock()

	return info
}

// translateError maps gorm sentinels onto the db package sentinels.
func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.ErrNotFound
	}
	return err
}
