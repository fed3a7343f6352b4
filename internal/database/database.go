package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-portfolio/internal/config"
	"github.com/codyseavey/tcg-portfolio/internal/logging"
)

var (
	DB *gorm.DB

	initOnce sync.Once
	initErr  error
)

// Initialize opens the process-wide pool and migrates the schema. It runs
// once; later calls return the first result.
func Initialize(cfg config.DatabaseConfig, log zerolog.Logger) error {
	initOnce.Do(func() {
		DB, initErr = Open(cfg, log)
	})
	return initErr
}

// GetDB returns the handle opened by Initialize.
func GetDB() *gorm.DB {
	return DB
}

// Close releases the pool opened by Initialize.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open connects to the configured store and runs migrations. Tests use it
// directly to get an isolated handle.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.GormLogger(log, cfg.Debug),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows one writer; a single connection serializes writes
		// instead of surfacing SQLITE_BUSY under concurrent upserts.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info().Str("driver", cfg.Driver).Msg("Database connected successfully")

	if err := Migrate(db, log); err != nil {
		return nil, errors.Join(fmt.Errorf("migration failed: %w", err), closeDB(db))
	}

	log.Info().Msg("Database migration completed")
	return db, nil
}

// Ping checks that the store is reachable.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// sqliteDSN enables foreign keys (required for snapshot cascade), WAL and
// a busy timeout on every connection.
func sqliteDSN(path string) string {
	params := []string{"_foreign_keys=on", "_busy_timeout=5000", "_journal_mode=WAL"}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}
