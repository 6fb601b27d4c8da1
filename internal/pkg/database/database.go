package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/msntech/reports-api/internal/config"
)

// Supported backend drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Open establishes a pooled connection to the configured backend and
// verifies it with a ping. An unreachable target or bad credentials fail
// fast so the service refuses to start without durable storage.
func Open(cfg *config.Config) (*sqlx.DB, error) {
	driver, dsn := cfg.DBDriver, cfg.DBDSN

	var db *sqlx.DB
	var err error
	switch driver {
	case DriverMySQL:
		// parseTime makes DATETIME/TIMESTAMP columns scan into time.Time.
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		db, err = sqlx.Open("mysql", dsn)
	case DriverSQLite:
		db, err = sqlx.Open("sqlite3", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	log.Info().Str("driver", driver).Msg("Connected to database")
	return db, nil
}

// Close closes the database connection
func Close(db *sqlx.DB) {
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		} else {
			log.Info().Msg("Database connection closed")
		}
	}
}
