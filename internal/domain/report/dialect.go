package report

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/msntech/reports-api/internal/pkg/database"
)

// dialect isolates the per-backend DDL and catalog introspection. The two
// implementations differ only here; every query path is shared.
type dialect interface {
	CreateReportsTable() string
	HasColumn(ctx context.Context, db *sqlx.DB, table, column string) (bool, error)
	AddColumn(table, column, definition string) string
}

func dialectFor(driver string) dialect {
	if driver == database.DriverMySQL {
		return mysqlDialect{}
	}
	return sqliteDialect{}
}

type mysqlDialect struct{}

func (mysqlDialect) CreateReportsTable() string {
	return `
		CREATE TABLE IF NOT EXISTS bug_reports (
			id INT AUTO_INCREMENT PRIMARY KEY,
			player_name TEXT NOT NULL,
			player_uuid TEXT NOT NULL,
			description TEXT NOT NULL,
			world TEXT NOT NULL,
			x DOUBLE NOT NULL,
			y DOUBLE NOT NULL,
			z DOUBLE NOT NULL,
			ip_address TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			health DOUBLE NOT NULL,
			level INT NOT NULL,
			inventory LONGTEXT NOT NULL,
			comments LONGTEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
			handler VARCHAR(64),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
}

func (mysqlDialect) HasColumn(ctx context.Context, db *sqlx.DB, table, column string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ? AND column_name = ?
	`, table, column)
	return count > 0, err
}

func (mysqlDialect) AddColumn(table, column, definition string) string {
	return "ALTER TABLE " + table + " ADD COLUMN " + column + " " + definition
}

type sqliteDialect struct{}

func (sqliteDialect) CreateReportsTable() string {
	return `
		CREATE TABLE IF NOT EXISTS bug_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_name TEXT NOT NULL,
			player_uuid TEXT NOT NULL,
			description TEXT NOT NULL,
			world TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			ip_address TEXT NOT NULL,
			game_mode TEXT NOT NULL,
			health REAL NOT NULL,
			level INTEGER NOT NULL,
			inventory TEXT NOT NULL,
			comments TEXT,
			status TEXT NOT NULL DEFAULT 'OPEN',
			handler TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
}

func (sqliteDialect) HasColumn(ctx context.Context, db *sqlx.DB, table, column string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
	return count > 0, err
}

func (sqliteDialect) AddColumn(table, column, definition string) string {
	return "ALTER TABLE " + table + " ADD COLUMN " + column + " " + definition
}
