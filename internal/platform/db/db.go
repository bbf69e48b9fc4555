// Package db opens the SQL entity store and keeps its schema current.
//
// The same schema and statements serve PostgreSQL (pgx stdlib driver) and
// SQLite (modernc driver): placeholders are $N, times are unix millis and
// upserts use ON CONFLICT.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	txctx "cityconnect/pkg/platform/tx"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the selected backend, verifies the connection and applies migrations.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	var (
		sqlDB *sql.DB
		err   error
	)
	switch driver {
	case DriverPostgres:
		sqlDB, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	case DriverSQLite:
		sqlDB, err = openSQLite(dsn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	if err := ApplyMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection serializes transactions in-process.
	sqlDB.SetMaxOpenConns(1)
	return sqlDB, nil
}

// RunInTx executes fn inside a transaction, committing on success and rolling back on error.
// The transaction travels in txCtx; stores join it through tx.QuerierFrom.
func RunInTx(ctx context.Context, sqlDB *sql.DB, fn func(txCtx context.Context) error) (err error) {
	if _, ok := txctx.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(txctx.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ToMillis encodes a timestamp as unix milliseconds in UTC.
func ToMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// FromMillis decodes unix milliseconds into a UTC timestamp.
func FromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// NullString maps an optional string to a nullable column value.
func NullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

// StringPtr maps a nullable column value back to an optional string.
func StringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
