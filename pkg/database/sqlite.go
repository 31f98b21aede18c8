package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/noah-isme/sma-records/pkg/config"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// NewSQLite opens the embedded records file with foreign keys enforced and
// WAL journaling enabled on every pooled connection.
func NewSQLite(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	memory := IsInMemory(path)
	if !memory {
		path = filepath.Clean(path)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open(DriverName, DSN(path, cfg.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	switch {
	case memory:
		// Every connection to an in-memory database gets its own empty copy.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		db.SetConnMaxIdleTime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return db, nil
}

// IsInMemory reports whether path names a private in-memory database.
func IsInMemory(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}

// DSN builds the modernc connection string for path.
func DSN(path string, busyTimeout time.Duration) string {
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		path, busyTimeout.Milliseconds())
}

// Classify maps SQLite constraint failures onto the typed store errors.
// Anything else is returned unchanged.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	switch {
	case IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, message)
	case IsConstraintViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, message)
	default:
		return err
	}
}

// IsUniqueViolation reports primary key or unique index collisions.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// IsConstraintViolation reports CHECK, NOT NULL and foreign key failures.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT,
			sqlite3lib.SQLITE_CONSTRAINT_CHECK,
			sqlite3lib.SQLITE_CONSTRAINT_NOTNULL,
			sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY,
			sqlite3lib.SQLITE_CONSTRAINT_TRIGGER:
			return true
		}
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "constraint failed")
}
