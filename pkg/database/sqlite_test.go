package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/pkg/config"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

func TestNewSQLiteEnforcesForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	db, err := NewSQLite(context.Background(), config.DatabaseConfig{Path: path, MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	require.NoError(t, db.Get(&enabled, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, enabled)

	var mode string
	require.NoError(t, db.Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)
}

func TestNewSQLiteInMemoryUsesOneConnection(t *testing.T) {
	ctx := context.Background()
	db, err := NewSQLite(ctx, config.DatabaseConfig{Path: ":memory:", MaxOpenConns: 4})
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err = db.ExecContext(ctx, "CREATE TABLE notes (id TEXT PRIMARY KEY)")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notes"))
	assert.Equal(t, 0, count)
}

func TestIsInMemory(t *testing.T) {
	assert.True(t, IsInMemory(":memory:"))
	assert.True(t, IsInMemory("file::memory:"))
	assert.False(t, IsInMemory("./data/records.db"))
}

func TestNewSQLiteRequiresPath(t *testing.T) {
	_, err := NewSQLite(context.Background(), config.DatabaseConfig{Path: "  "})
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", DSN("a.db", 0))
	assert.Contains(t, DSN("a.db", 250*time.Millisecond), "busy_timeout(250)")
}

func TestClassifyRealConstraintErrors(t *testing.T) {
	db, err := NewSQLite(context.Background(), config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "c.db"), MaxOpenConns: 1})
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE parents (id TEXT PRIMARY KEY)`)
	db.MustExec(`CREATE TABLE kids (id TEXT PRIMARY KEY, parent_id TEXT REFERENCES parents(id), age INTEGER CHECK (age >= 0))`)
	db.MustExec(`INSERT INTO parents (id) VALUES ('p1')`)

	_, err = db.Exec(`INSERT INTO parents (id) VALUES ('p1')`)
	classified := Classify(err, "duplicate parent")
	assert.True(t, errors.Is(classified, appErrors.ErrDuplicateKey))

	_, err = db.Exec(`INSERT INTO kids (id, parent_id, age) VALUES ('k1', 'missing', 1)`)
	assert.True(t, errors.Is(Classify(err, "orphan"), appErrors.ErrConstraintViolation))

	_, err = db.Exec(`INSERT INTO kids (id, parent_id, age) VALUES ('k2', 'p1', -1)`)
	assert.True(t, errors.Is(Classify(err, "negative"), appErrors.ErrConstraintViolation))
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("disk I/O error")
	assert.Same(t, plain, Classify(plain, "x"))
	assert.Nil(t, Classify(nil, "x"))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", errors.New("UNIQUE constraint failed: students.id"))))
}
