// Package schema provisions the year-partitioned records store: it applies the
// embedded DDL once per file and seeds a bootstrap academic year on an empty
// store.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/schema/migrations"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/database"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

const migrationTable = "schema_migrations"

// Options tune provisioning. Zero values are usable.
type Options struct {
	Now    func() time.Time
	Logger *zap.Logger
	// FS overrides the embedded migrations, used by tests to inject broken DDL.
	FS fs.FS
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.FS == nil {
		o.FS = migrations.FS
	}
	return o
}

// Open returns a provisioned store handle. Calling it again on the same file
// is a no-op apart from opening the connection. Any failure is fatal for the
// caller and is reported as SCHEMA_INIT.
func Open(ctx context.Context, cfg config.DatabaseConfig, opts Options) (*sqlx.DB, error) {
	db, err := database.NewSQLite(ctx, cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSchemaInit.Code, "open records store")
	}
	if err := Provision(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Provision applies pending DDL and seeds the bootstrap year on db.
func Provision(ctx context.Context, db *sqlx.DB, opts Options) error {
	opts = opts.withDefaults()
	applied, err := applyMigrations(ctx, db, opts.FS, opts.Now)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrSchemaInit.Code, "apply schema")
	}
	if len(applied) > 0 {
		opts.Logger.Info("schema applied", zap.Strings("files", applied))
	}

	year, err := ensureBootstrapYear(ctx, db, opts.Now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrSchemaInit.Code, "seed academic year")
	}
	if year != nil {
		opts.Logger.Info("bootstrap academic year created", zap.String("year_id", year.ID))
	}
	return nil
}

// BootstrapYear computes the academic year containing now. Years start on
// September 1st, so before September the year began the previous calendar
// year.
func BootstrapYear(now time.Time) models.AcademicYear {
	start := now.Year()
	if now.Month() < time.September {
		start--
	}
	end := start + 1
	return models.AcademicYear{
		ID:        fmt.Sprintf("%d-%d", start, end),
		Name:      fmt.Sprintf("Année scolaire %d-%d", start, end),
		StartDate: fmt.Sprintf("%d-09-01", start),
		EndDate:   fmt.Sprintf("%d-08-31", end),
	}
}

func ensureBootstrapYear(ctx context.Context, db *sqlx.DB, now time.Time) (*models.AcademicYear, error) {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM academic_years"); err != nil {
		return nil, fmt.Errorf("count academic years: %w", err)
	}
	if count > 0 {
		return nil, nil
	}
	year := BootstrapYear(now)
	const query = `INSERT INTO academic_years (id, name, start_date, end_date, closed) VALUES (?, ?, ?, ?, 0)`
	if _, err := db.ExecContext(ctx, query, year.ID, year.Name, year.StartDate, year.EndDate); err != nil {
		return nil, fmt.Errorf("insert bootstrap year: %w", err)
	}
	return &year, nil
}

func applyMigrations(ctx context.Context, db *sqlx.DB, migrationFS fs.FS, now func() time.Time) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`, migrationTable)
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	var applied []string
	for _, file := range files {
		done, err := isApplied(ctx, db, file)
		if err != nil {
			return nil, fmt.Errorf("check migration %s: %w", file, err)
		}
		if done {
			continue
		}
		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := extractUp(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, upSQL); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT OR IGNORE INTO %s (name, applied_at) VALUES (?, ?)", migrationTable),
			file, now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit migration %s: %w", file, err)
		}
		applied = append(applied, file)
	}
	return applied, nil
}

func isApplied(ctx context.Context, db *sqlx.DB, name string) (bool, error) {
	var found int
	err := db.GetContext(ctx, &found, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func extractUp(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	body := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(body, downMarker); downIdx != -1 {
		return body[:downIdx]
	}
	return body
}
