package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/pkg/database"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

const academicYearColumns = `id, name, start_date, end_date, closed, created_at`

var academicYearMutable = columns("name", "start_date", "end_date", "closed")

// AcademicYearRepository manages the partition key table.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs an AcademicYearRepository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// Create inserts a year and returns it as stored.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error) {
	const query = `INSERT INTO academic_years (id, name, start_date, end_date, closed)
        VALUES (:id, :name, :start_date, :end_date, :closed)`
	if err := insertNamed(ctx, r.db, "academic year", query, year); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, year.ID)
}

// FindByID returns the year or nil when absent.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	return getOne[models.AcademicYear](ctx, r.db, "academic year",
		`SELECT `+academicYearColumns+` FROM academic_years WHERE id = ?`, id)
}

// List returns every year, most recent first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	return selectAll[models.AcademicYear](ctx, r.db, "academic years",
		`SELECT `+academicYearColumns+` FROM academic_years ORDER BY start_date DESC`)
}

// Current returns the open year with the latest start date, or nil.
func (r *AcademicYearRepository) Current(ctx context.Context) (*models.AcademicYear, error) {
	return getOne[models.AcademicYear](ctx, r.db, "current academic year",
		`SELECT `+academicYearColumns+` FROM academic_years WHERE closed = 0 ORDER BY start_date DESC LIMIT 1`)
}

// Update applies a partial update.
func (r *AcademicYearRepository) Update(ctx context.Context, id string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "academic_years", academicYearMutable, fields, "id = ?", id)
}

// Close marks a year closed. Closed years stay queryable.
func (r *AcademicYearRepository) Close(ctx context.Context, id string) (bool, error) {
	return r.Update(ctx, id, models.Fields{"closed": true})
}

// Delete removes a year; every partitioned row of that year cascades.
func (r *AcademicYearRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByKey(ctx, r.db, "academic_years", "id = ?", id)
}

// Count returns the number of years.
func (r *AcademicYearRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "academic_years")
}

// CopyConfiguration copies fees per class, extra fees, services and subjects
// from one year into another inside a single transaction. Rows already present
// in the target year are updated in place so references to them survive.
// Fees are only copied for classes that exist in the target year.
func (r *AcademicYearRepository) CopyConfiguration(ctx context.Context, fromYearID, toYearID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin copy configuration: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, target := range []string{fromYearID, toYearID} {
		var exists int
		if err = tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM academic_years WHERE id = ?`, target); err != nil {
			return fmt.Errorf("check academic year %s: %w", target, err)
		}
		if exists == 0 {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("academic year %s not found", target))
		}
	}

	steps := []struct {
		name  string
		query string
		args  []interface{}
	}{
		{"fees per class", `INSERT INTO fees_per_class (year_id, class_id, inscription, mensualite)
        SELECT ?, f.class_id, f.inscription, f.mensualite FROM fees_per_class f
        WHERE f.year_id = ? AND EXISTS (SELECT 1 FROM classes c WHERE c.id = f.class_id AND c.year_id = ?)
        ON CONFLICT (year_id, class_id) DO UPDATE SET inscription = excluded.inscription, mensualite = excluded.mensualite`,
			[]interface{}{toYearID, fromYearID, toYearID}},
		{"extra fees", `INSERT INTO extra_fees (id, year_id, name, amount)
        SELECT id, ?, name, amount FROM extra_fees WHERE year_id = ?
        ON CONFLICT (id, year_id) DO UPDATE SET name = excluded.name, amount = excluded.amount`,
			[]interface{}{toYearID, fromYearID}},
		{"services", `INSERT INTO services (id, year_id, name, amount, periodicity)
        SELECT id, ?, name, amount, periodicity FROM services WHERE year_id = ?
        ON CONFLICT (id, year_id) DO UPDATE SET name = excluded.name, amount = excluded.amount, periodicity = excluded.periodicity`,
			[]interface{}{toYearID, fromYearID}},
		{"subjects", `INSERT INTO subjects (id, year_id, name, coefficient, is_optional, language_type)
        SELECT id, ?, name, coefficient, is_optional, language_type FROM subjects WHERE year_id = ?
        ON CONFLICT (id, year_id) DO UPDATE SET name = excluded.name, coefficient = excluded.coefficient,
            is_optional = excluded.is_optional, language_type = excluded.language_type`,
			[]interface{}{toYearID, fromYearID}},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, step.args...); err != nil {
			return database.Classify(fmt.Errorf("copy %s: %w", step.name, err), "copy "+step.name)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit copy configuration: %w", err)
	}
	return nil
}
