package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/schema"
	"github.com/noah-isme/sma-records/pkg/config"
)

// bootstrapYearID is the year seeded by the schema for the fixed test clock.
const bootstrapYearID = "2024-2025"

func fixedNow() time.Time {
	return time.Date(2024, time.October, 1, 8, 0, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "records.db"), MaxOpenConns: 1}
	db, err := schema.Open(context.Background(), cfg, schema.Options{Now: fixedNow})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func seedYear(t *testing.T, db *sqlx.DB, id, start string, closed bool) {
	t.Helper()
	_, err := NewAcademicYearRepository(db).Create(context.Background(), &models.AcademicYear{
		ID: id, Name: "Année " + id, StartDate: start, EndDate: start, Closed: closed,
	})
	require.NoError(t, err)
}

func seedStudent(t *testing.T, db *sqlx.DB, id, first, last string) {
	t.Helper()
	_, err := NewStudentRepository(db).Create(context.Background(), &models.Student{ID: id, FirstName: first, LastName: last})
	require.NoError(t, err)
}

func seedClass(t *testing.T, db *sqlx.DB, id, yearID, name string) {
	t.Helper()
	_, err := NewClassRepository(db).Create(context.Background(), &models.Class{ID: id, YearID: yearID, Name: name})
	require.NoError(t, err)
}

func seedTeacher(t *testing.T, db *sqlx.DB, id, first, last string) {
	t.Helper()
	_, err := NewTeacherRepository(db).Create(context.Background(), &models.Teacher{ID: id, FirstName: first, LastName: last})
	require.NoError(t, err)
}

func seedSubject(t *testing.T, db *sqlx.DB, id, yearID, name string) {
	t.Helper()
	_, err := NewGradeRepository(db).CreateSubject(context.Background(), &models.Subject{ID: id, YearID: yearID, Name: name})
	require.NoError(t, err)
}
