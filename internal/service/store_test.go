package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/internal/schema"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/legacy"
)

func fixedNow() time.Time {
	return time.Date(2024, time.October, 1, 8, 0, 0, 0, time.UTC)
}

type testRepos struct {
	db        *sqlx.DB
	years     *repository.AcademicYearRepository
	students  *repository.StudentRepository
	teachers  *repository.TeacherRepository
	classes   *repository.ClassRepository
	payments  *repository.PaymentRepository
	guardians *repository.GuardianRepository
	grades    *repository.GradeRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "records.db"), MaxOpenConns: 1}
	db, err := schema.Open(context.Background(), cfg, schema.Options{Now: fixedNow})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return testRepos{
		db:        db,
		years:     repository.NewAcademicYearRepository(db),
		students:  repository.NewStudentRepository(db),
		teachers:  repository.NewTeacherRepository(db),
		classes:   repository.NewClassRepository(db),
		payments:  repository.NewPaymentRepository(db),
		guardians: repository.NewGuardianRepository(db),
		grades:    repository.NewGradeRepository(db),
	}
}

func (r testRepos) migration() MigrationRepositories {
	return MigrationRepositories{Years: r.years, Students: r.students, Teachers: r.teachers, Classes: r.classes, Payments: r.payments}
}

func (r testRepos) export() ExportSources {
	return ExportSources{Years: r.years, Students: r.students, Teachers: r.teachers, Guardians: r.guardians,
		Classes: r.classes, Subjects: r.grades, Payments: r.payments}
}

func seedLegacy(t *testing.T, values [][2]string) *legacy.MemoryStore {
	t.Helper()
	store := legacy.NewMemoryStore()
	for _, kv := range values {
		require.NoError(t, store.Set(context.Background(), kv[0], kv[1]))
	}
	return store
}

// brokenStore fails every call with err.
type brokenStore struct{ err error }

func (b brokenStore) Keys(context.Context) ([]string, error) { return nil, b.err }
func (b brokenStore) Get(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b brokenStore) Set(context.Context, string, string) error { return b.err }
func (b brokenStore) Remove(context.Context, string) error { return b.err }
func (b brokenStore) Close() error { return nil }

var errLegacyDown = errors.New("legacy backend down")
