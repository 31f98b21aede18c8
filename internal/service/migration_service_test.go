package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/legacy"
)

func legacyFixture(t *testing.T) [][2]string {
	t.Helper()
	return [][2]string{
		{"academicYears", `[
			{"id":"2023-2024","nom":"2023/2024","debut":"2023-09-01","fin":"2024-08-31","closed":true},
			{"id":"2024-2025","nom":"2024/2025","debut":"2024-09-01","fin":"2025-08-31"}
		]`},
		{"students", `[
			{"id":"1","firstName":"Awa","lastName":"Diallo","classId":"c1"},
			{"id":"2","prenom":"Ali","nom":"Sow","gender":"x"},
			{"id":"3","firstName":"Moussa","lastName":"Ba"}
		]`},
		{"teachers", `[{"id":"t1","firstName":"Fatou","lastName":"Ndiaye"}]`},
		{"classes", `[{"id":"c1","nom":"CM2"}]`},
		{"studentFees", `{"c1":{"inscription":50,"mensualite":20},"ghost":{"inscription":1,"mensualite":1}}`},
		{"studentsExtraFees__2024-2025", `[{"id":"e1","nom":"Tenue","montant":15}]`},
		{"studentsServices", `[{"id":"s1","name":"Cantine","amount":10}]`},
		{"studentPayments__2024-2025", `[
			{"id":"p1","studentId":"1","type":"inscription","classeId":"c1","amount":50,"date":"2024-09-05T10:00:00Z"},
			{"id":"p2","studentId":"99","type":"mensualite","amount":20}
		]`},
		{"sidebarHidden", "true"},
		{"activeYearId", "2024-2025"},
	}
}

func TestMigrationImportsAllCategories(t *testing.T) {
	repos := newTestRepos(t)
	store := seedLegacy(t, legacyFixture(t))
	metrics := NewMetricsService()
	svc := NewMigrationService(repos.migration(), store, metrics, nil, nil).WithClock(fixedNow)
	ctx := context.Background()

	var stages []models.MigrationStage
	var percents []int
	report, err := svc.MigrateWithProgress(ctx, func(stage models.MigrationStage, percent int) {
		stages = append(stages, stage)
		percents = append(percents, percent)
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2024-2025", report.CurrentYearID)

	names := make([]string, 0, len(report.Categories))
	for _, c := range report.Categories {
		names = append(names, c.Category)
	}
	assert.Equal(t, []string{
		models.CategoryAcademicYears, models.CategoryStudents, models.CategoryTeachers,
		models.CategoryClasses, models.CategoryEnrollments, models.CategoryFeesPerClass,
		models.CategoryExtraFees, models.CategoryServices, models.CategoryPayments,
	}, names)

	years := report.Category(models.CategoryAcademicYears)
	assert.Equal(t, 1, years.Imported())
	require.Len(t, years.Failed(), 1)
	assert.Equal(t, "2024-2025", years.Failed()[0].ID)

	students := report.Category(models.CategoryStudents)
	assert.Equal(t, 2, students.Imported())
	require.Len(t, students.Failed(), 1)
	assert.Equal(t, "2", students.Failed()[0].ID)
	assert.Contains(t, students.Failed()[0].Reason, "validation failed")

	enrollments := report.Category(models.CategoryEnrollments)
	assert.Equal(t, "students", enrollments.SourceKey)
	assert.Equal(t, 1, enrollments.Imported())
	enrollment, err := repos.students.FindEnrollment(ctx, "1-2024-2025", "2024-2025")
	require.NoError(t, err)
	require.NotNil(t, enrollment)
	assert.Equal(t, "c1", enrollment.ClassID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, "2024-10-01", enrollment.EnrollmentDate)

	fees := report.Category(models.CategoryFeesPerClass)
	assert.Equal(t, "studentFees", fees.SourceKey)
	assert.Equal(t, 1, fees.Imported())
	require.Len(t, fees.Failed(), 1)
	assert.Equal(t, "ghost", fees.Failed()[0].ID)

	assert.Equal(t, "studentsExtraFees__2024-2025", report.Category(models.CategoryExtraFees).SourceKey)
	svcRow, err := repos.payments.FindService(ctx, "s1", "2024-2025")
	require.NoError(t, err)
	require.NotNil(t, svcRow)
	assert.Equal(t, models.PeriodicityMonthly, svcRow.Periodicity)

	payments := report.Category(models.CategoryPayments)
	assert.Equal(t, 1, payments.Imported())
	require.Len(t, payments.Failed(), 1)
	assert.Equal(t, "p2", payments.Failed()[0].ID)
	p1, err := repos.payments.FindPayment(ctx, "p1", "2024-2025")
	require.NoError(t, err)
	require.NotNil(t, p1)
	assert.Equal(t, "2024-09-05", p1.PaymentDate)
	require.NotNil(t, p1.ClassID)
	assert.Equal(t, "c1", *p1.ClassID)

	teacher, err := repos.teachers.FindByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, teacher)
	assert.Equal(t, models.TeacherPaymentFixed, teacher.PaymentType)

	assert.Len(t, report.Warnings(), 4)
	assert.Equal(t, models.StageStarting, stages[0])
	assert.Equal(t, models.StageDone, stages[len(stages)-1])
	assert.IsNonDecreasing(t, percents)

	assert.Equal(t, 8.0, testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryStudents, "imported"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryTeachers, "imported"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryPayments, "imported"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryPayments, "failed"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryStudents, "failed"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryClasses, "imported"))+
		testutil.ToFloat64(metrics.migrationRecords.WithLabelValues(models.CategoryEnrollments, "imported")))
	assert.Equal(t, uint64(4), metrics.Snapshot().RecordsFailed)
}

func TestMigrationPrefersYearScopedEnrollments(t *testing.T) {
	repos := newTestRepos(t)
	store := seedLegacy(t, [][2]string{
		{"students", `[{"id":"1","firstName":"Awa","lastName":"Diallo","classId":"c1"}]`},
		{"classes", `[{"id":"c1","name":"CM1"},{"id":"c2","name":"CM2"}]`},
		{"enrollments__2024-2025", `[{"studentId":"1","classId":"c2","status":"transferred","date":"2024-09-03T07:00:00Z"}]`},
	})
	svc := NewMigrationService(repos.migration(), store, nil, nil, nil).WithClock(fixedNow)

	report, err := svc.Migrate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "enrollments__2024-2025", report.Category(models.CategoryEnrollments).SourceKey)

	e, err := repos.students.FindEnrollmentForStudent(context.Background(), "1", "2024-2025")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "c2", e.ClassID)
	assert.Equal(t, models.EnrollmentStatusTransferred, e.Status)
	assert.Equal(t, "2024-09-03", e.EnrollmentDate)
}

func TestMigrationEnrollsStudentsAlreadyPresent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	_, err := repos.students.Create(ctx, &models.Student{ID: "1", FirstName: "Awa", LastName: "Diallo"})
	require.NoError(t, err)
	store := seedLegacy(t, [][2]string{
		{"students", `[
			{"id":"1","firstName":"Awa","lastName":"Diallo","classId":"c1"},
			{"id":"2","firstName":"Ali","lastName":"Sow","classId":"c1"}
		]`},
		{"classes", `[{"id":"c1","name":"CM1"}]`},
	})
	svc := NewMigrationService(repos.migration(), store, nil, nil, nil).WithClock(fixedNow)

	report, err := svc.Migrate(ctx)
	require.NoError(t, err)
	students := report.Category(models.CategoryStudents)
	assert.Equal(t, 1, students.Imported())
	require.Len(t, students.Failed(), 1)
	assert.Equal(t, "1", students.Failed()[0].ID)

	enrollments := report.Category(models.CategoryEnrollments)
	assert.Equal(t, 2, enrollments.Imported())
	for _, id := range []string{"1", "2"} {
		e, err := repos.students.FindEnrollmentForStudent(ctx, id, "2024-2025")
		require.NoError(t, err)
		require.NotNil(t, e, "student %s", id)
		assert.Equal(t, "c1", e.ClassID)
	}

	again, err := svc.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Category(models.CategoryEnrollments).Imported())
}

func TestMigrationLogsCategoriesByStage(t *testing.T) {
	repos := newTestRepos(t)
	store := seedLegacy(t, cleanLegacyFixture())
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewMigrationService(repos.migration(), store, nil, nil, zap.New(core)).WithClock(fixedNow)

	_, err := svc.Migrate(context.Background())
	require.NoError(t, err)

	stages := map[string]string{}
	for _, entry := range logs.FilterMessage("migration category imported").All() {
		ctx := entry.ContextMap()
		stages[ctx["category"].(string)] = ctx["stage"].(string)
	}
	assert.Equal(t, string(models.StageYears), stages[models.CategoryAcademicYears])
	assert.Equal(t, string(models.StageGlobals), stages[models.CategoryStudents])
	assert.Equal(t, string(models.StageCurrentYear), stages[models.CategoryPayments])
}

func TestMigrationSkipsYearScopedCategoriesWithoutCurrentYear(t *testing.T) {
	repos := newTestRepos(t)
	_, err := repos.years.Close(context.Background(), "2024-2025")
	require.NoError(t, err)

	store := seedLegacy(t, [][2]string{
		{"students", `[{"id":"1","firstName":"Awa","lastName":"Diallo","classId":"c1"}]`},
		{"classes", `[{"id":"c1","name":"CM1"}]`},
	})
	svc := NewMigrationService(repos.migration(), store, nil, nil, nil).WithClock(fixedNow)

	report, err := svc.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.CurrentYearID)
	assert.Equal(t, 1, report.Category(models.CategoryStudents).Imported())
	for _, name := range []string{models.CategoryClasses, models.CategoryEnrollments, models.CategoryPayments} {
		c := report.Category(name)
		require.NotNil(t, c, name)
		assert.True(t, c.Skipped, name)
		assert.Empty(t, c.Failed(), name)
	}
}

func TestMigrationAbortsOnMalformedCategory(t *testing.T) {
	repos := newTestRepos(t)
	store := seedLegacy(t, [][2]string{
		{"students", `{"id":"1"}`},
	})
	svc := NewMigrationService(repos.migration(), store, nil, nil, nil)

	report, err := svc.Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMigrationFailed))
	require.NotNil(t, report)
	assert.Nil(t, report.Category(models.CategoryTeachers))
}

func TestMigrationAbortsWhenLegacyStoreFails(t *testing.T) {
	repos := newTestRepos(t)
	svc := NewMigrationService(repos.migration(), brokenStore{err: errLegacyDown}, nil, nil, nil)

	_, err := svc.Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMigrationFailed))
	assert.ErrorIs(t, err, errLegacyDown)
}

type failingYearRepo struct {
	migrationYearRepository
}

func (failingYearRepo) Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error) {
	return year, nil
}

func (failingYearRepo) Current(ctx context.Context) (*models.AcademicYear, error) {
	return nil, errors.New("database is locked")
}

func TestMigrationAbortsWhenCurrentYearUnresolvable(t *testing.T) {
	repos := newTestRepos(t)
	mr := repos.migration()
	mr.Years = failingYearRepo{}
	svc := NewMigrationService(mr, seedLegacy(t, nil), nil, nil, nil)

	_, err := svc.Migrate(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMigrationFailed))
	assert.Contains(t, err.Error(), "resolve current academic year")
}

func TestBackupKeepsOrderAndRawValues(t *testing.T) {
	store := seedLegacy(t, [][2]string{
		{"students", `[{"id":"1"}]`},
		{"activeYearId", "2024-2025"},
		{"sidebarHidden", "true"},
		{":1", "draft"},
	})
	svc := NewMigrationService(MigrationRepositories{}, store, nil, nil, nil).WithClock(fixedNow)

	bundle, err := svc.Backup(context.Background())
	require.NoError(t, err)
	require.Len(t, bundle.Entries, 4)
	assert.Equal(t, "students", bundle.Entries[0].Key)
	assert.False(t, bundle.Entries[0].Raw)
	assert.True(t, bundle.Entries[1].Raw)
	assert.False(t, bundle.Entries[2].Raw)

	encoded, err := EncodeBackup(bundle)
	require.NoError(t, err)
	doc := gjson.ParseBytes(encoded)
	var keys []string
	doc.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	assert.Equal(t, []string{"students", "activeYearId", "sidebarHidden", ":1"}, keys)
	assert.Equal(t, "draft", doc.Get(legacy.JSONPath(":1")).String())
	assert.Equal(t, "2024-2025", doc.Get("activeYearId").String())
	assert.True(t, doc.Get("sidebarHidden").Bool())
	assert.Equal(t, "1", doc.Get("students.0.id").String())
}

func TestBackupPropagatesStoreErrors(t *testing.T) {
	svc := NewMigrationService(MigrationRepositories{}, brokenStore{err: errLegacyDown}, nil, nil, nil)
	_, err := svc.Backup(context.Background())
	assert.ErrorIs(t, err, errLegacyDown)
}

func TestClearLegacyStoreKeepsAllowList(t *testing.T) {
	store := seedLegacy(t, legacyFixture(t))
	svc := NewMigrationService(MigrationRepositories{}, store, nil, nil, nil)
	ctx := context.Background()

	removed, err := svc.ClearLegacyStore(ctx)
	require.NoError(t, err)
	assert.Len(t, removed, 8)

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sidebarHidden", "activeYearId"}, keys)
}

func TestClearLegacyStoreCustomKeepKeys(t *testing.T) {
	store := seedLegacy(t, [][2]string{{"a", "1"}, {"b", "2"}})
	svc := NewMigrationService(MigrationRepositories{}, store, nil, nil, nil).WithKeepKeys([]string{"b"})

	removed, err := svc.ClearLegacyStore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, removed)
}
