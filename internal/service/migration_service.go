package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/dto"
	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/legacy"
	applog "github.com/noah-isme/sma-records/pkg/logger"
)

type migrationYearRepository interface {
	Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error)
	Current(ctx context.Context) (*models.AcademicYear, error)
}

type migrationStudentRepository interface {
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
}

type migrationTeacherRepository interface {
	Create(ctx context.Context, teacher *models.Teacher) (*models.Teacher, error)
}

type migrationClassRepository interface {
	Create(ctx context.Context, class *models.Class) (*models.Class, error)
}

type migrationPaymentRepository interface {
	SetFeesPerClass(ctx context.Context, fees *models.FeesPerClass) (*models.FeesPerClass, error)
	CreateExtraFee(ctx context.Context, fee *models.ExtraFee) (*models.ExtraFee, error)
	CreateService(ctx context.Context, svc *models.Service) (*models.Service, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
}

// MigrationRepositories groups the write targets of a migration run.
type MigrationRepositories struct {
	Years    migrationYearRepository
	Students migrationStudentRepository
	Teachers migrationTeacherRepository
	Classes  migrationClassRepository
	Payments migrationPaymentRepository
}

// MigrationService copies the legacy flat store into the relational store.
type MigrationService struct {
	repos     MigrationRepositories
	store     legacy.Store
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	now       func() time.Time
	keepKeys  []string
}

// NewMigrationService constructs MigrationService.
func NewMigrationService(repos MigrationRepositories, store legacy.Store, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *MigrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MigrationService{
		repos:     repos,
		store:     store,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		keepKeys:  legacy.DefaultKeepKeys(),
	}
}

// WithClock overrides the clock used for run timestamps and default dates.
func (s *MigrationService) WithClock(now func() time.Time) *MigrationService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithKeepKeys overrides the keys ClearLegacyStore leaves in place.
func (s *MigrationService) WithKeepKeys(keys []string) *MigrationService {
	if len(keys) > 0 {
		s.keepKeys = keys
	}
	return s
}

// categoryPercent maps completed categories to overall progress.
var categoryPercent = map[string]int{
	models.CategoryAcademicYears: 15,
	models.CategoryStudents:      30,
	models.CategoryTeachers:      40,
	models.CategoryClasses:       50,
	models.CategoryEnrollments:   60,
	models.CategoryFeesPerClass:  70,
	models.CategoryExtraFees:     77,
	models.CategoryServices:      84,
	models.CategoryPayments:      95,
}

var currentYearCategories = []string{
	models.CategoryClasses,
	models.CategoryEnrollments,
	models.CategoryFeesPerClass,
	models.CategoryExtraFees,
	models.CategoryServices,
	models.CategoryPayments,
}

// Migrate imports every category in dependency order. Per-record failures are
// reported in the returned report; the error is reserved for failures that
// make the rest of the run meaningless.
func (s *MigrationService) Migrate(ctx context.Context) (*models.MigrationReport, error) {
	return s.MigrateWithProgress(ctx, nil)
}

// MigrateWithProgress is Migrate with a progress callback.
func (s *MigrationService) MigrateWithProgress(ctx context.Context, progress models.ProgressFunc) (*models.MigrationReport, error) {
	if progress == nil {
		progress = func(models.MigrationStage, int) {}
	}
	run := &migrationRun{
		svc:      s,
		report:   &models.MigrationReport{RunID: uuid.NewString(), StartedAt: s.now().UTC()},
		progress: progress,
		today:    s.now().Format("2006-01-02"),
	}
	logger := s.logger.With(zap.String("run_id", run.report.RunID))
	run.log = logger
	logger.Info("legacy migration started")
	progress(models.StageStarting, 0)

	if err := run.importArray(ctx, models.CategoryAcademicYears, legacy.KeyAcademicYears, models.StageYears, run.importYear); err != nil {
		return run.fail(logger, err)
	}

	current, err := s.repos.Years.Current(ctx)
	if err != nil {
		return run.fail(logger, appErrors.Wrap(err, appErrors.ErrMigrationFailed.Code, "resolve current academic year"))
	}

	if err := run.importArray(ctx, models.CategoryStudents, legacy.KeyStudents, models.StageGlobals, run.importStudent); err != nil {
		return run.fail(logger, err)
	}
	if err := run.importArray(ctx, models.CategoryTeachers, legacy.KeyTeachers, models.StageGlobals, run.importTeacher); err != nil {
		return run.fail(logger, err)
	}

	if current == nil {
		logger.Warn("no current academic year, skipping year-scoped categories")
		for _, category := range currentYearCategories {
			run.report.Categories = append(run.report.Categories, models.CategoryReport{
				Category:   category,
				Skipped:    true,
				SkipReason: "no current academic year",
			})
		}
		return run.finish(logger), nil
	}

	run.yearID = current.ID
	run.report.CurrentYearID = current.ID

	steps := []func(context.Context) error{
		func(ctx context.Context) error {
			return run.importArray(ctx, models.CategoryClasses, legacy.KeyClasses, models.StageCurrentYear, run.importClass)
		},
		run.importEnrollments,
		run.importFees,
		func(ctx context.Context) error {
			key, err := run.yearScopedKey(ctx, legacy.KeyExtraFees)
			if err != nil {
				return err
			}
			return run.importArray(ctx, models.CategoryExtraFees, key, models.StageCurrentYear, run.importExtraFee)
		},
		func(ctx context.Context) error {
			key, err := run.yearScopedKey(ctx, legacy.KeyServices)
			if err != nil {
				return err
			}
			return run.importArray(ctx, models.CategoryServices, key, models.StageCurrentYear, run.importService)
		},
		func(ctx context.Context) error {
			key, err := run.yearScopedKey(ctx, legacy.KeyPayments)
			if err != nil {
				return err
			}
			return run.importArray(ctx, models.CategoryPayments, key, models.StageCurrentYear, run.importPayment)
		},
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return run.fail(logger, err)
		}
	}

	return run.finish(logger), nil
}

// Backup snapshots every legacy key in store order.
func (s *MigrationService) Backup(ctx context.Context) (*models.BackupBundle, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "list legacy keys")
	}
	bundle := &models.BackupBundle{CreatedAt: s.now().UTC(), Entries: make([]models.BackupEntry, 0, len(keys))}
	for _, key := range keys {
		value, ok, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, fmt.Sprintf("read legacy key %s", key))
		}
		if !ok {
			continue
		}
		bundle.Entries = append(bundle.Entries, models.BackupEntry{Key: key, Value: value, Raw: !gjson.Valid(value)})
	}
	return bundle, nil
}

// EncodeBackup renders a bundle as one JSON object in entry order. Parsed
// values are embedded as JSON, raw values as strings.
func EncodeBackup(bundle *models.BackupBundle) ([]byte, error) {
	doc := "{}"
	if bundle == nil {
		return []byte(doc), nil
	}
	var err error
	for _, entry := range bundle.Entries {
		path := legacy.JSONPath(entry.Key)
		if entry.Raw {
			doc, err = sjson.Set(doc, path, entry.Value)
		} else {
			doc, err = sjson.SetRaw(doc, path, entry.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("encode backup key %s: %w", entry.Key, err)
		}
	}
	return []byte(gjson.Get(doc, "@pretty").Raw), nil
}

// ClearLegacyStore removes every legacy key outside the keep list and returns
// the removed keys.
func (s *MigrationService) ClearLegacyStore(ctx context.Context) ([]string, error) {
	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "list legacy keys")
	}
	keep := make(map[string]struct{}, len(s.keepKeys))
	for _, k := range s.keepKeys {
		keep[k] = struct{}{}
	}
	removed := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := keep[key]; ok {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			return removed, appErrors.Wrap(err, appErrors.ErrInternal.Code, fmt.Sprintf("remove legacy key %s", key))
		}
		removed = append(removed, key)
	}
	s.logger.Info("legacy store cleared", zap.Int("removed", len(removed)), zap.Strings("kept", s.keepKeys))
	return removed, nil
}

// migrationRun carries the state of one Migrate call.
type migrationRun struct {
	svc      *MigrationService
	report   *models.MigrationReport
	progress models.ProgressFunc
	log      *zap.Logger
	today    string
	yearID   string
	// studentClasses remembers the class pointer of every legacy student,
	// imported or not, for the enrollment fallback.
	studentClasses []dto.ImportStudent
}

type recordImporter func(ctx context.Context, rec gjson.Result) (string, error)

func (r *migrationRun) fail(logger *zap.Logger, err error) (*models.MigrationReport, error) {
	r.report.FinishedAt = r.svc.now().UTC()
	logger.Error("legacy migration aborted", zap.Error(err))
	return r.report, err
}

func (r *migrationRun) finish(logger *zap.Logger) *models.MigrationReport {
	r.report.FinishedAt = r.svc.now().UTC()
	r.svc.metrics.MarkMigrationFinished(r.report.FinishedAt)
	r.progress(models.StageDone, 100)
	warnings := r.report.Warnings()
	logger.Info("legacy migration finished",
		zap.String("current_year", r.report.CurrentYearID),
		zap.Int("warnings", len(warnings)),
		zap.Duration("elapsed", r.report.FinishedAt.Sub(r.report.StartedAt)),
	)
	return r.report
}

// read fetches a legacy key. Absent keys read as "".
func (r *migrationRun) read(ctx context.Context, key string) (string, error) {
	value, ok, err := r.svc.store.Get(ctx, key)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrMigrationFailed.Code, fmt.Sprintf("read legacy key %s", key))
	}
	if !ok {
		return "", nil
	}
	return value, nil
}

// yearScopedKey prefers base__<current year> and falls back to base when the
// scoped key is absent.
func (r *migrationRun) yearScopedKey(ctx context.Context, base string) (string, error) {
	scoped := legacy.KeyForYear(base, r.yearID)
	_, ok, err := r.svc.store.Get(ctx, scoped)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrMigrationFailed.Code, fmt.Sprintf("read legacy key %s", scoped))
	}
	if ok {
		return scoped, nil
	}
	return base, nil
}

// parseArray reads key and requires a JSON array. An absent or empty key is
// an empty array.
func (r *migrationRun) parseArray(ctx context.Context, key string) ([]gjson.Result, error) {
	raw, err := r.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, nil
	}
	doc := gjson.Parse(raw)
	if !gjson.Valid(raw) || !doc.IsArray() {
		return nil, appErrors.Wrap(fmt.Errorf("legacy key %s is not a JSON array", key), appErrors.ErrMigrationFailed.Code, "malformed legacy category")
	}
	return doc.Array(), nil
}

func (r *migrationRun) importArray(ctx context.Context, category, key string, stage models.MigrationStage, importer recordImporter) error {
	started := time.Now()
	records, err := r.parseArray(ctx, key)
	if err != nil {
		return err
	}
	cat := models.CategoryReport{Category: category, SourceKey: key, Outcomes: make([]models.RecordOutcome, 0, len(records))}
	for i, rec := range records {
		id, err := importer(ctx, rec)
		cat.Outcomes = append(cat.Outcomes, r.outcome(category, i, id, err))
	}
	r.closeCategory(cat, stage, started)
	return nil
}

func (r *migrationRun) closeCategory(cat models.CategoryReport, stage models.MigrationStage, started time.Time) {
	r.report.Categories = append(r.report.Categories, cat)
	r.svc.metrics.ObserveMigrationCategory(cat.Category, time.Since(started))
	applog.Stage(r.log, string(stage)).Debug("migration category imported",
		zap.String("category", cat.Category),
		zap.String("source_key", cat.SourceKey),
		zap.Int("imported", cat.Imported()),
		zap.Int("failed", len(cat.Failed())),
	)
	r.progress(stage, categoryPercent[cat.Category])
}

func (r *migrationRun) outcome(category string, index int, id string, err error) models.RecordOutcome {
	if id == "" {
		id = "#" + strconv.Itoa(index)
	}
	r.svc.metrics.ObserveMigrationRecord(category, err == nil)
	if err != nil {
		r.svc.logger.Warn("legacy record not migrated", zap.String("category", category), zap.String("id", id), zap.Error(err))
		return models.RecordOutcome{ID: id, OK: false, Reason: err.Error()}
	}
	return models.RecordOutcome{ID: id, OK: true}
}

func (r *migrationRun) validate(v interface{}) error {
	if err := r.svc.validator.Struct(v); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}
	return nil
}

func (r *migrationRun) importYear(ctx context.Context, rec gjson.Result) (string, error) {
	year := dto.DecodeYear(rec)
	if err := r.validate(year); err != nil {
		return year.ID, err
	}
	_, err := r.svc.repos.Years.Create(ctx, year.Model())
	return year.ID, err
}

func (r *migrationRun) importStudent(ctx context.Context, rec gjson.Result) (string, error) {
	student := dto.DecodeStudent(rec)
	if student.ClassID != "" {
		r.studentClasses = append(r.studentClasses, student)
	}
	if err := r.validate(student); err != nil {
		return student.ID, err
	}
	_, err := r.svc.repos.Students.Create(ctx, student.Model())
	return student.ID, err
}

func (r *migrationRun) importTeacher(ctx context.Context, rec gjson.Result) (string, error) {
	teacher := dto.DecodeTeacher(rec)
	if err := r.validate(teacher); err != nil {
		return teacher.ID, err
	}
	_, err := r.svc.repos.Teachers.Create(ctx, teacher.Model())
	return teacher.ID, err
}

func (r *migrationRun) importClass(ctx context.Context, rec gjson.Result) (string, error) {
	class := dto.DecodeClass(rec, r.yearID)
	if err := r.validate(class); err != nil {
		return class.ID, err
	}
	_, err := r.svc.repos.Classes.Create(ctx, class.Model())
	return class.ID, err
}

func (r *migrationRun) enroll(ctx context.Context, e dto.ImportEnrollment) (string, error) {
	if err := r.validate(e); err != nil {
		return e.ID, err
	}
	_, err := r.svc.repos.Students.Enroll(ctx, e.Model())
	return e.ID, err
}

// importEnrollments uses enrollments__<year> when it holds entries and
// otherwise derives enrollments from the students' class pointer.
func (r *migrationRun) importEnrollments(ctx context.Context) error {
	started := time.Now()
	key := legacy.KeyForYear(legacy.KeyEnrollments, r.yearID)
	records, err := r.parseArray(ctx, key)
	if err != nil {
		return err
	}
	cat := models.CategoryReport{Category: models.CategoryEnrollments, SourceKey: key}
	if len(records) > 0 {
		for i, rec := range records {
			id, err := r.enroll(ctx, dto.DecodeEnrollment(rec, r.yearID, r.today))
			cat.Outcomes = append(cat.Outcomes, r.outcome(cat.Category, i, id, err))
		}
	} else {
		cat.SourceKey = legacy.KeyStudents
		for i, student := range r.studentClasses {
			id, err := r.enroll(ctx, dto.EnrollmentFromStudentClass(student, r.yearID, r.today))
			cat.Outcomes = append(cat.Outcomes, r.outcome(cat.Category, i, id, err))
		}
	}
	r.closeCategory(cat, models.StageCurrentYear, started)
	return nil
}

// importFees reads the classId → {inscription, mensualite} object.
func (r *migrationRun) importFees(ctx context.Context) error {
	started := time.Now()
	key, err := r.yearScopedKey(ctx, legacy.KeyStudentFees)
	if err != nil {
		return err
	}
	raw, err := r.read(ctx, key)
	if err != nil {
		return err
	}
	cat := models.CategoryReport{Category: models.CategoryFeesPerClass, SourceKey: key}
	if raw != "" {
		doc := gjson.Parse(raw)
		if !gjson.Valid(raw) || !doc.IsObject() {
			return appErrors.Wrap(fmt.Errorf("legacy key %s is not a JSON object", key), appErrors.ErrMigrationFailed.Code, "malformed legacy category")
		}
		i := 0
		doc.ForEach(func(classID, value gjson.Result) bool {
			fees := dto.DecodeFees(classID.String(), value, r.yearID)
			var err error
			if err = r.validate(fees); err == nil {
				_, err = r.svc.repos.Payments.SetFeesPerClass(ctx, fees.Model())
			}
			cat.Outcomes = append(cat.Outcomes, r.outcome(cat.Category, i, fees.ClassID, err))
			i++
			return true
		})
	}
	r.closeCategory(cat, models.StageCurrentYear, started)
	return nil
}

func (r *migrationRun) importExtraFee(ctx context.Context, rec gjson.Result) (string, error) {
	item := dto.DecodeItem(rec, r.yearID)
	if err := r.validate(item); err != nil {
		return item.ID, err
	}
	_, err := r.svc.repos.Payments.CreateExtraFee(ctx, item.ExtraFee())
	return item.ID, err
}

func (r *migrationRun) importService(ctx context.Context, rec gjson.Result) (string, error) {
	item := dto.DecodeItem(rec, r.yearID)
	item.Periodicity = models.PeriodicityMonthly
	if err := r.validate(item); err != nil {
		return item.ID, err
	}
	_, err := r.svc.repos.Payments.CreateService(ctx, item.Service())
	return item.ID, err
}

func (r *migrationRun) importPayment(ctx context.Context, rec gjson.Result) (string, error) {
	payment := dto.DecodePayment(rec, r.yearID, r.today)
	if err := r.validate(payment); err != nil {
		return payment.ID, err
	}
	_, err := r.svc.repos.Payments.CreatePayment(ctx, payment.Model())
	return payment.ID, err
}
