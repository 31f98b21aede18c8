package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/dto"
	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

type recordsYearRepository interface {
	Current(ctx context.Context) (*models.AcademicYear, error)
	Count(ctx context.Context) (int, error)
	Close(ctx context.Context, id string) (bool, error)
	CopyConfiguration(ctx context.Context, fromYearID, toYearID string) error
}

type entityCounter interface {
	Count(ctx context.Context) (int, error)
}

type classCounter interface {
	CountByYear(ctx context.Context, yearID string) (int, error)
}

type retentionStorage interface {
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// RecordsOptions tunes RecordsService.
type RecordsOptions struct {
	// KeepLegacy skips clearing the legacy store after a successful
	// migration. The pre-migration backup is the recovery path either way.
	KeepLegacy      bool
	MetricsPath     string
	ExportRetention time.Duration
}

// RecordsDeps groups the collaborators of RecordsService.
type RecordsDeps struct {
	Years     recordsYearRepository
	Students  entityCounter
	Teachers  entityCounter
	Classes   classCounter
	Migration *MigrationService
	Fallback  *FallbackService
	Exports   *ExportService
	Backups   fileStorage
	Retention retentionStorage
	Metrics   *MetricsService
}

// MigrationOutcome is delivered by MigrateAsync.
type MigrationOutcome struct {
	Report *models.MigrationReport
	Err    error
}

// RecordsService is the single entry point presentation code talks to.
// Every error it returns is an *appErrors.Error.
type RecordsService struct {
	deps   RecordsDeps
	opts   RecordsOptions
	logger *zap.Logger
	now    func() time.Time
}

// NewRecordsService constructs a RecordsService.
func NewRecordsService(deps RecordsDeps, opts RecordsOptions, logger *zap.Logger) *RecordsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsService{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// WithClock overrides the clock used for backup names.
func (s *RecordsService) WithClock(now func() time.Time) *RecordsService {
	if now != nil {
		s.now = now
	}
	return s
}

// IsHealthy reports whether the relational store answers.
func (s *RecordsService) IsHealthy(ctx context.Context) bool {
	return s.deps.Fallback.IsHealthy(ctx)
}

// Status counts the main entities. Class counts cover the current year only.
func (s *RecordsService) Status(ctx context.Context) (*models.StoreStatus, error) {
	status := &models.StoreStatus{}
	current, err := s.deps.Years.Current(ctx)
	if err != nil {
		s.logger.Warn("status probe failed", zap.Error(err))
		return status, nil
	}
	status.Healthy = true
	status.CurrentYear = current

	counts := []struct {
		name string
		dst  *int
		fn   func(context.Context) (int, error)
	}{
		{"students", &status.Students, s.deps.Students.Count},
		{"teachers", &status.Teachers, s.deps.Teachers.Count},
		{"academic years", &status.AcademicYears, s.deps.Years.Count},
	}
	for _, c := range counts {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "count "+c.name)
		}
		*c.dst = n
	}
	if current != nil {
		n, err := s.deps.Classes.CountByYear(ctx, current.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "count classes")
		}
		status.Classes = n
	}
	return status, nil
}

// Backup snapshots the legacy store to a JSON file and returns its path.
func (s *RecordsService) Backup(ctx context.Context) (string, error) {
	bundle, err := s.deps.Migration.Backup(ctx)
	if err != nil {
		return "", appErrors.FromError(err)
	}
	payload, err := EncodeBackup(bundle)
	if err != nil {
		return "", appErrors.FromError(err)
	}
	name := fmt.Sprintf("legacy_backup_%s.json", s.now().UTC().Format("20060102_150405"))
	path, err := s.deps.Backups.Save(name, payload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "save legacy backup")
	}
	s.logger.Info("legacy store backed up", zap.String("path", path), zap.Int("keys", len(bundle.Entries)))
	return path, nil
}

// Migrate backs up the legacy store, imports it, and optionally purges it.
func (s *RecordsService) Migrate(ctx context.Context) (*models.MigrationReport, error) {
	return s.MigrateWithProgress(ctx, nil)
}

// MigrateWithProgress is Migrate with a progress callback. StageDone is
// reported last, after the optional purge.
func (s *RecordsService) MigrateWithProgress(ctx context.Context, progress models.ProgressFunc) (*models.MigrationReport, error) {
	if progress == nil {
		progress = func(models.MigrationStage, int) {}
	}
	if _, err := s.Backup(ctx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMigrationFailed.Code, "backup legacy store before migration")
	}

	defer s.writeMetrics()

	report, err := s.deps.Migration.MigrateWithProgress(ctx, func(stage models.MigrationStage, percent int) {
		if stage != models.StageDone {
			progress(stage, percent)
		}
	})
	if err != nil {
		return report, appErrors.FromError(err)
	}

	if !s.opts.KeepLegacy {
		if warnings := report.Warnings(); len(warnings) > 0 {
			s.logger.Warn("purging legacy store despite record failures", zap.Int("warnings", len(warnings)))
		}
		progress(models.StagePurging, 97)
		if _, err := s.ClearLegacyStore(ctx); err != nil {
			return report, err
		}
	}
	progress(models.StageDone, 100)
	return report, nil
}

// MigrateAsync runs Migrate on its own goroutine and delivers exactly one
// outcome. Cancelling ctx after the call does not stop the run.
func (s *RecordsService) MigrateAsync(ctx context.Context, progress models.ProgressFunc) <-chan MigrationOutcome {
	out := make(chan MigrationOutcome, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(out)
		report, err := s.MigrateWithProgress(detached, progress)
		out <- MigrationOutcome{Report: report, Err: err}
	}()
	return out
}

// Export renders the relational store in format.
func (s *RecordsService) Export(ctx context.Context, format models.ExportFormat) (*models.ExportResult, error) {
	result, err := s.deps.Exports.Generate(ctx, format)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return result, nil
}

// PruneExports removes exports older than the configured retention.
func (s *RecordsService) PruneExports() ([]string, error) {
	if s.deps.Retention == nil || s.opts.ExportRetention <= 0 {
		return nil, nil
	}
	deleted, err := s.deps.Retention.CleanupOlderThan(s.opts.ExportRetention)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "prune exports")
	}
	if len(deleted) > 0 {
		s.logger.Info("old exports pruned", zap.Int("files", len(deleted)))
	}
	return deleted, nil
}

// ClearLegacyStore removes every legacy key outside the keep list.
func (s *RecordsService) ClearLegacyStore(ctx context.Context) ([]string, error) {
	removed, err := s.deps.Migration.ClearLegacyStore(ctx)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	return removed, nil
}

// AddStudent creates a student with a generated id on whichever store answers.
func (s *RecordsService) AddStudent(ctx context.Context, student dto.LegacyStudent) (*dto.LegacyStudent, error) {
	created, err := s.deps.Fallback.AddStudent(ctx, student)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	s.logger.Info("student added", zap.String("id", created.ID))
	return created, nil
}

// CopyYear copies fees, extra fees, services and subjects between years.
func (s *RecordsService) CopyYear(ctx context.Context, fromYearID, toYearID string) error {
	if fromYearID == "" || toYearID == "" || fromYearID == toYearID {
		return appErrors.Clone(appErrors.ErrValidation, "source and target years must be distinct and non-empty")
	}
	if err := s.deps.Years.CopyConfiguration(ctx, fromYearID, toYearID); err != nil {
		return appErrors.FromError(err)
	}
	s.logger.Info("year configuration copied", zap.String("from", fromYearID), zap.String("to", toYearID))
	return nil
}

// CloseYear marks a year closed.
func (s *RecordsService) CloseYear(ctx context.Context, id string) error {
	ok, err := s.deps.Years.Close(ctx, id)
	if err != nil {
		return appErrors.FromError(err)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("academic year %s not found", id))
	}
	return nil
}

func (s *RecordsService) writeMetrics() {
	if err := s.deps.Metrics.WriteTextfile(s.opts.MetricsPath); err != nil {
		s.logger.Warn("write metrics textfile", zap.Error(err))
	}
}
