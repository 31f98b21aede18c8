package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/dto"
	"github.com/noah-isme/sma-records/internal/models"
	"github.com/noah-isme/sma-records/internal/repository"
	"github.com/noah-isme/sma-records/internal/schema"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/legacy"
	applog "github.com/noah-isme/sma-records/pkg/logger"
)

type fallbackYearRepository interface {
	Current(ctx context.Context) (*models.AcademicYear, error)
	List(ctx context.Context) ([]models.AcademicYear, error)
	Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error)
}

type fallbackStudentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	Update(ctx context.Context, id string, fields models.Fields) (bool, error)
	Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error)
	ListEnrollmentsByYear(ctx context.Context, yearID string) ([]models.Enrollment, error)
	History(ctx context.Context, studentID string) ([]models.StudentHistoryEntry, error)
}

type idSequencer interface {
	Next(ctx context.Context, entity, yearID string) (string, error)
}

// Adapter operation names, used as metric labels.
const (
	opListStudents    = "list_students"
	opGetStudent      = "get_student"
	opUpsertStudent   = "upsert_student"
	opAddStudent      = "add_student"
	opListEnrollments = "list_enrollments"
	opEnrollStudent   = "enroll_student"
	opStudentHistory  = "student_history"
	opListYears       = "list_years"
	opActiveYearID    = "active_year_id"
	opSetActiveYear   = "set_active_year"
	opAddYear         = "add_year"
)

// errNoCurrentYear sends a relational attempt to the legacy store when no
// year was given and none is open.
var errNoCurrentYear = errors.New("no current academic year")

// FallbackService serves the legacy-shaped read and write paths. Every call
// probes the relational store first and degrades to the legacy flat store
// when the probe or the relational operation fails. Degraded writes are
// never copied back.
type FallbackService struct {
	years     fallbackYearRepository
	students  fallbackStudentRepository
	ids       idSequencer
	store     legacy.Store
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewFallbackService constructs FallbackService.
func NewFallbackService(years fallbackYearRepository, students fallbackStudentRepository, store legacy.Store, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *FallbackService {
	if validate == nil {
		validate = validator.New()
	}
	return &FallbackService{
		years:     years,
		students:  students,
		store:     store,
		metrics:   metrics,
		validator: validate,
		logger:    applog.Stage(logger, "fallback"),
		now:       time.Now,
	}
}

// WithClock overrides the clock used for default dates.
func (s *FallbackService) WithClock(now func() time.Time) *FallbackService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithSequencer sets the id generator AddStudent requires.
func (s *FallbackService) WithSequencer(ids idSequencer) *FallbackService {
	s.ids = ids
	return s
}

// IsHealthy reports whether the relational store answers the probe.
func (s *FallbackService) IsHealthy(ctx context.Context) bool {
	_, ok := s.probe(ctx)
	return ok
}

func (s *FallbackService) probe(ctx context.Context) (*models.AcademicYear, bool) {
	if s.years == nil {
		return nil, false
	}
	current, err := s.years.Current(ctx)
	if err != nil {
		s.metrics.ObserveProbeFailure()
		s.logger.Warn("records store health probe failed", zap.Error(err))
		return nil, false
	}
	return current, true
}

// route runs relational against the probed store and legacy otherwise.
func (s *FallbackService) route(ctx context.Context, op string, relational func(current *models.AcademicYear) error, fallback func() error) error {
	if current, ok := s.probe(ctx); ok {
		err := relational(current)
		if err == nil {
			s.metrics.ObserveFallback(op, storeRelational)
			return nil
		}
		if !errors.Is(err, errNoCurrentYear) {
			s.logger.Warn("relational operation failed, using legacy store", zap.String("operation", op), zap.Error(err))
		}
	}
	s.metrics.ObserveFallback(op, storeLegacy)
	if err := fallback(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, fmt.Sprintf("%s on legacy store", op))
	}
	return nil
}

func (s *FallbackService) today() string {
	return s.now().Format("2006-01-02")
}

// ListStudents returns every student in the legacy shape.
func (s *FallbackService) ListStudents(ctx context.Context) ([]dto.LegacyStudent, error) {
	var out []dto.LegacyStudent
	err := s.route(ctx, opListStudents, func(*models.AcademicYear) error {
		students, err := s.students.List(ctx)
		if err != nil {
			return err
		}
		out = make([]dto.LegacyStudent, 0, len(students))
		for _, st := range students {
			out = append(out, dto.StudentToLegacy(st))
		}
		return nil
	}, func() error {
		out = nil
		return s.readJSON(ctx, legacy.KeyStudents, &out)
	})
	if out == nil && err == nil {
		out = []dto.LegacyStudent{}
	}
	return out, err
}

// GetStudent returns one student or nil.
func (s *FallbackService) GetStudent(ctx context.Context, id string) (*dto.LegacyStudent, error) {
	var out *dto.LegacyStudent
	err := s.route(ctx, opGetStudent, func(*models.AcademicYear) error {
		st, err := s.students.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if st != nil {
			converted := dto.StudentToLegacy(*st)
			out = &converted
		}
		return nil
	}, func() error {
		out = nil
		var all []dto.LegacyStudent
		if err := s.readJSON(ctx, legacy.KeyStudents, &all); err != nil {
			return err
		}
		for i := range all {
			if all[i].ID == id {
				out = &all[i]
				break
			}
		}
		return nil
	})
	return out, err
}

// UpsertStudent updates the student when it exists and creates it otherwise.
// On the legacy store the given fields are merged over the stored record.
func (s *FallbackService) UpsertStudent(ctx context.Context, student dto.LegacyStudent) error {
	if err := s.validator.Struct(student); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}
	return s.route(ctx, opUpsertStudent, func(*models.AcademicYear) error {
		existing, err := s.students.FindByID(ctx, student.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			_, err = s.students.Update(ctx, student.ID, dto.StudentUpdate(student))
			return err
		}
		created := dto.StudentFromLegacy(student)
		_, err = s.students.Create(ctx, &created)
		return err
	}, func() error {
		patch, err := json.Marshal(student)
		if err != nil {
			return err
		}
		return s.upsertInArray(ctx, legacy.KeyStudents, "id", student.ID, string(patch), true)
	})
}

// AddStudent creates a student under the next numeric id of whichever store
// serves the call and returns the stored record.
func (s *FallbackService) AddStudent(ctx context.Context, student dto.LegacyStudent) (*dto.LegacyStudent, error) {
	if student.ID != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new students get a generated id")
	}
	if err := s.validator.StructExcept(student, "ID"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}
	if s.ids == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no id sequencer configured")
	}
	err := s.route(ctx, opAddStudent, func(*models.AcademicYear) error {
		id, err := s.ids.Next(ctx, repository.SeqStudents, "")
		if err != nil {
			return err
		}
		student.ID = id
		created := dto.StudentFromLegacy(student)
		_, err = s.students.Create(ctx, &created)
		return err
	}, func() error {
		id, err := s.nextLegacyID(ctx, legacy.KeyStudents)
		if err != nil {
			return err
		}
		student.ID = id
		entry, err := json.Marshal(student)
		if err != nil {
			return err
		}
		return s.upsertInArray(ctx, legacy.KeyStudents, "id", id, string(entry), false)
	})
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// ListEnrollments lists the enrollments of yearID, or of the active year when
// yearID is empty.
func (s *FallbackService) ListEnrollments(ctx context.Context, yearID string) ([]dto.LegacyEnrollment, error) {
	var out []dto.LegacyEnrollment
	err := s.route(ctx, opListEnrollments, func(current *models.AcademicYear) error {
		year := yearID
		if year == "" && current != nil {
			year = current.ID
		}
		if year == "" {
			return errNoCurrentYear
		}
		rows, err := s.students.ListEnrollmentsByYear(ctx, year)
		if err != nil {
			return err
		}
		out = make([]dto.LegacyEnrollment, 0, len(rows))
		for _, e := range rows {
			out = append(out, dto.EnrollmentToLegacy(e))
		}
		return nil
	}, func() error {
		out = nil
		year, err := s.legacyYear(ctx, yearID)
		if err != nil {
			return err
		}
		return s.readJSON(ctx, legacy.KeyForYear(legacy.KeyEnrollments, year), &out)
	})
	if out == nil && err == nil {
		out = []dto.LegacyEnrollment{}
	}
	return out, err
}

// EnrollStudent places studentID in classID for yearID, or for the active
// year when yearID is empty, replacing any enrollment the student had that
// year.
func (s *FallbackService) EnrollStudent(ctx context.Context, studentID, classID, yearID string) error {
	req := dto.LegacyEnrollment{StudentID: studentID, ClassID: classID, YearID: yearID}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Message)
	}
	return s.route(ctx, opEnrollStudent, func(current *models.AcademicYear) error {
		year := yearID
		if year == "" && current != nil {
			year = current.ID
		}
		if year == "" {
			return errNoCurrentYear
		}
		_, err := s.students.Enroll(ctx, &models.Enrollment{
			ID:             models.EnrollmentID(studentID, year),
			StudentID:      studentID,
			ClassID:        classID,
			YearID:         year,
			Status:         models.EnrollmentStatusActive,
			EnrollmentDate: s.today(),
		})
		return err
	}, func() error {
		year, err := s.legacyYear(ctx, yearID)
		if err != nil {
			return err
		}
		entry, err := json.Marshal(dto.LegacyEnrollment{
			StudentID: studentID,
			YearID:    year,
			ClassID:   classID,
			Status:    string(models.EnrollmentStatusActive),
			Date:      s.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return s.upsertInArray(ctx, legacy.KeyForYear(legacy.KeyEnrollments, year), "studentId", studentID, string(entry), false)
	})
}

// StudentHistory lists a student's enrollments across years.
func (s *FallbackService) StudentHistory(ctx context.Context, studentID string) ([]models.StudentHistoryEntry, error) {
	var out []models.StudentHistoryEntry
	err := s.route(ctx, opStudentHistory, func(*models.AcademicYear) error {
		var err error
		out, err = s.students.History(ctx, studentID)
		return err
	}, func() error {
		out = nil
		var years []dto.LegacyYear
		if err := s.readJSON(ctx, legacy.KeyAcademicYears, &years); err != nil {
			return err
		}
		for _, y := range years {
			var enrollments []dto.LegacyEnrollment
			if err := s.readJSON(ctx, legacy.KeyForYear(legacy.KeyEnrollments, y.ID), &enrollments); err != nil {
				return err
			}
			for _, e := range enrollments {
				if e.StudentID != studentID {
					continue
				}
				status := e.Status
				if status == "" {
					status = string(models.EnrollmentStatusActive)
				}
				out = append(out, models.StudentHistoryEntry{
					StudentID:      studentID,
					YearID:         y.ID,
					ClassID:        e.ClassID,
					YearName:       y.Nom,
					Status:         models.EnrollmentStatus(status),
					EnrollmentDate: e.Date,
				})
				break
			}
		}
		return nil
	})
	if out == nil && err == nil {
		out = []models.StudentHistoryEntry{}
	}
	return out, err
}

// ListYears returns every academic year in the legacy shape.
func (s *FallbackService) ListYears(ctx context.Context) ([]dto.LegacyYear, error) {
	var out []dto.LegacyYear
	err := s.route(ctx, opListYears, func(*models.AcademicYear) error {
		years, err := s.years.List(ctx)
		if err != nil {
			return err
		}
		out = make([]dto.LegacyYear, 0, len(years))
		for _, y := range years {
			out = append(out, dto.YearToLegacy(y))
		}
		return nil
	}, func() error {
		out = nil
		return s.readJSON(ctx, legacy.KeyAcademicYears, &out)
	})
	if out == nil && err == nil {
		out = []dto.LegacyYear{}
	}
	return out, err
}

// ActiveYearID returns the current year when the relational store has one and
// the UI pointer kept in the legacy store otherwise.
func (s *FallbackService) ActiveYearID(ctx context.Context) (string, error) {
	var id string
	err := s.route(ctx, opActiveYearID, func(current *models.AcademicYear) error {
		if current == nil {
			return errNoCurrentYear
		}
		id = current.ID
		return nil
	}, func() error {
		var err error
		id, err = s.legacyYear(ctx, "")
		return err
	})
	return id, err
}

// SetActiveYear records the UI's selected year. The pointer always lives in
// the legacy store.
func (s *FallbackService) SetActiveYear(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "year id is required")
	}
	s.metrics.ObserveFallback(opSetActiveYear, storeLegacy)
	if err := s.store.Set(ctx, legacy.KeyActiveYearID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, "set active year")
	}
	return nil
}

// AddYear creates a year, filling missing fields with the year containing
// today, and makes it the active year.
func (s *FallbackService) AddYear(ctx context.Context, input *dto.LegacyYear) (*dto.LegacyYear, error) {
	year := dto.YearToLegacy(schema.BootstrapYear(s.now()))
	if input != nil {
		if input.ID != "" {
			year.ID = input.ID
		}
		if input.Nom != "" {
			year.Nom = input.Nom
		}
		if input.Debut != "" {
			year.Debut = input.Debut
		}
		if input.Fin != "" {
			year.Fin = input.Fin
		}
		year.Closed = input.Closed
	}

	var out dto.LegacyYear
	err := s.route(ctx, opAddYear, func(*models.AcademicYear) error {
		model := dto.YearFromLegacy(year)
		created, err := s.years.Create(ctx, &model)
		if err != nil {
			return err
		}
		out = dto.YearToLegacy(*created)
		return nil
	}, func() error {
		out = year
		var years []dto.LegacyYear
		if err := s.readJSON(ctx, legacy.KeyAcademicYears, &years); err != nil {
			return err
		}
		for _, y := range years {
			if y.ID == year.ID {
				return nil
			}
		}
		entry, err := json.Marshal(year)
		if err != nil {
			return err
		}
		return s.upsertInArray(ctx, legacy.KeyAcademicYears, "id", year.ID, string(entry), false)
	})
	if err != nil {
		return nil, err
	}
	if err := s.SetActiveYear(ctx, out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnsureDefaultYear guarantees at least one year exists and that the active
// year points at a known year. It returns the first listed year.
func (s *FallbackService) EnsureDefaultYear(ctx context.Context) (*dto.LegacyYear, error) {
	years, err := s.ListYears(ctx)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		return s.AddYear(ctx, nil)
	}
	active, err := s.ActiveYearID(ctx)
	if err != nil {
		return nil, err
	}
	known := false
	for _, y := range years {
		if y.ID == active {
			known = true
			break
		}
	}
	if !known {
		if err := s.SetActiveYear(ctx, years[0].ID); err != nil {
			return nil, err
		}
	}
	first := years[0]
	return &first, nil
}

// KeyForYear derives base__<year>, using the active year when yearID is empty.
func (s *FallbackService) KeyForYear(ctx context.Context, base, yearID string) (string, error) {
	if yearID == "" {
		active, err := s.ActiveYearID(ctx)
		if err != nil {
			return "", err
		}
		yearID = active
	}
	return legacy.KeyForYear(base, yearID), nil
}

// legacyYear resolves yearID against the legacy active year pointer.
func (s *FallbackService) legacyYear(ctx context.Context, yearID string) (string, error) {
	if yearID != "" {
		return yearID, nil
	}
	active, ok, err := s.store.Get(ctx, legacy.KeyActiveYearID)
	if err != nil {
		return "", err
	}
	if !ok || active == "" {
		return legacy.DefaultActiveYearID, nil
	}
	return active, nil
}

// readJSON decodes key into dst. Absent or blank keys leave dst untouched.
func (s *FallbackService) readJSON(ctx context.Context, key string, dst interface{}) error {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("decode legacy key %s: %w", key, err)
	}
	return nil
}

// nextLegacyID applies the sequencer rule to the array under key: the largest
// all-digit id of at most repository.MaxSequenceDigits digits, plus one.
func (s *FallbackService) nextLegacyID(ctx context.Context, key string) (string, error) {
	doc, _, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	var highest int64
	gjson.Parse(doc).ForEach(func(_, el gjson.Result) bool {
		id := el.Get("id").String()
		if !isDigits(id) || len(id) > repository.MaxSequenceDigits {
			return true
		}
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > highest {
			highest = n
		}
		return true
	})
	return strconv.FormatInt(highest+1, 10), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// upsertInArray writes entry into the JSON array under key, matching elements
// on field == id. With merge, entry's members are laid over the stored
// element so fields this service does not know about survive; otherwise the
// element is replaced. Unmatched entries are appended.
func (s *FallbackService) upsertInArray(ctx context.Context, key, field, id, entry string, merge bool) error {
	doc, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok || doc == "" {
		doc = "[]"
	}
	if !gjson.Parse(doc).IsArray() {
		return fmt.Errorf("legacy key %s is not a JSON array", key)
	}

	index := -1
	for i, el := range gjson.Parse(doc).Array() {
		if el.Get(legacy.JSONPath(field)).String() == id {
			index = i
			break
		}
	}

	switch {
	case index < 0:
		doc, err = sjson.SetRaw(doc, "-1", entry)
	case merge:
		gjson.Parse(entry).ForEach(func(k, v gjson.Result) bool {
			doc, err = sjson.SetRaw(doc, fmt.Sprintf("%d.%s", index, legacy.JSONPath(k.String())), v.Raw)
			return err == nil
		})
	default:
		doc, err = sjson.SetRaw(doc, fmt.Sprintf("%d", index), entry)
	}
	if err != nil {
		return fmt.Errorf("update legacy key %s: %w", key, err)
	}
	return s.store.Set(ctx, key, doc)
}
