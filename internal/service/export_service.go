package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
	"github.com/noah-isme/sma-records/pkg/export"
)

type exportYearReader interface {
	List(ctx context.Context) ([]models.AcademicYear, error)
	Current(ctx context.Context) (*models.AcademicYear, error)
}

type exportStudentReader interface {
	List(ctx context.Context) ([]models.Student, error)
	ListEnrollmentsByYear(ctx context.Context, yearID string) ([]models.Enrollment, error)
}

type exportTeacherReader interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type exportGuardianReader interface {
	List(ctx context.Context) ([]models.Guardian, error)
}

type exportClassReader interface {
	ListByYear(ctx context.Context, yearID string) ([]models.Class, error)
}

type exportSubjectReader interface {
	ListSubjects(ctx context.Context, yearID string) ([]models.Subject, error)
}

type exportPaymentReader interface {
	ListFeesPerClass(ctx context.Context, yearID string) ([]models.FeesPerClass, error)
	ListExtraFees(ctx context.Context, yearID string) ([]models.ExtraFee, error)
	ListServices(ctx context.Context, yearID string) ([]models.Service, error)
	ListPaymentsByYear(ctx context.Context, yearID string) ([]models.Payment, error)
}

// ExportSources groups the repositories an export reads.
type ExportSources struct {
	Years     exportYearReader
	Students  exportStudentReader
	Teachers  exportTeacherReader
	Guardians exportGuardianReader
	Classes   exportClassReader
	Subjects  exportSubjectReader
	Payments  exportPaymentReader
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
}

type csvRenderer interface {
	RenderSections(sections []export.Section) (map[string][]byte, error)
}

type pdfRenderer interface {
	Render(sections []export.Section, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(sections []export.Section) ([]byte, error)
}

// ExportService dumps the relational store and persists rendered files.
type ExportService struct {
	sources       ExportSources
	storage       fileStorage
	csv           csvRenderer
	pdf           pdfRenderer
	xlsx          xlsxRenderer
	defaultFormat models.ExportFormat
	logger        *zap.Logger
	now           func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get the
// package defaults.
func NewExportService(sources ExportSources, storage fileStorage, defaultFormat models.ExportFormat, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	if defaultFormat == "" {
		defaultFormat = models.ExportFormatJSON
	}
	return &ExportService{
		sources:       sources,
		storage:       storage,
		csv:           csv,
		pdf:           pdf,
		xlsx:          xlsx,
		defaultFormat: defaultFormat,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the clock used for file names.
func (s *ExportService) WithClock(now func() time.Time) *ExportService {
	if now != nil {
		s.now = now
	}
	return s
}

type sectionDef struct {
	name       string
	headers    []string
	yearScoped bool
	load       func(ctx context.Context, src ExportSources, yearID string) (interface{}, error)
}

var exportSections = []sectionDef{
	{
		name:    models.SectionAcademicYears,
		headers: []string{"id", "name", "start_date", "end_date", "closed", "created_at"},
		load: func(ctx context.Context, src ExportSources, _ string) (interface{}, error) {
			return src.Years.List(ctx)
		},
	},
	{
		name:    models.SectionStudents,
		headers: []string{"id", "first_name", "last_name", "birth_date", "birth_place", "gender", "student_number", "created_at"},
		load: func(ctx context.Context, src ExportSources, _ string) (interface{}, error) {
			return src.Students.List(ctx)
		},
	},
	{
		name: models.SectionTeachers,
		headers: []string{"id", "first_name", "last_name", "email", "phone", "subject", "hire_date", "payment_type", "salary",
			"hourly_rate", "residence", "contact_type", "years_experience", "nationality", "emergency_contact", "emergency_phone", "created_at"},
		load: func(ctx context.Context, src ExportSources, _ string) (interface{}, error) {
			return src.Teachers.List(ctx)
		},
	},
	{
		name:    models.SectionGuardians,
		headers: []string{"id", "first_name", "last_name", "phone", "email", "relationship", "address", "created_at"},
		load: func(ctx context.Context, src ExportSources, _ string) (interface{}, error) {
			return src.Guardians.List(ctx)
		},
	},
	{
		name:       models.SectionClasses,
		headers:    []string{"id", "year_id", "name", "level", "description", "capacity", "main_teacher_id", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Classes.ListByYear(ctx, yearID)
		},
	},
	{
		name:       models.SectionSubjects,
		headers:    []string{"id", "year_id", "name", "coefficient", "is_optional", "language_type", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Subjects.ListSubjects(ctx, yearID)
		},
	},
	{
		name:       models.SectionEnrollments,
		headers:    []string{"id", "student_id", "class_id", "year_id", "status", "enrollment_date", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Students.ListEnrollmentsByYear(ctx, yearID)
		},
	},
	{
		name:       models.SectionFeesPerClass,
		headers:    []string{"year_id", "class_id", "inscription", "mensualite", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Payments.ListFeesPerClass(ctx, yearID)
		},
	},
	{
		name:       models.SectionExtraFees,
		headers:    []string{"id", "year_id", "name", "amount", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Payments.ListExtraFees(ctx, yearID)
		},
	},
	{
		name:       models.SectionServices,
		headers:    []string{"id", "year_id", "name", "amount", "periodicity", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Payments.ListServices(ctx, yearID)
		},
	},
	{
		name:       models.SectionPayments,
		headers:    []string{"id", "year_id", "student_id", "type", "class_id", "month", "item_id", "method", "amount", "payment_date", "created_at"},
		yearScoped: true,
		load: func(ctx context.Context, src ExportSources, yearID string) (interface{}, error) {
			return src.Payments.ListPaymentsByYear(ctx, yearID)
		},
	},
}

type collectedSection struct {
	def sectionDef
	raw string
}

// collect loads every section. Year-scoped sections are left out when no
// year is open.
func (s *ExportService) collect(ctx context.Context) ([]collectedSection, string, error) {
	current, err := s.sources.Years.Current(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, "resolve current academic year")
	}
	yearID := ""
	if current != nil {
		yearID = current.ID
	}

	out := make([]collectedSection, 0, len(exportSections))
	for _, def := range exportSections {
		if def.yearScoped && yearID == "" {
			continue
		}
		rows, err := def.load(ctx, s.sources, yearID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, fmt.Sprintf("export %s", def.name))
		}
		raw, err := json.Marshal(rows)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s: %w", def.name, err)
		}
		if string(raw) == "null" {
			raw = []byte("[]")
		}
		out = append(out, collectedSection{def: def, raw: string(raw)})
	}
	return out, yearID, nil
}

// Document returns the export as one JSON object with sections in document
// order, and the year the scoped sections belong to.
func (s *ExportService) Document(ctx context.Context) ([]byte, string, error) {
	sections, yearID, err := s.collect(ctx)
	if err != nil {
		return nil, "", err
	}
	doc, err := encodeSections(sections)
	if err != nil {
		return nil, "", err
	}
	return doc, yearID, nil
}

func encodeSections(sections []collectedSection) ([]byte, error) {
	doc := "{}"
	var err error
	for _, section := range sections {
		doc, err = sjson.SetRaw(doc, section.def.name, section.raw)
		if err != nil {
			return nil, fmt.Errorf("encode section %s: %w", section.def.name, err)
		}
	}
	return []byte(gjson.Get(doc, "@pretty").Raw), nil
}

// Generate renders the export in format (the configured default when empty)
// and saves it. CSV produces one file per section under a common directory.
func (s *ExportService) Generate(ctx context.Context, format models.ExportFormat) (*models.ExportResult, error) {
	if format == "" {
		format = s.defaultFormat
	}
	format = models.ExportFormat(strings.ToLower(string(format)))

	sections, yearID, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	result := &models.ExportResult{Format: format, YearID: yearID, GeneratedAt: s.now().UTC()}
	for _, section := range sections {
		result.Sections = append(result.Sections, section.def.name)
	}
	base := s.buildBasename(yearID)

	save := func(name string, payload []byte) error {
		path, err := s.storage.Save(name, payload)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, "save export")
		}
		result.Files = append(result.Files, path)
		return nil
	}

	switch format {
	case models.ExportFormatJSON:
		payload, err := encodeSections(sections)
		if err != nil {
			return nil, err
		}
		err = save(base+".json", payload)
		if err != nil {
			return nil, err
		}
	case models.ExportFormatXLSX:
		payload, err := s.xlsx.Render(tabular(sections))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "render xlsx export")
		}
		if err := save(base+".xlsx", payload); err != nil {
			return nil, err
		}
	case models.ExportFormatPDF:
		title := "Export"
		if yearID != "" {
			title = fmt.Sprintf("Export %s", yearID)
		}
		payload, err := s.pdf.Render(tabular(sections), title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "render pdf export")
		}
		if err := save(base+".pdf", payload); err != nil {
			return nil, err
		}
	case models.ExportFormatCSV:
		files, err := s.csv.RenderSections(tabular(sections))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, "render csv export")
		}
		for _, section := range sections {
			name := section.def.name + ".csv"
			if err := save(base+"/"+name, files[name]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	s.logger.Info("export generated",
		zap.String("format", string(format)),
		zap.String("year_id", yearID),
		zap.Strings("files", result.Files),
	)
	return result, nil
}

func tabular(sections []collectedSection) []export.Section {
	out := make([]export.Section, 0, len(sections))
	for _, section := range sections {
		out = append(out, export.Section{
			Name: section.def.name,
			Data: export.DatasetFromJSON(section.raw, section.def.headers),
		})
	}
	return out
}

func (s *ExportService) buildBasename(yearID string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("records_%s_%s", sanitizeFilename(yearID), timestamp)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
