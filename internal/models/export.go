package models

import "time"

// ExportFormat selects the export renderer.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatCSV  ExportFormat = "csv"
)

// Export section names in document order.
const (
	SectionAcademicYears = "academic_years"
	SectionStudents      = "students"
	SectionTeachers      = "teachers"
	SectionGuardians     = "guardians"
	SectionClasses       = "classes"
	SectionSubjects      = "subjects"
	SectionEnrollments   = "enrollments"
	SectionFeesPerClass  = "fees_per_class"
	SectionExtraFees     = "extra_fees"
	SectionServices      = "services"
	SectionPayments      = "payments"
)

// ExportResult describes the files written by one export.
type ExportResult struct {
	Format      ExportFormat `json:"format"`
	YearID      string       `json:"year_id,omitempty"`
	Files       []string     `json:"files"`
	Sections    []string     `json:"sections"`
	GeneratedAt time.Time    `json:"generated_at"`
}
