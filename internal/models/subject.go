package models

// Term values shared by grade items and subject enrollments.
const (
	TermFirst  = "premier"
	TermSecond = "deuxieme"
)

// Language tracks for optional language subjects.
const (
	LanguageLV1 = "LV1"
	LanguageLV2 = "LV2"
)

// Subject is a taught discipline configured per year.
type Subject struct {
	ID           string  `db:"id" json:"id"`
	YearID       string  `db:"year_id" json:"year_id"`
	Name         string  `db:"name" json:"name"`
	Coefficient  float64 `db:"coefficient" json:"coefficient"`
	IsOptional   bool    `db:"is_optional" json:"is_optional"`
	LanguageType *string `db:"language_type" json:"language_type,omitempty"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}

// SubjectEnrollment registers a student for an optional subject in a semester.
type SubjectEnrollment struct {
	StudentID string `db:"student_id" json:"student_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	YearID    string `db:"year_id" json:"year_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	Semester  string `db:"semester" json:"semester"`
	CreatedAt string `db:"created_at" json:"created_at"`
}
