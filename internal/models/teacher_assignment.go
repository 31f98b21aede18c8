package models

// TeacherAssignment records a teacher's class and/or subject within a year.
type TeacherAssignment struct {
	ID        string  `db:"id" json:"id"`
	YearID    string  `db:"year_id" json:"year_id"`
	TeacherID string  `db:"teacher_id" json:"teacher_id"`
	ClassID   *string `db:"class_id" json:"class_id,omitempty"`
	SubjectID *string `db:"subject_id" json:"subject_id,omitempty"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}
