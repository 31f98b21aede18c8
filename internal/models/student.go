package models

// Gender values accepted by the students table.
const (
	GenderMale   = "homme"
	GenderFemale = "femme"
)

// Student is a learner. Identity is global, enrollments tie it to a year.
type Student struct {
	ID            string  `db:"id" json:"id"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	BirthDate     *string `db:"birth_date" json:"birth_date,omitempty"`
	BirthPlace    *string `db:"birth_place" json:"birth_place,omitempty"`
	Gender        *string `db:"gender" json:"gender,omitempty"`
	StudentNumber *string `db:"student_number" json:"student_number,omitempty"`
	CreatedAt     string  `db:"created_at" json:"created_at"`
}

// ClassStudent is a student listed within a class roster.
type ClassStudent struct {
	Student
	EnrollmentDate string           `db:"enrollment_date" json:"enrollment_date"`
	Status         EnrollmentStatus `db:"status" json:"status"`
}

// StudentHistoryEntry is one row of the student_history view.
type StudentHistoryEntry struct {
	StudentID      string           `db:"student_id" json:"student_id"`
	YearID         string           `db:"year_id" json:"year_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	ClassName      string           `db:"class_name" json:"class_name"`
	YearName       string           `db:"year_name" json:"year_name"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate string           `db:"enrollment_date" json:"enrollment_date"`
}
