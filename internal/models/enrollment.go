package models

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "active"
	EnrollmentStatusTransferred EnrollmentStatus = "transferred"
	EnrollmentStatusGraduated   EnrollmentStatus = "graduated"
	EnrollmentStatusLeft        EnrollmentStatus = "left"
)

// Enrollment places a student in a class for one year. A student has at most
// one enrollment per year.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	ClassID        string           `db:"class_id" json:"class_id"`
	YearID         string           `db:"year_id" json:"year_id"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	EnrollmentDate string           `db:"enrollment_date" json:"enrollment_date"`
	CreatedAt      string           `db:"created_at" json:"created_at"`
}

// EnrollmentID derives the conventional enrollment identifier.
func EnrollmentID(studentID, yearID string) string {
	return studentID + "-" + yearID
}
