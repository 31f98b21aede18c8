package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const studentColumns = `id, first_name, last_name, birth_date, birth_place, gender, student_number, created_at`

const enrollmentColumns = `id, student_id, class_id, year_id, status, enrollment_date, created_at`

var studentMutable = columns("first_name", "last_name", "birth_date", "birth_place", "gender", "student_number")

var enrollmentMutable = columns("class_id", "status", "enrollment_date")

// StudentRepository manages persistence for students and their enrollments.
type StudentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, now: time.Now}
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	const query = `INSERT INTO students (id, first_name, last_name, birth_date, birth_place, gender, student_number)
        VALUES (:id, :first_name, :last_name, :birth_date, :birth_place, :gender, :student_number)`
	if err := insertNamed(ctx, r.db, "student", query, student); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, student.ID)
}

// FindByID fetches a student or nil when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return getOne[models.Student](ctx, r.db, "student", `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
}

// List returns every student ordered by last then first name.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	return selectAll[models.Student](ctx, r.db, "students",
		`SELECT `+studentColumns+` FROM students ORDER BY last_name, first_name`)
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, id string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "students", studentMutable, fields, "id = ?", id)
}

// Delete removes a student together with enrollments, grades, attendance and payments.
func (r *StudentRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByKey(ctx, r.db, "students", "id = ?", id)
}

// Count returns the number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "students")
}

// Enroll places a student in a class for a year. A second enrollment for the
// same student and year replaces the first.
func (r *StudentRepository) Enroll(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, error) {
	if enrollment.ID == "" {
		enrollment.ID = models.EnrollmentID(enrollment.StudentID, enrollment.YearID)
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.EnrollmentDate == "" {
		enrollment.EnrollmentDate = r.now().Format("2006-01-02")
	}
	const query = `INSERT OR REPLACE INTO enrollments (id, student_id, class_id, year_id, status, enrollment_date)
        VALUES (:id, :student_id, :class_id, :year_id, :status, :enrollment_date)`
	if err := insertNamed(ctx, r.db, "enrollment", query, enrollment); err != nil {
		return nil, err
	}
	return r.FindEnrollmentForStudent(ctx, enrollment.StudentID, enrollment.YearID)
}

// FindEnrollment fetches an enrollment by key.
func (r *StudentRepository) FindEnrollment(ctx context.Context, id, yearID string) (*models.Enrollment, error) {
	return getOne[models.Enrollment](ctx, r.db, "enrollment",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE id = ? AND year_id = ?`, id, yearID)
}

// FindEnrollmentForStudent fetches the student's enrollment in a year.
func (r *StudentRepository) FindEnrollmentForStudent(ctx context.Context, studentID, yearID string) (*models.Enrollment, error) {
	return getOne[models.Enrollment](ctx, r.db, "enrollment",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = ? AND year_id = ?`, studentID, yearID)
}

// UpdateEnrollment changes class, status or date of an enrollment.
func (r *StudentRepository) UpdateEnrollment(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "enrollments", enrollmentMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

// DeleteEnrollment removes an enrollment.
func (r *StudentRepository) DeleteEnrollment(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "enrollments", "id = ? AND year_id = ?", id, yearID)
}

// ListEnrollmentsByYear returns a year's enrollments.
func (r *StudentRepository) ListEnrollmentsByYear(ctx context.Context, yearID string) ([]models.Enrollment, error) {
	return selectAll[models.Enrollment](ctx, r.db, "enrollments",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE year_id = ? ORDER BY enrollment_date, id`, yearID)
}

// ListEnrollmentsByStudent returns a student's enrollments across years.
func (r *StudentRepository) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	return selectAll[models.Enrollment](ctx, r.db, "enrollments",
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE student_id = ? ORDER BY year_id`, studentID)
}

// ListByClass returns the roster of a class.
func (r *StudentRepository) ListByClass(ctx context.Context, classID, yearID string) ([]models.ClassStudent, error) {
	const query = `SELECT s.id, s.first_name, s.last_name, s.birth_date, s.birth_place, s.gender, s.student_number, s.created_at,
        e.enrollment_date, e.status
        FROM students s
        JOIN enrollments e ON s.id = e.student_id
        WHERE e.class_id = ? AND e.year_id = ?
        ORDER BY s.last_name, s.first_name`
	return selectAll[models.ClassStudent](ctx, r.db, "class students", query, classID, yearID)
}

// History returns a student's enrollments across years, oldest first.
func (r *StudentRepository) History(ctx context.Context, studentID string) ([]models.StudentHistoryEntry, error) {
	const query = `SELECT student_id, year_id, class_id, class_name, year_name, status, enrollment_date
        FROM student_history WHERE student_id = ?
        ORDER BY year_start_date, enrollment_date`
	return selectAll[models.StudentHistoryEntry](ctx, r.db, "student history", query, studentID)
}
