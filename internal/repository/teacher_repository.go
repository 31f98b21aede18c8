package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const teacherColumns = `id, first_name, last_name, email, phone, subject, hire_date, payment_type, salary, hourly_rate,
        residence, contact_type, years_experience, nationality, emergency_contact, emergency_phone, created_at`

const assignmentColumns = `id, year_id, teacher_id, class_id, subject_id, created_at`

var teacherMutable = columns("first_name", "last_name", "email", "phone", "subject", "hire_date", "payment_type",
	"salary", "hourly_rate", "residence", "contact_type", "years_experience", "nationality",
	"emergency_contact", "emergency_phone")

// TeacherRepository handles CRUD for teachers and their yearly assignments.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Create inserts a teacher, applying the table defaults for payment and contact type.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) (*models.Teacher, error) {
	if teacher.PaymentType == "" {
		teacher.PaymentType = models.TeacherPaymentFixed
	}
	if teacher.ContactType == "" {
		teacher.ContactType = models.ContactPhone
	}
	const query = `INSERT INTO teachers (id, first_name, last_name, email, phone, subject, hire_date, payment_type, salary,
        hourly_rate, residence, contact_type, years_experience, nationality, emergency_contact, emergency_phone)
        VALUES (:id, :first_name, :last_name, :email, :phone, :subject, :hire_date, :payment_type, :salary,
        :hourly_rate, :residence, :contact_type, :years_experience, :nationality, :emergency_contact, :emergency_phone)`
	if err := insertNamed(ctx, r.db, "teacher", query, teacher); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, teacher.ID)
}

// FindByID returns a teacher or nil when absent.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return getOne[models.Teacher](ctx, r.db, "teacher", `SELECT `+teacherColumns+` FROM teachers WHERE id = ?`, id)
}

// List returns all teachers sorted by name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	return selectAll[models.Teacher](ctx, r.db, "teachers",
		`SELECT `+teacherColumns+` FROM teachers ORDER BY last_name, first_name`)
}

// Update modifies teacher fields.
func (r *TeacherRepository) Update(ctx context.Context, id string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "teachers", teacherMutable, fields, "id = ?", id)
}

// Delete removes a teacher with their timetable blocks and assignments.
func (r *TeacherRepository) Delete(ctx context.Context, id string) (int64, error) {
	return deleteByKey(ctx, r.db, "teachers", "id = ?", id)
}

// Count returns the number of teachers.
func (r *TeacherRepository) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "teachers")
}

// Assign records a teacher assignment for a year.
func (r *TeacherRepository) Assign(ctx context.Context, assignment *models.TeacherAssignment) (*models.TeacherAssignment, error) {
	const query = `INSERT INTO teacher_assignments (id, year_id, teacher_id, class_id, subject_id)
        VALUES (:id, :year_id, :teacher_id, :class_id, :subject_id)`
	if err := insertNamed(ctx, r.db, "teacher assignment", query, assignment); err != nil {
		return nil, err
	}
	return r.FindAssignment(ctx, assignment.ID, assignment.YearID)
}

// FindAssignment returns an assignment or nil.
func (r *TeacherRepository) FindAssignment(ctx context.Context, id, yearID string) (*models.TeacherAssignment, error) {
	return getOne[models.TeacherAssignment](ctx, r.db, "teacher assignment",
		`SELECT `+assignmentColumns+` FROM teacher_assignments WHERE id = ? AND year_id = ?`, id, yearID)
}

// ListAssignments returns a year's assignments.
func (r *TeacherRepository) ListAssignments(ctx context.Context, yearID string) ([]models.TeacherAssignment, error) {
	return selectAll[models.TeacherAssignment](ctx, r.db, "teacher assignments",
		`SELECT `+assignmentColumns+` FROM teacher_assignments WHERE year_id = ? ORDER BY teacher_id, id`, yearID)
}

// DeleteAssignment removes an assignment.
func (r *TeacherRepository) DeleteAssignment(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "teacher_assignments", "id = ? AND year_id = ?", id, yearID)
}

// ListAssigned returns the distinct teachers with at least one assignment in a year.
func (r *TeacherRepository) ListAssigned(ctx context.Context, yearID string) ([]models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE id IN (
        SELECT teacher_id FROM teacher_assignments WHERE year_id = ?)
        ORDER BY last_name, first_name`, teacherColumns)
	return selectAll[models.Teacher](ctx, r.db, "assigned teachers", query, yearID)
}

// IsAssigned reports whether a teacher has any assignment in a year.
func (r *TeacherRepository) IsAssigned(ctx context.Context, teacherID, yearID string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM teacher_assignments WHERE teacher_id = ? AND year_id = ?`, teacherID, yearID); err != nil {
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return n > 0, nil
}
