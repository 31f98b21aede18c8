package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const classColumns = `id, year_id, name, level, description, capacity, main_teacher_id, created_at`

var classMutable = columns("name", "level", "description", "capacity", "main_teacher_id")

// ClassRepository provides persistence for yearly classes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// Create inserts a class. Capacity defaults to 30.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) (*models.Class, error) {
	if class.Capacity <= 0 {
		class.Capacity = models.DefaultClassCapacity
	}
	const query = `INSERT INTO classes (id, year_id, name, level, description, capacity, main_teacher_id)
        VALUES (:id, :year_id, :name, :level, :description, :capacity, :main_teacher_id)`
	if err := insertNamed(ctx, r.db, "class", query, class); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, class.ID, class.YearID)
}

// FindByID returns the class or nil.
func (r *ClassRepository) FindByID(ctx context.Context, id, yearID string) (*models.Class, error) {
	return getOne[models.Class](ctx, r.db, "class",
		`SELECT `+classColumns+` FROM classes WHERE id = ? AND year_id = ?`, id, yearID)
}

// ListByYear returns the classes of a year sorted by name.
func (r *ClassRepository) ListByYear(ctx context.Context, yearID string) ([]models.Class, error) {
	return selectAll[models.Class](ctx, r.db, "classes",
		`SELECT `+classColumns+` FROM classes WHERE year_id = ? ORDER BY name`, yearID)
}

// ListWithStudentCount returns classes with their active enrollment counts.
func (r *ClassRepository) ListWithStudentCount(ctx context.Context, yearID string) ([]models.ClassWithCount, error) {
	const query = `SELECT c.id, c.year_id, c.name, c.level, c.description, c.capacity, c.main_teacher_id, c.created_at,
        COUNT(e.student_id) AS student_count
        FROM classes c
        LEFT JOIN enrollments e ON c.id = e.class_id AND c.year_id = e.year_id AND e.status = 'active'
        WHERE c.year_id = ?
        GROUP BY c.id, c.year_id
        ORDER BY c.name`
	return selectAll[models.ClassWithCount](ctx, r.db, "classes with counts", query, yearID)
}

// Update modifies class fields.
func (r *ClassRepository) Update(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "classes", classMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

// Delete removes a class and its dependants.
func (r *ClassRepository) Delete(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "classes", "id = ? AND year_id = ?", id, yearID)
}

// CountByYear returns the number of classes in a year.
func (r *ClassRepository) CountByYear(ctx context.Context, yearID string) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM classes WHERE year_id = ?`, yearID); err != nil {
		return 0, fmt.Errorf("count classes: %w", err)
	}
	return n, nil
}
