package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const subjectColumns = `id, year_id, name, coefficient, is_optional, language_type, created_at`

const gradeItemColumns = `id, year_id, subject_id, class_id, name, max_points, weight, term, created_at`

const gradeColumns = `id, year_id, grade_item_id, student_id, score, date, created_at`

var (
	subjectMutable   = columns("name", "coefficient", "is_optional", "language_type")
	gradeItemMutable = columns("subject_id", "class_id", "name", "max_points", "weight", "term")
)

// GradeRepository persists subjects, grade items and grades.
type GradeRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewGradeRepository constructs a GradeRepository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db, now: time.Now}
}

// CreateSubject inserts a subject. Coefficient defaults to 1.
func (r *GradeRepository) CreateSubject(ctx context.Context, subject *models.Subject) (*models.Subject, error) {
	if subject.Coefficient == 0 {
		subject.Coefficient = 1
	}
	const query = `INSERT INTO subjects (id, year_id, name, coefficient, is_optional, language_type)
        VALUES (:id, :year_id, :name, :coefficient, :is_optional, :language_type)`
	if err := insertNamed(ctx, r.db, "subject", query, subject); err != nil {
		return nil, err
	}
	return r.FindSubject(ctx, subject.ID, subject.YearID)
}

func (r *GradeRepository) FindSubject(ctx context.Context, id, yearID string) (*models.Subject, error) {
	return getOne[models.Subject](ctx, r.db, "subject",
		`SELECT `+subjectColumns+` FROM subjects WHERE id = ? AND year_id = ?`, id, yearID)
}

func (r *GradeRepository) ListSubjects(ctx context.Context, yearID string) ([]models.Subject, error) {
	return selectAll[models.Subject](ctx, r.db, "subjects",
		`SELECT `+subjectColumns+` FROM subjects WHERE year_id = ? ORDER BY name`, yearID)
}

func (r *GradeRepository) UpdateSubject(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "subjects", subjectMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

func (r *GradeRepository) DeleteSubject(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "subjects", "id = ? AND year_id = ?", id, yearID)
}

// EnrollInSubject registers a student for a subject and semester; repeating
// the call is harmless.
func (r *GradeRepository) EnrollInSubject(ctx context.Context, enrollment models.SubjectEnrollment) error {
	const query = `INSERT OR REPLACE INTO subject_enrollments (student_id, subject_id, year_id, class_id, semester)
        VALUES (:student_id, :subject_id, :year_id, :class_id, :semester)`
	return insertNamed(ctx, r.db, "subject enrollment", query, enrollment)
}

// ListStudentSubjects returns the subjects a student follows in a semester.
func (r *GradeRepository) ListStudentSubjects(ctx context.Context, studentID, yearID, semester string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.year_id, s.name, s.coefficient, s.is_optional, s.language_type, s.created_at
        FROM subjects s
        JOIN subject_enrollments se ON s.id = se.subject_id AND s.year_id = se.year_id
        WHERE se.student_id = ? AND se.year_id = ? AND se.semester = ?
        ORDER BY s.name`
	return selectAll[models.Subject](ctx, r.db, "student subjects", query, studentID, yearID, semester)
}

// CreateGradeItem inserts an assessment. Max points default to 20, weight to 1.
func (r *GradeRepository) CreateGradeItem(ctx context.Context, item *models.GradeItem) (*models.GradeItem, error) {
	if item.MaxPoints == 0 {
		item.MaxPoints = 20
	}
	if item.Weight == 0 {
		item.Weight = 1
	}
	const query = `INSERT INTO grade_items (id, year_id, subject_id, class_id, name, max_points, weight, term)
        VALUES (:id, :year_id, :subject_id, :class_id, :name, :max_points, :weight, :term)`
	if err := insertNamed(ctx, r.db, "grade item", query, item); err != nil {
		return nil, err
	}
	return r.FindGradeItem(ctx, item.ID, item.YearID)
}

func (r *GradeRepository) FindGradeItem(ctx context.Context, id, yearID string) (*models.GradeItem, error) {
	return getOne[models.GradeItem](ctx, r.db, "grade item",
		`SELECT `+gradeItemColumns+` FROM grade_items WHERE id = ? AND year_id = ?`, id, yearID)
}

// ListGradeItems returns a class's items for a term.
func (r *GradeRepository) ListGradeItems(ctx context.Context, classID, yearID, term string) ([]models.GradeItem, error) {
	return selectAll[models.GradeItem](ctx, r.db, "grade items",
		`SELECT `+gradeItemColumns+` FROM grade_items WHERE class_id = ? AND year_id = ? AND term = ? ORDER BY subject_id, name`,
		classID, yearID, term)
}

func (r *GradeRepository) UpdateGradeItem(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "grade_items", gradeItemMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

func (r *GradeRepository) DeleteGradeItem(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "grade_items", "id = ? AND year_id = ?", id, yearID)
}

// SaveGrade records a score, replacing any earlier grade of the same student
// for the same item.
func (r *GradeRepository) SaveGrade(ctx context.Context, grade *models.Grade) (*models.Grade, error) {
	if grade.Date == "" {
		grade.Date = r.now().Format("2006-01-02")
	}
	const query = `INSERT OR REPLACE INTO grades (id, year_id, grade_item_id, student_id, score, date)
        VALUES (:id, :year_id, :grade_item_id, :student_id, :score, :date)`
	if err := insertNamed(ctx, r.db, "grade", query, grade); err != nil {
		return nil, err
	}
	return r.FindGrade(ctx, grade.ID, grade.YearID)
}

func (r *GradeRepository) FindGrade(ctx context.Context, id, yearID string) (*models.Grade, error) {
	return getOne[models.Grade](ctx, r.db, "grade",
		`SELECT `+gradeColumns+` FROM grades WHERE id = ? AND year_id = ?`, id, yearID)
}

func (r *GradeRepository) DeleteGrade(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "grades", "id = ? AND year_id = ?", id, yearID)
}

// ListStudentGrades returns a student's grades in a year, newest first.
func (r *GradeRepository) ListStudentGrades(ctx context.Context, studentID, yearID string) ([]models.Grade, error) {
	return selectAll[models.Grade](ctx, r.db, "student grades",
		`SELECT `+gradeColumns+` FROM grades WHERE student_id = ? AND year_id = ? ORDER BY date DESC, id`, studentID, yearID)
}

// ListClassGrades returns a class's grades for a term with display names.
func (r *GradeRepository) ListClassGrades(ctx context.Context, classID, yearID, term string) ([]models.ClassGrade, error) {
	const query = `SELECT g.id, g.year_id, g.grade_item_id, g.student_id, g.score, g.date, g.created_at,
        gi.name AS grade_item_name, gi.max_points, gi.weight, s.name AS subject_name, st.first_name, st.last_name
        FROM grades g
        JOIN grade_items gi ON g.grade_item_id = gi.id AND g.year_id = gi.year_id
        JOIN subjects s ON gi.subject_id = s.id AND gi.year_id = s.year_id
        JOIN students st ON g.student_id = st.id
        WHERE gi.class_id = ? AND g.year_id = ? AND gi.term = ?
        ORDER BY st.last_name, st.first_name, s.name, gi.name`
	return selectAll[models.ClassGrade](ctx, r.db, "class grades", query, classID, yearID, term)
}

// StudentAverages reads the weighted averages view for a student and year.
func (r *GradeRepository) StudentAverages(ctx context.Context, studentID, yearID string) ([]models.StudentAverage, error) {
	const query = `SELECT student_id, year_id, class_id, subject_id, term, weighted_average, grade_count
        FROM student_grades_summary WHERE student_id = ? AND year_id = ?
        ORDER BY term, subject_id`
	return selectAll[models.StudentAverage](ctx, r.db, "student averages", query, studentID, yearID)
}
