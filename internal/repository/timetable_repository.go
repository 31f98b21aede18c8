package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const timetableColumns = `id, year_id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, room, color, created_at`

// weekdayOrder sorts blocks Monday to Saturday instead of alphabetically.
const weekdayOrder = `CASE t.day_of_week
        WHEN 'Lundi' THEN 1 WHEN 'Mardi' THEN 2 WHEN 'Mercredi' THEN 3
        WHEN 'Jeudi' THEN 4 WHEN 'Vendredi' THEN 5 WHEN 'Samedi' THEN 6 END`

const timetableDetailSelect = `SELECT t.id, t.year_id, t.class_id, t.subject_id, t.teacher_id, t.day_of_week, t.start_time,
        t.end_time, t.room, t.color, t.created_at,
        s.name AS subject_name, c.name AS class_name, te.first_name AS teacher_first_name, te.last_name AS teacher_last_name
        FROM timetable t
        JOIN subjects s ON t.subject_id = s.id AND t.year_id = s.year_id
        JOIN classes c ON t.class_id = c.id AND t.year_id = c.year_id
        JOIN teachers te ON t.teacher_id = te.id`

var timetableMutable = columns("class_id", "subject_id", "teacher_id", "day_of_week", "start_time", "end_time", "room", "color")

// TimetableRepository stores weekly lesson blocks.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// Create inserts a block.
func (r *TimetableRepository) Create(ctx context.Context, block *models.TimetableBlock) (*models.TimetableBlock, error) {
	if block.Color == "" {
		block.Color = models.DefaultBlockColor
	}
	const query = `INSERT INTO timetable (id, year_id, class_id, subject_id, teacher_id, day_of_week, start_time, end_time, room, color)
        VALUES (:id, :year_id, :class_id, :subject_id, :teacher_id, :day_of_week, :start_time, :end_time, :room, :color)`
	if err := insertNamed(ctx, r.db, "timetable block", query, block); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, block.ID, block.YearID)
}

// FindByID returns a block or nil.
func (r *TimetableRepository) FindByID(ctx context.Context, id, yearID string) (*models.TimetableBlock, error) {
	return getOne[models.TimetableBlock](ctx, r.db, "timetable block",
		`SELECT `+timetableColumns+` FROM timetable WHERE id = ? AND year_id = ?`, id, yearID)
}

// ListByClass returns a class's week, Monday first then by start time.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID, yearID string) ([]models.TimetableBlockDetail, error) {
	query := timetableDetailSelect + ` WHERE t.class_id = ? AND t.year_id = ? ORDER BY ` + weekdayOrder + `, t.start_time`
	return selectAll[models.TimetableBlockDetail](ctx, r.db, "class timetable", query, classID, yearID)
}

// ListByTeacher returns a teacher's week, Monday first then by start time.
func (r *TimetableRepository) ListByTeacher(ctx context.Context, teacherID, yearID string) ([]models.TimetableBlockDetail, error) {
	query := timetableDetailSelect + ` WHERE t.teacher_id = ? AND t.year_id = ? ORDER BY ` + weekdayOrder + `, t.start_time`
	return selectAll[models.TimetableBlockDetail](ctx, r.db, "teacher timetable", query, teacherID, yearID)
}

// Update modifies a block.
func (r *TimetableRepository) Update(ctx context.Context, id, yearID string, fields models.Fields) (bool, error) {
	return updateByKey(ctx, r.db, "timetable", timetableMutable, fields, "id = ? AND year_id = ?", id, yearID)
}

// Delete removes a block and its attendance sessions.
func (r *TimetableRepository) Delete(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "timetable", "id = ? AND year_id = ?", id, yearID)
}

// FindConflicts returns the blocks on the same day whose interval overlaps the
// candidate. Teacher and class filters narrow the check, and ExcludeID skips
// the block being edited.
func (r *TimetableRepository) FindConflicts(ctx context.Context, q models.ConflictQuery) ([]models.TimetableBlock, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + timetableColumns + ` FROM timetable t
        WHERE t.year_id = ? AND t.day_of_week = ? AND t.start_time < ? AND t.end_time > ?`)
	args := []interface{}{q.YearID, q.DayOfWeek, q.EndTime, q.StartTime}
	if q.TeacherID != "" {
		b.WriteString(" AND t.teacher_id = ?")
		args = append(args, q.TeacherID)
	}
	if q.ClassID != "" {
		b.WriteString(" AND t.class_id = ?")
		args = append(args, q.ClassID)
	}
	if q.ExcludeID != "" {
		b.WriteString(" AND t.id <> ?")
		args = append(args, q.ExcludeID)
	}
	b.WriteString(" ORDER BY t.start_time")
	return selectAll[models.TimetableBlock](ctx, r.db, "timetable conflicts", b.String(), args...)
}
