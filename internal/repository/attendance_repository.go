package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records/internal/models"
)

const sessionColumns = `id, year_id, class_id, date, timetable_block_id, locked, created_at`

const recordColumns = `id, year_id, session_id, student_id, status, comment, created_at`

const teacherAttendanceColumns = `id, year_id, teacher_id, date, timetable_block_id, status, comment, created_at`

// AttendanceRepository persists roll calls for students and teachers.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// SaveSession creates a session or updates the lock flag of the existing one
// for the same class, date and block. The stored session is returned.
func (r *AttendanceRepository) SaveSession(ctx context.Context, session *models.AttendanceSession) (*models.AttendanceSession, error) {
	const query = `INSERT INTO attendance_sessions (id, year_id, class_id, date, timetable_block_id, locked)
        VALUES (:id, :year_id, :class_id, :date, :timetable_block_id, :locked)
        ON CONFLICT (year_id, class_id, date, timetable_block_id) DO UPDATE SET locked = excluded.locked`
	if err := insertNamed(ctx, r.db, "attendance session", query, session); err != nil {
		return nil, err
	}
	return r.FindSessionBySlot(ctx, session.YearID, session.ClassID, session.Date, session.TimetableBlockID)
}

func (r *AttendanceRepository) FindSession(ctx context.Context, id, yearID string) (*models.AttendanceSession, error) {
	return getOne[models.AttendanceSession](ctx, r.db, "attendance session",
		`SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = ? AND year_id = ?`, id, yearID)
}

// FindSessionBySlot looks a session up by its natural key.
func (r *AttendanceRepository) FindSessionBySlot(ctx context.Context, yearID, classID, date, blockID string) (*models.AttendanceSession, error) {
	return getOne[models.AttendanceSession](ctx, r.db, "attendance session",
		`SELECT `+sessionColumns+` FROM attendance_sessions
        WHERE year_id = ? AND class_id = ? AND date = ? AND timetable_block_id = ?`, yearID, classID, date, blockID)
}

func (r *AttendanceRepository) DeleteSession(ctx context.Context, id, yearID string) (int64, error) {
	return deleteByKey(ctx, r.db, "attendance_sessions", "id = ? AND year_id = ?", id, yearID)
}

// SaveRecord stores a student's status in a session, replacing an earlier one.
func (r *AttendanceRepository) SaveRecord(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	if record.Status == "" {
		record.Status = models.AttendancePresent
	}
	const query = `INSERT OR REPLACE INTO attendance_records (id, year_id, session_id, student_id, status, comment)
        VALUES (:id, :year_id, :session_id, :student_id, :status, :comment)`
	if err := insertNamed(ctx, r.db, "attendance record", query, record); err != nil {
		return nil, err
	}
	return r.FindRecord(ctx, record.ID, record.YearID)
}

func (r *AttendanceRepository) FindRecord(ctx context.Context, id, yearID string) (*models.AttendanceRecord, error) {
	return getOne[models.AttendanceRecord](ctx, r.db, "attendance record",
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = ? AND year_id = ?`, id, yearID)
}

// ListSessionRecords returns a session's roll sorted by student name.
func (r *AttendanceRepository) ListSessionRecords(ctx context.Context, sessionID, yearID string) ([]models.SessionRecord, error) {
	const query = `SELECT ar.id, ar.year_id, ar.session_id, ar.student_id, ar.status, ar.comment, ar.created_at,
        s.first_name, s.last_name
        FROM attendance_records ar
        JOIN students s ON ar.student_id = s.id
        WHERE ar.session_id = ? AND ar.year_id = ?
        ORDER BY s.last_name, s.first_name`
	return selectAll[models.SessionRecord](ctx, r.db, "session records", query, sessionID, yearID)
}

// StudentSummary reads per-status counts for a student in a year.
func (r *AttendanceRepository) StudentSummary(ctx context.Context, studentID, yearID string) ([]models.AttendanceCount, error) {
	return selectAll[models.AttendanceCount](ctx, r.db, "attendance summary",
		`SELECT student_id, year_id, status, count FROM attendance_summary WHERE student_id = ? AND year_id = ? ORDER BY status`,
		studentID, yearID)
}

// SaveTeacherAttendance stores a teacher's presence for a block, replacing an
// earlier entry for the same date and block.
func (r *AttendanceRepository) SaveTeacherAttendance(ctx context.Context, att *models.TeacherAttendance) (*models.TeacherAttendance, error) {
	if att.Status == "" {
		att.Status = models.AttendanceNone
	}
	const query = `INSERT OR REPLACE INTO teacher_attendance (id, year_id, teacher_id, date, timetable_block_id, status, comment)
        VALUES (:id, :year_id, :teacher_id, :date, :timetable_block_id, :status, :comment)`
	if err := insertNamed(ctx, r.db, "teacher attendance", query, att); err != nil {
		return nil, err
	}
	return r.FindTeacherAttendance(ctx, att.ID, att.YearID)
}

func (r *AttendanceRepository) FindTeacherAttendance(ctx context.Context, id, yearID string) (*models.TeacherAttendance, error) {
	return getOne[models.TeacherAttendance](ctx, r.db, "teacher attendance",
		`SELECT `+teacherAttendanceColumns+` FROM teacher_attendance WHERE id = ? AND year_id = ?`, id, yearID)
}

// FindTeacherAttendanceBySlot looks teacher attendance up by its natural key.
func (r *AttendanceRepository) FindTeacherAttendanceBySlot(ctx context.Context, yearID, teacherID, date, blockID string) (*models.TeacherAttendance, error) {
	return getOne[models.TeacherAttendance](ctx, r.db, "teacher attendance",
		`SELECT `+teacherAttendanceColumns+` FROM teacher_attendance
        WHERE year_id = ? AND teacher_id = ? AND date = ? AND timetable_block_id = ?`, yearID, teacherID, date, blockID)
}
