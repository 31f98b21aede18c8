package models

// Attendance statuses for students and teachers.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "retard"
	AttendanceSentOut = "renvoi"
	AttendanceNone    = "aucun"
)

// AttendanceSession is a roll call for one class in one timetable block on a date.
type AttendanceSession struct {
	ID               string `db:"id" json:"id"`
	YearID           string `db:"year_id" json:"year_id"`
	ClassID          string `db:"class_id" json:"class_id"`
	Date             string `db:"date" json:"date"`
	TimetableBlockID string `db:"timetable_block_id" json:"timetable_block_id"`
	Locked           bool   `db:"locked" json:"locked"`
	CreatedAt        string `db:"created_at" json:"created_at"`
}

// AttendanceRecord is one student's status within a session.
type AttendanceRecord struct {
	ID        string  `db:"id" json:"id"`
	YearID    string  `db:"year_id" json:"year_id"`
	SessionID string  `db:"session_id" json:"session_id"`
	StudentID string  `db:"student_id" json:"student_id"`
	Status    string  `db:"status" json:"status"`
	Comment   *string `db:"comment" json:"comment,omitempty"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// SessionRecord is an attendance record with the student's names.
type SessionRecord struct {
	AttendanceRecord
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// TeacherAttendance tracks a teacher's presence for a timetable block.
type TeacherAttendance struct {
	ID               string  `db:"id" json:"id"`
	YearID           string  `db:"year_id" json:"year_id"`
	TeacherID        string  `db:"teacher_id" json:"teacher_id"`
	Date             string  `db:"date" json:"date"`
	TimetableBlockID string  `db:"timetable_block_id" json:"timetable_block_id"`
	Status           string  `db:"status" json:"status"`
	Comment          *string `db:"comment" json:"comment,omitempty"`
	CreatedAt        string  `db:"created_at" json:"created_at"`
}

// AttendanceCount is one row of the attendance_summary view.
type AttendanceCount struct {
	StudentID string `db:"student_id" json:"student_id"`
	YearID    string `db:"year_id" json:"year_id"`
	Status    string `db:"status" json:"status"`
	Count     int    `db:"count" json:"count"`
}
