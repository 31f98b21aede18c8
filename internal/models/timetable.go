package models

// Weekdays accepted by the timetable, Monday through Saturday.
const (
	DayMonday    = "Lundi"
	DayTuesday   = "Mardi"
	DayWednesday = "Mercredi"
	DayThursday  = "Jeudi"
	DayFriday    = "Vendredi"
	DaySaturday  = "Samedi"
)

// Weekdays lists the school days in calendar order.
var Weekdays = []string{DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}

// DefaultBlockColor is used when a block is created without a colour.
const DefaultBlockColor = "#3B82F6"

// TimetableBlock is a recurring weekly lesson slot.
type TimetableBlock struct {
	ID        string  `db:"id" json:"id"`
	YearID    string  `db:"year_id" json:"year_id"`
	ClassID   string  `db:"class_id" json:"class_id"`
	SubjectID string  `db:"subject_id" json:"subject_id"`
	TeacherID string  `db:"teacher_id" json:"teacher_id"`
	DayOfWeek string  `db:"day_of_week" json:"day_of_week"`
	StartTime string  `db:"start_time" json:"start_time"`
	EndTime   string  `db:"end_time" json:"end_time"`
	Room      *string `db:"room" json:"room,omitempty"`
	Color     string  `db:"color" json:"color"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// TimetableBlockDetail adds display names for class and teacher views.
type TimetableBlockDetail struct {
	TimetableBlock
	SubjectName      string `db:"subject_name" json:"subject_name"`
	ClassName        string `db:"class_name" json:"class_name"`
	TeacherFirstName string `db:"teacher_first_name" json:"teacher_first_name"`
	TeacherLastName  string `db:"teacher_last_name" json:"teacher_last_name"`
}

// ConflictQuery describes a candidate slot. Times are HH:MM and the interval
// is half-open, so back-to-back blocks do not collide.
type ConflictQuery struct {
	YearID    string
	DayOfWeek string
	StartTime string
	EndTime   string
	TeacherID string
	ClassID   string
	ExcludeID string
}
