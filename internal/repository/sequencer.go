package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
)

// Entity names accepted by the sequencer.
const (
	SeqStudents           = "students"
	SeqTeachers           = "teachers"
	SeqGuardians          = "guardians"
	SeqClasses            = "classes"
	SeqSubjects           = "subjects"
	SeqGradeItems         = "grade_items"
	SeqGrades             = "grades"
	SeqTimetable          = "timetable"
	SeqAttendanceSessions = "attendance_sessions"
	SeqAttendanceRecords  = "attendance_records"
	SeqTeacherAttendance  = "teacher_attendance"
	SeqExtraFees          = "extra_fees"
	SeqServices           = "services"
	SeqPayments           = "payments"
	SeqTeacherAssignments = "teacher_assignments"
)

// MaxSequenceDigits bounds the ids the sequencer counts. Longer digit strings
// do not fit an int64 and are ignored like non-numeric ids.
const MaxSequenceDigits = 18

// yearScoped maps each sequenced table to whether its ids restart per year.
var yearScoped = map[string]bool{
	SeqStudents:           false,
	SeqTeachers:           false,
	SeqGuardians:          false,
	SeqClasses:            true,
	SeqSubjects:           true,
	SeqGradeItems:         true,
	SeqGrades:             true,
	SeqTimetable:          true,
	SeqAttendanceSessions: true,
	SeqAttendanceRecords:  true,
	SeqTeacherAttendance:  true,
	SeqExtraFees:          true,
	SeqServices:           true,
	SeqPayments:           true,
	SeqTeacherAssignments: true,
}

// Sequencer hands out the next numeric identifier for an entity. Ids that are
// not purely digits are ignored. Two callers racing on the same entity can be
// handed the same id; the second insert then fails with a duplicate key.
type Sequencer struct {
	db *sqlx.DB
}

// NewSequencer constructs a Sequencer.
func NewSequencer(db *sqlx.DB) *Sequencer {
	return &Sequencer{db: db}
}

// Next returns max(numeric id)+1 as a decimal string, "1" for an empty table.
// yearID is required for year-partitioned entities and ignored otherwise.
func (s *Sequencer) Next(ctx context.Context, entity, yearID string) (string, error) {
	scoped, ok := yearScoped[entity]
	if !ok {
		return "", fmt.Errorf("next id: unknown entity %q", entity)
	}
	query := fmt.Sprintf(`SELECT COALESCE(MAX(CAST(id AS INTEGER)), 0) FROM %s
        WHERE id <> '' AND id NOT GLOB '*[^0-9]*' AND length(id) <= %d`, entity, MaxSequenceDigits)
	args := []interface{}{}
	if scoped {
		if yearID == "" {
			return "", fmt.Errorf("next id: %s requires a year", entity)
		}
		query += " AND year_id = ?"
		args = append(args, yearID)
	}
	var max int64
	if err := s.db.GetContext(ctx, &max, query, args...); err != nil {
		return "", fmt.Errorf("next %s id: %w", entity, err)
	}
	return strconv.FormatInt(max+1, 10), nil
}
