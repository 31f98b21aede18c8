package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

func seedTimetable(t *testing.T) (*sqlx.DB, *TimetableRepository) {
	t.Helper()
	db := newTestStore(t)
	seedTeacher(t, db, "1", "Marie", "Curie")
	seedClass(t, db, "1", bootstrapYearID, "6e A")
	seedClass(t, db, "2", bootstrapYearID, "6e B")
	seedSubject(t, db, "1", bootstrapYearID, "Physique")
	return db, NewTimetableRepository(db)
}

func block(id, classID, day, start, end string) *models.TimetableBlock {
	return &models.TimetableBlock{ID: id, YearID: bootstrapYearID, ClassID: classID, SubjectID: "1", TeacherID: "1",
		DayOfWeek: day, StartTime: start, EndTime: end}
}

func TestFindConflictsUsesHalfOpenIntervals(t *testing.T) {
	_, repo := seedTimetable(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, block("1", "1", models.DayMonday, "09:00", "10:00"))
	require.NoError(t, err)

	overlapping, err := repo.FindConflicts(ctx, models.ConflictQuery{YearID: bootstrapYearID, DayOfWeek: models.DayMonday,
		StartTime: "09:30", EndTime: "10:30", TeacherID: "1"})
	require.NoError(t, err)
	require.Len(t, overlapping, 1)
	assert.Equal(t, "1", overlapping[0].ID)

	adjacent, err := repo.FindConflicts(ctx, models.ConflictQuery{YearID: bootstrapYearID, DayOfWeek: models.DayMonday,
		StartTime: "10:00", EndTime: "11:00", TeacherID: "1"})
	require.NoError(t, err)
	assert.Empty(t, adjacent)

	otherDay, err := repo.FindConflicts(ctx, models.ConflictQuery{YearID: bootstrapYearID, DayOfWeek: models.DayTuesday,
		StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	assert.Empty(t, otherDay)

	otherClass, err := repo.FindConflicts(ctx, models.ConflictQuery{YearID: bootstrapYearID, DayOfWeek: models.DayMonday,
		StartTime: "09:00", EndTime: "10:00", ClassID: "2"})
	require.NoError(t, err)
	assert.Empty(t, otherClass)

	self, err := repo.FindConflicts(ctx, models.ConflictQuery{YearID: bootstrapYearID, DayOfWeek: models.DayMonday,
		StartTime: "09:00", EndTime: "10:00", ExcludeID: "1"})
	require.NoError(t, err)
	assert.Empty(t, self)
}

func TestTimetableListsInWeekdayOrder(t *testing.T) {
	_, repo := seedTimetable(t)
	ctx := context.Background()
	for _, b := range []*models.TimetableBlock{
		block("1", "1", models.DaySaturday, "08:00", "09:00"),
		block("2", "1", models.DayMonday, "10:00", "11:00"),
		block("3", "1", models.DayWednesday, "08:00", "09:00"),
		block("4", "1", models.DayMonday, "08:00", "09:00"),
	} {
		_, err := repo.Create(ctx, b)
		require.NoError(t, err)
	}

	blocks, err := repo.ListByClass(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"4", "2", "3", "1"}, ids)
	assert.Equal(t, "Physique", blocks[0].SubjectName)
	assert.Equal(t, "Curie", blocks[0].TeacherLastName)
	assert.Equal(t, models.DefaultBlockColor, blocks[0].Color)

	byTeacher, err := repo.ListByTeacher(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	assert.Len(t, byTeacher, 4)
}

func TestTimetableRejectsInvalidBlocks(t *testing.T) {
	_, repo := seedTimetable(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, block("1", "1", models.DayMonday, "10:00", "09:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConstraintViolation))

	_, err = repo.Create(ctx, block("2", "1", "Dimanche", "08:00", "09:00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConstraintViolation))
}

func TestTimetableDeleteCascadesAttendance(t *testing.T) {
	db, repo := seedTimetable(t)
	ctx := context.Background()
	seedStudent(t, db, "1", "Ada", "Lovelace")
	_, err := repo.Create(ctx, block("1", "1", models.DayMonday, "08:00", "09:00"))
	require.NoError(t, err)

	attendance := NewAttendanceRepository(db)
	_, err = attendance.SaveSession(ctx, &models.AttendanceSession{ID: "1", YearID: bootstrapYearID, ClassID: "1",
		Date: "2024-10-07", TimetableBlockID: "1"})
	require.NoError(t, err)

	n, err := repo.Delete(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	session, err := attendance.FindSession(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	assert.Nil(t, session)
}
