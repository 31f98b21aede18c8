package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/models"
)

func TestSequencerSkipsNonNumericIDs(t *testing.T) {
	db := newTestStore(t)
	seq := NewSequencer(db)
	ctx := context.Background()

	next, err := seq.Next(ctx, SeqStudents, "")
	require.NoError(t, err)
	assert.Equal(t, "1", next)

	for _, id := range []string{"3", "7", "abc", "12b"} {
		seedStudent(t, db, id, "S", id)
	}
	next, err = seq.Next(ctx, SeqStudents, "")
	require.NoError(t, err)
	assert.Equal(t, "8", next)
}

func TestSequencerIgnoresIDsBeyondInt64(t *testing.T) {
	db := newTestStore(t)
	seq := NewSequencer(db)
	ctx := context.Background()
	seedStudent(t, db, "5", "S", "5")
	seedStudent(t, db, "99999999999999999999", "S", "big")

	next, err := seq.Next(ctx, SeqStudents, "")
	require.NoError(t, err)
	assert.Equal(t, "6", next)

	seedStudent(t, db, "999999999999999999", "S", "edge")
	next, err = seq.Next(ctx, SeqStudents, "")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", next)
}

func TestSequencerScopesPartitionedEntitiesByYear(t *testing.T) {
	db := newTestStore(t)
	seq := NewSequencer(db)
	ctx := context.Background()
	seedYear(t, db, "2025-2026", "2025-09-01", false)
	seedClass(t, db, "4", bootstrapYearID, "6e A")

	next, err := seq.Next(ctx, SeqClasses, bootstrapYearID)
	require.NoError(t, err)
	assert.Equal(t, "5", next)

	next, err = seq.Next(ctx, SeqClasses, "2025-2026")
	require.NoError(t, err)
	assert.Equal(t, "1", next)

	_, err = seq.Next(ctx, SeqClasses, "")
	require.Error(t, err)
}

func TestSequencerRejectsUnknownEntity(t *testing.T) {
	db := newTestStore(t)
	_, err := NewSequencer(db).Next(context.Background(), "students; DROP TABLE students", "")
	require.Error(t, err)
}

func TestSequencerIssuesIDsUsableForInsert(t *testing.T) {
	db := newTestStore(t)
	seq := NewSequencer(db)
	ctx := context.Background()
	seedTeacher(t, db, "1", "Marie", "Curie")

	id, err := seq.Next(ctx, SeqTeachers, "")
	require.NoError(t, err)
	_, err = NewTeacherRepository(db).Create(ctx, &models.Teacher{ID: id, FirstName: "Pierre", LastName: "Curie"})
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestSequencerWithMock(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("(?s)"+regexp.QuoteMeta("FROM payments")+".*"+regexp.QuoteMeta("AND year_id = ?")).
		WithArgs(bootstrapYearID).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(41))

	next, err := NewSequencer(db).Next(context.Background(), SeqPayments, bootstrapYearID)
	require.NoError(t, err)
	assert.Equal(t, "42", next)
	assert.NoError(t, mock.ExpectationsWereMet())
}
