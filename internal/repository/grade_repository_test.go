package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records/internal/models"
	appErrors "github.com/noah-isme/sma-records/pkg/errors"
)

func seedGradebook(t *testing.T) (*GradeRepository, context.Context) {
	t.Helper()
	db := newTestStore(t)
	ctx := context.Background()
	seedStudent(t, db, "1", "Ada", "Lovelace")
	seedClass(t, db, "1", bootstrapYearID, "6e A")
	seedSubject(t, db, "1", bootstrapYearID, "Maths")
	return NewGradeRepository(db), ctx
}

func TestStudentAveragesAreWeighted(t *testing.T) {
	repo, ctx := seedGradebook(t)

	_, err := repo.CreateGradeItem(ctx, &models.GradeItem{ID: "A", YearID: bootstrapYearID, SubjectID: "1", ClassID: "1",
		Name: "Contrôle 1", MaxPoints: 20, Weight: 1, Term: models.TermFirst})
	require.NoError(t, err)
	_, err = repo.CreateGradeItem(ctx, &models.GradeItem{ID: "B", YearID: bootstrapYearID, SubjectID: "1", ClassID: "1",
		Name: "Interrogation", MaxPoints: 10, Weight: 2, Term: models.TermFirst})
	require.NoError(t, err)

	_, err = repo.SaveGrade(ctx, &models.Grade{ID: "1", YearID: bootstrapYearID, GradeItemID: "A", StudentID: "1", Score: floatPtr(10)})
	require.NoError(t, err)
	_, err = repo.SaveGrade(ctx, &models.Grade{ID: "2", YearID: bootstrapYearID, GradeItemID: "B", StudentID: "1", Score: floatPtr(10)})
	require.NoError(t, err)

	averages, err := repo.StudentAverages(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	require.Len(t, averages, 1)
	// A: 10/20*20*1 = 10, B: 10/10*20*2 = 40.
	assert.InDelta(t, 25.0, averages[0].WeightedAverage, 1e-9)
	assert.Equal(t, 2, averages[0].GradeCount)
}

func TestUngradedScoresAreExcludedFromAverages(t *testing.T) {
	repo, ctx := seedGradebook(t)
	_, err := repo.CreateGradeItem(ctx, &models.GradeItem{ID: "A", YearID: bootstrapYearID, SubjectID: "1", ClassID: "1",
		Name: "Contrôle", Term: models.TermSecond})
	require.NoError(t, err)

	_, err = repo.SaveGrade(ctx, &models.Grade{ID: "1", YearID: bootstrapYearID, GradeItemID: "A", StudentID: "1"})
	require.NoError(t, err)

	averages, err := repo.StudentAverages(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	assert.Empty(t, averages)

	grades, err := repo.ListClassGrades(ctx, "1", bootstrapYearID, models.TermSecond)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Nil(t, grades[0].Score)
	assert.Equal(t, "Maths", grades[0].SubjectName)
	assert.Equal(t, 20.0, grades[0].MaxPoints)
}

func TestSaveGradeReplacesScoreForSameItem(t *testing.T) {
	repo, ctx := seedGradebook(t)
	_, err := repo.CreateGradeItem(ctx, &models.GradeItem{ID: "A", YearID: bootstrapYearID, SubjectID: "1", ClassID: "1",
		Name: "Contrôle", Term: models.TermFirst})
	require.NoError(t, err)

	_, err = repo.SaveGrade(ctx, &models.Grade{ID: "1", YearID: bootstrapYearID, GradeItemID: "A", StudentID: "1", Score: floatPtr(8)})
	require.NoError(t, err)
	_, err = repo.SaveGrade(ctx, &models.Grade{ID: "2", YearID: bootstrapYearID, GradeItemID: "A", StudentID: "1", Score: floatPtr(14)})
	require.NoError(t, err)

	grades, err := repo.ListStudentGrades(ctx, "1", bootstrapYearID)
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 14.0, *grades[0].Score)
}

func TestGradeItemRejectsNonPositiveMaxPoints(t *testing.T) {
	repo, ctx := seedGradebook(t)
	_, err := repo.CreateGradeItem(ctx, &models.GradeItem{ID: "A", YearID: bootstrapYearID, SubjectID: "1", ClassID: "1",
		Name: "Bonus", MaxPoints: -5, Term: models.TermFirst})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConstraintViolation))
}

func TestSubjectEnrollmentIsIdempotent(t *testing.T) {
	repo, ctx := seedGradebook(t)
	lv2 := models.LanguageLV2
	_, err := repo.CreateSubject(ctx, &models.Subject{ID: "2", YearID: bootstrapYearID, Name: "Espagnol", IsOptional: true, LanguageType: &lv2})
	require.NoError(t, err)

	enrollment := models.SubjectEnrollment{StudentID: "1", SubjectID: "2", YearID: bootstrapYearID, ClassID: "1", Semester: models.TermFirst}
	require.NoError(t, repo.EnrollInSubject(ctx, enrollment))
	require.NoError(t, repo.EnrollInSubject(ctx, enrollment))

	subjects, err := repo.ListStudentSubjects(ctx, "1", bootstrapYearID, models.TermFirst)
	require.NoError(t, err)
	require.Len(t, subjects, 1)
	assert.True(t, subjects[0].IsOptional)
	assert.Equal(t, 1.0, subjects[0].Coefficient)

	none, err := repo.ListStudentSubjects(ctx, "1", bootstrapYearID, models.TermSecond)
	require.NoError(t, err)
	assert.Empty(t, none)
}
