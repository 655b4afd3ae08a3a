package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindelo-dev/registo-api/internal/models"
)

func ptrFloat(v float64) *float64 { return &v }

func ptrInt(v int) *int { return &v }

func score(kind models.AssessmentKind, name string, value float64, offsetDays int) models.ScoreRecord {
	return models.ScoreRecord{
		AssessmentID: name,
		Kind:         kind,
		Name:         name,
		Date:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offsetDays),
		Value:        ptrFloat(value),
	}
}

func higherConfig(retakes bool) models.GradeComputationConfig {
	return models.GradeComputationConfig{
		CalendarType:   models.CalendarHigher,
		PassThreshold:  10,
		RetakesAllowed: retakes,
	}
}

func secondaryConfig(period *int) models.GradeComputationConfig {
	return models.GradeComputationConfig{
		CalendarType:  models.CalendarSecondary,
		PassThreshold: 10,
		PeriodNumber:  period,
	}
}

func TestComputeGradeHigherTwoExamsNoAssignment(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 12, 0),
		score(models.AssessmentExam, "Exam 2", 8, 30),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	require.NotNil(t, result.PartialGrade)
	assert.Equal(t, 10.0, *result.PartialGrade)
	assert.Equal(t, 10.0, result.FinalGrade)
	assert.Equal(t, models.GradePassed, result.Status)
}

func TestComputeGradeHigherAssignmentWeighting(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 10, 0),
		score(models.AssessmentExam, "Exam 2", 10, 30),
		score(models.AssessmentAssignment, "Project", 15, 10),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	// 10*0.8 + 15*0.2
	assert.Equal(t, 11.0, result.FinalGrade)
	assert.Equal(t, models.GradePassed, result.Status)
}

func TestComputeGradeHigherBelowRetakeFloorIgnoresRetake(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 6, 0),
		score(models.AssessmentExam, "Exam 2", 6, 30),
		score(models.AssessmentRetake, "Recurso", 9, 60),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	require.NotNil(t, result.PartialGrade)
	assert.Equal(t, 6.0, *result.PartialGrade)
	// Partial below 7 never reaches retake admission: the retake score must
	// not be averaged in and the status stays FAILED.
	assert.Equal(t, 6.0, result.FinalGrade)
	assert.Equal(t, models.GradeFailed, result.Status)
}

func TestComputeGradeHigherRetakeApplied(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 8, 0),
		score(models.AssessmentExam, "Exam 2", 8, 30),
		score(models.AssessmentRetake, "Recurso", 12, 60),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	require.NotNil(t, result.PartialGrade)
	assert.Equal(t, 8.0, *result.PartialGrade)
	assert.Equal(t, 10.0, result.FinalGrade)
	assert.Equal(t, models.GradePassed, result.Status)
}

func TestComputeGradeHigherRetakeAdmissionWithoutScoreFails(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 8, 0),
		score(models.AssessmentExam, "Exam 2", 8, 30),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	assert.Equal(t, 8.0, result.FinalGrade)
	assert.Equal(t, models.GradeFailed, result.Status)
	assert.Contains(t, result.Notes, "admitted to retake exam; no retake score recorded")
}

func TestComputeGradeHigherRetakesDisabled(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 8, 0),
		score(models.AssessmentExam, "Exam 2", 8, 30),
		score(models.AssessmentRetake, "Recurso", 20, 60),
	}

	result, err := ComputeGrade(scores, higherConfig(false))
	require.NoError(t, err)

	assert.Equal(t, 8.0, result.FinalGrade)
	assert.Equal(t, models.GradeFailed, result.Status)
}

func TestComputeGradeHigherNoExamsIsPendingNotError(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentAssignment, "Project", 14, 0),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.FinalGrade)
	assert.Equal(t, models.GradeFailed, result.Status)
	assert.Contains(t, result.Notes, "no exam scores recorded; grade pending")
}

func TestComputeGradeHigherPendingBreakdownKeepsAssignment(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentAssignment, "Project", 14, 0),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	// A pending result still reports every entered score in its breakdown.
	require.Len(t, result.Breakdown, 5)
	assert.Equal(t, "Assignment", result.Breakdown[3].Label)
	require.NotNil(t, result.Breakdown[3].Value)
	assert.Equal(t, 14.0, *result.Breakdown[3].Value)
	assert.Nil(t, result.Breakdown[0].Value)
}

func TestComputeGradeHigherDuplicateAssignmentAdvisory(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 10, 0),
		score(models.AssessmentAssignment, "Project A", 10, 5),
		score(models.AssessmentAssignment, "Project B", 20, 15),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	// First assignment by date wins; the duplicate is reported, not an error.
	assert.Equal(t, 10.0, result.FinalGrade)
	assert.Contains(t, result.Notes, `ignored duplicate assignment "Project B"`)
}

func TestComputeGradeHigherBreakdownAlwaysHasAllSlots(t *testing.T) {
	result, err := ComputeGrade(nil, higherConfig(true))
	require.NoError(t, err)

	labels := make([]string, 0, len(result.Breakdown))
	for _, slot := range result.Breakdown {
		labels = append(labels, slot.Label)
		assert.Nil(t, slot.Value)
	}
	assert.Equal(t, []string{"Exam1", "Exam2", "Exam3", "Assignment", "Retake"}, labels)
}

func TestComputeGradeHigherExamSlotByNameDigit(t *testing.T) {
	// The second exam is dated earlier but its name pins it to slot 2.
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exame 2", 14, 0),
		score(models.AssessmentExam, "Exame 1", 8, 30),
	}

	result, err := ComputeGrade(scores, higherConfig(true))
	require.NoError(t, err)

	require.NotNil(t, result.Breakdown[0].Value)
	require.NotNil(t, result.Breakdown[1].Value)
	assert.Equal(t, 8.0, *result.Breakdown[0].Value)
	assert.Equal(t, 14.0, *result.Breakdown[1].Value)
}

func TestComputeGradeSecondarySinglePeriod(t *testing.T) {
	continuous := score(models.AssessmentTest, "Avaliação contínua", 14, 0)
	continuous.PeriodNumber = ptrInt(1)
	exam := score(models.AssessmentExam, "Exame", 12, 10)
	exam.PeriodNumber = ptrInt(1)

	result, err := ComputeGrade([]models.ScoreRecord{continuous, exam}, secondaryConfig(ptrInt(1)))
	require.NoError(t, err)

	assert.Equal(t, 13.0, result.FinalGrade)
	assert.Equal(t, models.GradePassed, result.Status)
	require.NotNil(t, result.Breakdown[0].Value)
	assert.Equal(t, 13.0, *result.Breakdown[0].Value)
}

func TestComputeGradeSecondaryYearMeanOfAvailablePeriods(t *testing.T) {
	p1 := score(models.AssessmentExam, "Exame", 13, 0)
	p1.PeriodNumber = ptrInt(1)
	p2 := score(models.AssessmentExam, "Exame", 9.5, 90)
	p2.PeriodNumber = ptrInt(2)

	result, err := ComputeGrade([]models.ScoreRecord{p1, p2}, secondaryConfig(nil))
	require.NoError(t, err)

	// Period 3 absent: year grade is the mean of the periods present.
	assert.Equal(t, 11.25, result.FinalGrade)
	assert.Equal(t, models.GradePassed, result.Status)
	assert.Nil(t, result.Breakdown[2].Value)
}

func TestComputeGradeSecondaryExamPeriodParsedFromLabel(t *testing.T) {
	exam := score(models.AssessmentExam, "Exame do 2º trimestre", 12, 0)

	result, err := ComputeGrade([]models.ScoreRecord{exam}, secondaryConfig(nil))
	require.NoError(t, err)

	require.NotNil(t, result.Breakdown[1].Value)
	assert.Equal(t, 12.0, *result.Breakdown[1].Value)
}

func TestComputeGradeSecondaryFlatMeanFallback(t *testing.T) {
	// Continuous scores without any period identity.
	a := score(models.AssessmentTest, "Teste A", 10, 0)
	b := score(models.AssessmentTest, "Teste B", 14, 10)

	result, err := ComputeGrade([]models.ScoreRecord{a, b}, secondaryConfig(nil))
	require.NoError(t, err)

	assert.Equal(t, 12.0, result.FinalGrade)
	assert.Contains(t, result.Notes, "no period identified on any score; used flat mean of all scores")
}

func TestComputeGradeSecondaryEmptyPeriodPending(t *testing.T) {
	result, err := ComputeGrade(nil, secondaryConfig(ptrInt(2)))
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.FinalGrade)
	assert.Equal(t, models.GradeFailed, result.Status)
	assert.Contains(t, result.Notes, "no scores recorded for period 2; grade pending")
}

func TestComputeGradeRejectsOutOfRangeScore(t *testing.T) {
	bad := score(models.AssessmentExam, "Exam 1", 25, 0)

	_, err := ComputeGrade([]models.ScoreRecord{bad}, higherConfig(true))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the 0-20 scale")
}

func TestComputeGradeDeterministic(t *testing.T) {
	scores := []models.ScoreRecord{
		score(models.AssessmentExam, "Exam 1", 12, 0),
		score(models.AssessmentExam, "Exam 2", 8, 30),
		score(models.AssessmentAssignment, "Project", 16, 10),
	}
	cfg := higherConfig(true)

	first, err := ComputeGrade(scores, cfg)
	require.NoError(t, err)
	second, err := ComputeGrade(scores, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
