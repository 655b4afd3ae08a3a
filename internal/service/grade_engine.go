package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mindelo-dev/registo-api/internal/models"
	appErrors "github.com/mindelo-dev/registo-api/pkg/errors"
)

// The grade engine is pure: it consumes score records and configuration and
// produces a result, with no side effects. The same inputs always yield the
// same output, so callers may recompute freely (report cards, previews).

const (
	// retakeAdmissionFloor is the lowest partial grade that still admits a
	// student to the retake exam. Below it the student fails outright.
	retakeAdmissionFloor = 7.0

	higherExamSlots      = 3
	secondaryPeriodSlots = 3
)

// ComputeGrade derives the final grade and pass/fail status from raw scores
// under the institution calendar selected by the configuration. Scores with
// nil values are treated as not yet entered. Absence of usable scores never
// raises an error; it yields a pending zero result with an advisory note.
func ComputeGrade(scores []models.ScoreRecord, cfg models.GradeComputationConfig) (*models.GradeResult, error) {
	if !cfg.CalendarType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown calendar type %q", cfg.CalendarType))
	}
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = models.DefaultPassThreshold
	}
	if err := validateScores(scores); err != nil {
		return nil, err
	}

	if cfg.CalendarType == models.CalendarHigher {
		return computeHigherEducation(scores, cfg), nil
	}
	return computeSecondary(scores, cfg), nil
}

// validateScores rejects any entered value outside the 0-20 scale before
// computation begins.
func validateScores(scores []models.ScoreRecord) error {
	for _, score := range scores {
		if score.Value == nil {
			continue
		}
		if *score.Value < 0 || *score.Value > 20 {
			return appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("score %.2f for %q is outside the 0-20 scale", *score.Value, score.Name))
		}
	}
	return nil
}

// selectPrimary picks the chronologically first entered score and returns the
// ignored duplicates, so callers can surface an advisory note instead of
// silently dropping data.
func selectPrimary(rows []models.ScoreRecord) (*models.ScoreRecord, []models.ScoreRecord) {
	entered := make([]models.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		if row.Value != nil {
			entered = append(entered, row)
		}
	}
	if len(entered) == 0 {
		return nil, nil
	}
	sort.SliceStable(entered, func(i, j int) bool { return entered[i].Date.Before(entered[j].Date) })
	return &entered[0], entered[1:]
}

func computeHigherEducation(scores []models.ScoreRecord, cfg models.GradeComputationConfig) *models.GradeResult {
	var exams, assignments, retakes []models.ScoreRecord
	for _, score := range scores {
		if score.Value == nil {
			continue
		}
		switch score.Kind {
		case models.AssessmentExam, models.AssessmentFinalExam:
			exams = append(exams, score)
		case models.AssessmentAssignment:
			assignments = append(assignments, score)
		case models.AssessmentRetake:
			retakes = append(retakes, score)
		}
	}

	result := &models.GradeResult{Breakdown: higherBreakdownSlots()}

	examSlots, fallbackUsed := assignExamSlots(exams)
	for i, exam := range examSlots {
		if exam != nil {
			result.Breakdown[i].Value = exam.Value
		}
	}
	if fallbackUsed {
		result.Notes = append(result.Notes, "exam order resolved chronologically; exam names did not identify their slot")
	}

	assignment, ignoredAssignments := selectPrimary(assignments)
	if assignment != nil {
		setSlot(result.Breakdown, "Assignment", assignment.Value)
	}
	for _, ignored := range ignoredAssignments {
		result.Notes = append(result.Notes, fmt.Sprintf("ignored duplicate assignment %q", ignored.Name))
	}

	// The breakdown above already carries every entered score, so a pending
	// result still shows the assignment slot.
	if len(exams) == 0 {
		result.Status = models.GradeFailed
		result.FinalGrade = 0
		result.Notes = append(result.Notes, "no exam scores recorded; grade pending")
		return result
	}

	sum := 0.0
	for _, exam := range exams {
		sum += *exam.Value
	}
	examsAverage := sum / float64(len(exams))

	partial := examsAverage
	if assignment != nil {
		partial = examsAverage*0.8 + *assignment.Value*0.2
	}

	partial = round2(partial)
	result.PartialGrade = &partial

	status := models.GradeFailed
	switch {
	case partial >= cfg.PassThreshold:
		status = models.GradePassed
	case partial >= retakeAdmissionFloor && cfg.RetakesAllowed:
		status = models.GradeRetakeExam
	}

	retake, ignoredRetakes := selectPrimary(retakes)
	for _, ignored := range ignoredRetakes {
		result.Notes = append(result.Notes, fmt.Sprintf("ignored duplicate retake %q", ignored.Name))
	}

	// The retake only applies to students admitted to it. A failing partial
	// below the admission floor stays FAILED even when a retake score exists.
	if status == models.GradeRetakeExam && retake != nil && cfg.RetakesAllowed {
		setSlot(result.Breakdown, "Retake", retake.Value)
		final := round2((partial + *retake.Value) / 2)
		result.FinalGrade = final
		if final >= cfg.PassThreshold {
			result.Status = models.GradePassed
		} else {
			result.Status = models.GradeFailed
		}
		return result
	}

	result.FinalGrade = partial
	if status == models.GradePassed {
		result.Status = models.GradePassed
	} else {
		if status == models.GradeRetakeExam {
			result.Notes = append(result.Notes, "admitted to retake exam; no retake score recorded")
		}
		result.Status = models.GradeFailed
	}
	return result
}

func higherBreakdownSlots() []models.GradeSlot {
	return []models.GradeSlot{
		{Label: "Exam1"}, {Label: "Exam2"}, {Label: "Exam3"},
		{Label: "Assignment"}, {Label: "Retake"},
	}
}

// assignExamSlots identifies Exam1/Exam2/Exam3 by a digit in the assessment
// name, falling back to chronological order for the rest. It reports whether
// the fallback was needed.
func assignExamSlots(exams []models.ScoreRecord) ([higherExamSlots]*models.ScoreRecord, bool) {
	var slots [higherExamSlots]*models.ScoreRecord
	var unplaced []models.ScoreRecord

	for i := range exams {
		n := digitInName(exams[i].Name)
		if n >= 1 && n <= higherExamSlots && slots[n-1] == nil {
			slots[n-1] = &exams[i]
			continue
		}
		unplaced = append(unplaced, exams[i])
	}

	fallbackUsed := len(unplaced) > 0
	sort.SliceStable(unplaced, func(i, j int) bool { return unplaced[i].Date.Before(unplaced[j].Date) })
	for i := range unplaced {
		for s := range slots {
			if slots[s] == nil {
				slots[s] = &unplaced[i]
				break
			}
		}
	}
	return slots, fallbackUsed
}

// digitInName returns the first single digit found in a name, or 0.
func digitInName(name string) int {
	for _, r := range name {
		if r >= '1' && r <= '9' {
			return int(r - '0')
		}
	}
	return 0
}

func computeSecondary(scores []models.ScoreRecord, cfg models.GradeComputationConfig) *models.GradeResult {
	result := &models.GradeResult{Breakdown: secondaryBreakdownSlots()}

	byPeriod := make(map[int][]models.ScoreRecord)
	var unidentified []models.ScoreRecord
	for _, score := range scores {
		if score.Value == nil {
			continue
		}
		period := scorePeriod(score)
		if period < 1 || period > secondaryPeriodSlots {
			unidentified = append(unidentified, score)
			continue
		}
		byPeriod[period] = append(byPeriod[period], score)
	}

	if cfg.PeriodNumber != nil {
		return secondarySinglePeriod(result, byPeriod[*cfg.PeriodNumber], *cfg.PeriodNumber, cfg)
	}

	var periodGrades []float64
	for period := 1; period <= secondaryPeriodSlots; period++ {
		grade, ok, notes := periodGrade(byPeriod[period])
		result.Notes = append(result.Notes, notes...)
		if !ok {
			continue
		}
		grade = round2(grade)
		result.Breakdown[period-1].Value = &grade
		periodGrades = append(periodGrades, grade)
	}

	if len(periodGrades) == 0 {
		// No score carried a period identity; fall back to a flat mean of
		// everything entered rather than failing the computation.
		if len(unidentified) == 0 {
			result.Status = models.GradeFailed
			result.FinalGrade = 0
			result.Notes = append(result.Notes, "no scores recorded; grade pending")
			return result
		}
		sum := 0.0
		for _, score := range unidentified {
			sum += *score.Value
		}
		result.FinalGrade = round2(sum / float64(len(unidentified)))
		result.Notes = append(result.Notes, "no period identified on any score; used flat mean of all scores")
	} else {
		sum := 0.0
		for _, grade := range periodGrades {
			sum += grade
		}
		result.FinalGrade = round2(sum / float64(len(periodGrades)))
	}

	if result.FinalGrade >= cfg.PassThreshold {
		result.Status = models.GradePassed
	} else {
		result.Status = models.GradeFailed
	}
	return result
}

func secondarySinglePeriod(result *models.GradeResult, scores []models.ScoreRecord, period int, cfg models.GradeComputationConfig) *models.GradeResult {
	grade, ok, notes := periodGrade(scores)
	result.Notes = append(result.Notes, notes...)
	if !ok {
		result.Status = models.GradeFailed
		result.FinalGrade = 0
		result.Notes = append(result.Notes, fmt.Sprintf("no scores recorded for period %d; grade pending", period))
		return result
	}
	grade = round2(grade)
	result.Breakdown[period-1].Value = &grade
	result.FinalGrade = grade
	if grade >= cfg.PassThreshold {
		result.Status = models.GradePassed
	} else {
		result.Status = models.GradeFailed
	}
	return result
}

// periodGrade combines a period's continuous assessment with its period exam:
// the mean of both when both are present, otherwise whichever exists.
func periodGrade(scores []models.ScoreRecord) (float64, bool, []string) {
	var exams, continuous []models.ScoreRecord
	for _, score := range scores {
		switch score.Kind {
		case models.AssessmentExam, models.AssessmentFinalExam:
			exams = append(exams, score)
		default:
			continuous = append(continuous, score)
		}
	}

	var notes []string
	exam, ignoredExams := selectPrimary(exams)
	for _, ignored := range ignoredExams {
		notes = append(notes, fmt.Sprintf("ignored duplicate period exam %q", ignored.Name))
	}
	assessment, ignoredContinuous := selectPrimary(continuous)
	for _, ignored := range ignoredContinuous {
		notes = append(notes, fmt.Sprintf("ignored duplicate continuous assessment %q", ignored.Name))
	}

	switch {
	case exam != nil && assessment != nil:
		return (*exam.Value + *assessment.Value) / 2, true, notes
	case exam != nil:
		return *exam.Value, true, notes
	case assessment != nil:
		return *assessment.Value, true, notes
	default:
		return 0, false, notes
	}
}

func secondaryBreakdownSlots() []models.GradeSlot {
	return []models.GradeSlot{
		{Label: "Period1"}, {Label: "Period2"}, {Label: "Period3"},
	}
}

// scorePeriod resolves the period a score belongs to: the assessment's own
// period field when set, else a digit parsed from labels such as
// "1st period exam" or "Exame do 2º trimestre".
func scorePeriod(score models.ScoreRecord) int {
	if score.PeriodNumber != nil {
		return *score.PeriodNumber
	}
	if score.Kind == models.AssessmentExam || score.Kind == models.AssessmentFinalExam {
		return digitInName(strings.ToLower(score.Name))
	}
	return 0
}

func setSlot(slots []models.GradeSlot, label string, value *float64) {
	for i := range slots {
		if slots[i].Label == label {
			slots[i].Value = value
			return
		}
	}
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
