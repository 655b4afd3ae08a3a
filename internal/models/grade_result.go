package models

// GradeStatus is the derived pass/fail outcome of a computation.
type GradeStatus string

const (
	GradePassed GradeStatus = "PASSED"
	GradeFailed GradeStatus = "FAILED"
	// GradeRetakeExam marks a student admitted to the retake (recurso) exam:
	// the partial grade fell below the pass threshold but not below 7.
	GradeRetakeExam GradeStatus = "RETAKE_EXAM"
)

// GradeComputationConfig carries the per-institution knobs the engine needs.
type GradeComputationConfig struct {
	CalendarType   CalendarType `json:"calendar_type"`
	PassThreshold  float64      `json:"pass_threshold"`
	RetakesAllowed bool         `json:"retakes_allowed"`
	// PeriodNumber restricts a secondary-calendar computation to a single
	// period; nil means whole-year.
	PeriodNumber *int `json:"period_number,omitempty"`
}

// GradeSlot is one labelled cell of the computation breakdown. Value stays
// nil for expected-but-absent scores so report rendering can show blank
// cells consistently.
type GradeSlot struct {
	Label string   `json:"label"`
	Value *float64 `json:"value"`
}

// GradeResult is the outcome of a grade computation.
type GradeResult struct {
	Status       GradeStatus `json:"status"`
	FinalGrade   float64     `json:"final_grade"`
	PartialGrade *float64    `json:"partial_grade,omitempty"`
	Breakdown    []GradeSlot `json:"breakdown"`
	Notes        []string    `json:"notes,omitempty"`
}

// ReportCard wraps a computed result with its scope for API consumers.
type ReportCard struct {
	StudentID      string      `json:"student_id"`
	LessonPlanID   string      `json:"lesson_plan_id"`
	SubjectID      string      `json:"subject_id"`
	AcademicYearID string      `json:"academic_year_id"`
	Result         GradeResult `json:"result"`
	FromCache      bool        `json:"-"`
}
