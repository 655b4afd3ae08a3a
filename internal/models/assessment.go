package models

import "time"

// AssessmentKind classifies how a score feeds grade computation.
type AssessmentKind string

const (
	AssessmentExam       AssessmentKind = "EXAM"
	AssessmentTest       AssessmentKind = "TEST"
	AssessmentAssignment AssessmentKind = "ASSIGNMENT"
	AssessmentRetake     AssessmentKind = "RETAKE"
	AssessmentFinalExam  AssessmentKind = "FINAL_EXAM"
)

// Valid returns true when the kind is a supported value.
func (k AssessmentKind) Valid() bool {
	switch k {
	case AssessmentExam, AssessmentTest, AssessmentAssignment, AssessmentRetake, AssessmentFinalExam:
		return true
	default:
		return false
	}
}

// Assessment is an evaluation instrument under a lesson plan. Once closed,
// its grades are frozen: no new or modified Grade rows may reference it.
type Assessment struct {
	ID              string         `db:"id" json:"id"`
	LessonPlanID    string         `db:"lesson_plan_id" json:"lesson_plan_id"`
	Kind            AssessmentKind `db:"kind" json:"kind"`
	Name            string         `db:"name" json:"name"`
	PeriodNumber    *int           `db:"period_number" json:"period_number,omitempty"`
	Weight          float64        `db:"weight" json:"weight"`
	Closed          bool           `db:"closed" json:"closed"`
	AuthorTeacherID *string        `db:"author_teacher_id" json:"author_teacher_id,omitempty"`
	Date            time.Time      `db:"date" json:"date"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Grade is one student's score for an assessment. A nil value means the
// score has not been entered yet.
type Grade struct {
	ID              string    `db:"id" json:"id"`
	AssessmentID    string    `db:"assessment_id" json:"assessment_id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	Value           *float64  `db:"value" json:"value"`
	AuthorTeacherID *string   `db:"author_teacher_id" json:"author_teacher_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ScoreRecord joins a grade with its assessment metadata; it is the raw
// input row consumed by grade computation.
type ScoreRecord struct {
	AssessmentID string         `db:"assessment_id" json:"assessment_id"`
	Kind         AssessmentKind `db:"kind" json:"kind"`
	Name         string         `db:"name" json:"name"`
	PeriodNumber *int           `db:"period_number" json:"period_number,omitempty"`
	Date         time.Time      `db:"date" json:"date"`
	Value        *float64       `db:"value" json:"value"`
}
