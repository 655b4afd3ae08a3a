package models

import "time"

// PlanState tracks the lesson-plan approval workflow.
type PlanState string

const (
	PlanDraft    PlanState = "DRAFT"
	PlanInReview PlanState = "IN_REVIEW"
	PlanApproved PlanState = "APPROVED"
	PlanClosed   PlanState = "CLOSED"
)

// Valid returns true when the state is a supported value.
func (s PlanState) Valid() bool {
	switch s {
	case PlanDraft, PlanInReview, PlanApproved, PlanClosed:
		return true
	default:
		return false
	}
}

// LessonPlan is a teacher's teaching assignment for one subject within one
// academic year. It gates every downstream academic action: lessons,
// attendance and assessments may only be created under an active plan.
type LessonPlan struct {
	ID             string    `db:"id" json:"id"`
	InstitutionID  string    `db:"institution_id" json:"institution_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	ClassID        *string   `db:"class_id" json:"class_id,omitempty"`
	State          PlanState `db:"state" json:"state"`
	// Locked is an administrative hold independent of the workflow state.
	Locked    bool      `db:"locked" json:"locked"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the plan permits lesson, attendance and assessment
// mutation: approved and not locked.
func (p *LessonPlan) Active() bool {
	return p.State == PlanApproved && !p.Locked
}

// LessonPlanFilter scopes plan listings.
type LessonPlanFilter struct {
	InstitutionID  string
	AcademicYearID string
	TeacherID      string
	State          PlanState
}
