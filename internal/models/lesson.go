package models

import "time"

// PlannedLesson declares an intended lesson and how many times it should be
// delivered within a period. The declared quantity is a closure prerequisite:
// a period cannot close while deliveries fall short of it.
type PlannedLesson struct {
	ID           string `db:"id" json:"id"`
	LessonPlanID string `db:"lesson_plan_id" json:"lesson_plan_id"`
	Title        string `db:"title" json:"title"`
	PeriodNumber int    `db:"period_number" json:"period_number"`
	Quantity     int    `db:"quantity" json:"quantity"`
	// AuthorTeacherID is set when a teacher (not staff) authored the row;
	// the staff first-write policy keys off its presence.
	AuthorTeacherID *string   `db:"author_teacher_id" json:"author_teacher_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DeliveredLesson records an actual occurrence of a planned lesson on a date.
type DeliveredLesson struct {
	ID              string    `db:"id" json:"id"`
	PlannedLessonID string    `db:"planned_lesson_id" json:"planned_lesson_id"`
	Date            time.Time `db:"date" json:"date"`
	Summary         *string   `db:"summary" json:"summary,omitempty"`
	AuthorTeacherID *string   `db:"author_teacher_id" json:"author_teacher_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "PRESENT"
	AttendanceAbsent    AttendanceStatus = "ABSENT"
	AttendanceJustified AttendanceStatus = "JUSTIFIED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceJustified:
		return true
	default:
		return false
	}
}

// Attendance is one student's record for one delivered lesson.
type Attendance struct {
	ID                string           `db:"id" json:"id"`
	DeliveredLessonID string           `db:"delivered_lesson_id" json:"delivered_lesson_id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	Status            AttendanceStatus `db:"status" json:"status"`
	AuthorTeacherID   *string          `db:"author_teacher_id" json:"author_teacher_id,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// LessonDeliveryProgress pairs a planned lesson with its delivery and
// attendance completeness, as inspected by period closure.
type LessonDeliveryProgress struct {
	PlannedLessonID string `db:"planned_lesson_id" json:"planned_lesson_id"`
	Title           string `db:"title" json:"title"`
	PeriodNumber    int    `db:"period_number" json:"period_number"`
	Quantity        int    `db:"quantity" json:"quantity"`
	DeliveredCount  int    `db:"delivered_count" json:"delivered_count"`
}

// DeliveredLessonAttendanceGap reports a delivered lesson whose attendance
// is incomplete against the current enrollment of the subject/year.
type DeliveredLessonAttendanceGap struct {
	DeliveredLessonID string    `db:"delivered_lesson_id" json:"delivered_lesson_id"`
	Date              time.Time `db:"date" json:"date"`
	Title             string    `db:"title" json:"title"`
	AttendanceCount   int       `db:"attendance_count" json:"attendance_count"`
	EnrolledCount     int       `db:"enrolled_count" json:"enrolled_count"`
}
