package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusLeft        EnrollmentStatus = "LEFT"
)

// Enrollment registers a student to a subject within an academic year.
// Attendance completeness at period closure is measured against the
// currently active enrollments of the subject/year.
type Enrollment struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	SubjectID      string           `db:"subject_id" json:"subject_id"`
	AcademicYearID string           `db:"academic_year_id" json:"academic_year_id"`
	JoinedAt       time.Time        `db:"joined_at" json:"joined_at"`
	LeftAt         *time.Time       `db:"left_at" json:"left_at,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
}
