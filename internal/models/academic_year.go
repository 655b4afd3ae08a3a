package models

import "time"

// AcademicYearStatus tracks the lifecycle of a year container.
type AcademicYearStatus string

const (
	AcademicYearActive AcademicYearStatus = "ACTIVE"
	AcademicYearClosed AcademicYearStatus = "CLOSED"
)

// AcademicYear is the top-level yearly container for an institution. It owns
// the Periods of the institution calendar and is never hard-deleted while
// referenced by plans or closure records.
type AcademicYear struct {
	ID            string             `db:"id" json:"id"`
	InstitutionID string             `db:"institution_id" json:"institution_id"`
	Year          int                `db:"year" json:"year"`
	Status        AcademicYearStatus `db:"status" json:"status"`
	StartDate     time.Time          `db:"start_date" json:"start_date"`
	EndDate       time.Time          `db:"end_date" json:"end_date"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// PeriodKind distinguishes trimesters from semesters. An institution only
// ever holds one kind, mirroring its calendar type.
type PeriodKind string

const (
	PeriodKindTrimester PeriodKind = "TRIMESTER"
	PeriodKindSemester  PeriodKind = "SEMESTER"
)

// PeriodStatus mirrors the owning ClosureRecord state onto the period row.
type PeriodStatus string

const (
	PeriodActive PeriodStatus = "ACTIVE"
	PeriodClosed PeriodStatus = "CLOSED"
)

// Period is a Trimester or Semester subdivision of an AcademicYear.
type Period struct {
	ID             string       `db:"id" json:"id"`
	AcademicYearID string       `db:"academic_year_id" json:"academic_year_id"`
	Kind           PeriodKind   `db:"kind" json:"kind"`
	Number         int          `db:"number" json:"number"`
	Status         PeriodStatus `db:"status" json:"status"`
	StartDate      time.Time    `db:"start_date" json:"start_date"`
	EndDate        time.Time    `db:"end_date" json:"end_date"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}
