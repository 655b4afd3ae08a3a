package models

import (
	"fmt"
	"time"
)

// PeriodToken addresses the unit being closed: a numbered trimester or
// semester, or the whole academic year.
type PeriodToken string

const (
	TokenTrimester1 PeriodToken = "TRIMESTER_1"
	TokenTrimester2 PeriodToken = "TRIMESTER_2"
	TokenTrimester3 PeriodToken = "TRIMESTER_3"
	TokenSemester1  PeriodToken = "SEMESTER_1"
	TokenSemester2  PeriodToken = "SEMESTER_2"
	TokenYear       PeriodToken = "YEAR"
)

// ParsePeriodToken validates a raw token string.
func ParsePeriodToken(raw string) (PeriodToken, error) {
	token := PeriodToken(raw)
	switch token {
	case TokenTrimester1, TokenTrimester2, TokenTrimester3, TokenSemester1, TokenSemester2, TokenYear:
		return token, nil
	default:
		return "", fmt.Errorf("unknown period token %q", raw)
	}
}

// IsYear reports whether the token addresses the whole year.
func (t PeriodToken) IsYear() bool {
	return t == TokenYear
}

// Kind returns the period kind a numbered token addresses. The result is
// meaningless for the YEAR token.
func (t PeriodToken) Kind() PeriodKind {
	switch t {
	case TokenSemester1, TokenSemester2:
		return PeriodKindSemester
	default:
		return PeriodKindTrimester
	}
}

// Number returns the ordinal the token addresses, or 0 for YEAR.
func (t PeriodToken) Number() int {
	switch t {
	case TokenTrimester1, TokenSemester1:
		return 1
	case TokenTrimester2, TokenSemester2:
		return 2
	case TokenTrimester3:
		return 3
	default:
		return 0
	}
}

// CompatibleWith checks the token against an institution calendar. Trimester
// tokens belong to secondary calendars, semester tokens to higher education;
// YEAR fits both.
func (t PeriodToken) CompatibleWith(calendar CalendarType) bool {
	if t.IsYear() {
		return true
	}
	if calendar == CalendarHigher {
		return t.Kind() == PeriodKindSemester
	}
	return t.Kind() == PeriodKindTrimester
}

// ClosureStatus tracks the closure state machine of a period or year.
type ClosureStatus string

const (
	ClosureOpen     ClosureStatus = "OPEN"
	ClosureClosing  ClosureStatus = "CLOSING"
	ClosureClosed   ClosureStatus = "CLOSED"
	ClosureReopened ClosureStatus = "REOPENED"
)

// ClosureCloseParams describes the atomic close: the record compare-and-swap
// plus the period (and, for YEAR, plan) status cascade, all in one
// transaction.
type ClosureCloseParams struct {
	InstitutionID   string
	Year            int
	AcademicYearID  string
	PeriodToken     PeriodToken
	ActorUserID     string
	Justification   *string
	PeriodNumber    int
	CloseAllPeriods bool
	ClosePlans      bool
}

// ClosureReopenParams describes the atomic reopen cascade.
type ClosureReopenParams struct {
	InstitutionID  string
	Year           int
	AcademicYearID string
	PeriodToken    PeriodToken
	ActorUserID    string
	Justification  string
	PeriodNumber   int
	ReopenAll      bool
}

// ClosureRecord is unique per (institution, academic year, period token).
// The uniqueness constraint doubles as the concurrency guard for the
// close/reopen compare-and-swap.
type ClosureRecord struct {
	ID            string        `db:"id" json:"id"`
	InstitutionID string        `db:"institution_id" json:"institution_id"`
	Year          int           `db:"year" json:"year"`
	PeriodToken   PeriodToken   `db:"period_token" json:"period_token"`
	Status        ClosureStatus `db:"status" json:"status"`
	ClosedBy      *string       `db:"closed_by" json:"closed_by,omitempty"`
	ClosedAt      *time.Time    `db:"closed_at" json:"closed_at,omitempty"`
	ReopenedBy    *string       `db:"reopened_by" json:"reopened_by,omitempty"`
	ReopenedAt    *time.Time    `db:"reopened_at" json:"reopened_at,omitempty"`
	Justification *string       `db:"justification" json:"justification,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
