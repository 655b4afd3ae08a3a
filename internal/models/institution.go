package models

import (
	"time"

	"github.com/lib/pq"
)

// CalendarType distinguishes the two supported institutional calendars.
type CalendarType string

const (
	// CalendarSecondary divides the academic year into three trimesters.
	CalendarSecondary CalendarType = "SECONDARY"
	// CalendarHigher divides the academic year into two semesters.
	CalendarHigher CalendarType = "HIGHER"
)

// Valid returns true when the calendar type is supported.
func (c CalendarType) Valid() bool {
	return c == CalendarSecondary || c == CalendarHigher
}

// PeriodsPerYear returns how many numbered periods the calendar defines.
func (c CalendarType) PeriodsPerYear() int {
	if c == CalendarHigher {
		return 2
	}
	return 3
}

// Institution is the tenant: a school (secondary calendar) or a university
// (higher-education calendar). Grading behaviour is configured per tenant.
type Institution struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	CalendarType CalendarType `db:"calendar_type" json:"calendar_type"`
	// PassThreshold is the minimum final grade considered a pass, on the
	// 0-20 scale. Defaults to 10 when unset.
	PassThreshold  float64 `db:"pass_threshold" json:"pass_threshold"`
	RetakesAllowed bool    `db:"retakes_allowed" json:"retakes_allowed"`
	// GradeEntryRoles whitelists the roles allowed to alter grades at all,
	// independent of ownership checks.
	GradeEntryRoles pq.StringArray `db:"grade_entry_roles" json:"grade_entry_roles"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultPassThreshold is applied when an institution has no explicit threshold.
const DefaultPassThreshold = 10.0

// EffectivePassThreshold resolves the configured threshold with the default.
func (i *Institution) EffectivePassThreshold() float64 {
	if i.PassThreshold <= 0 {
		return DefaultPassThreshold
	}
	return i.PassThreshold
}

// MayEnterGrades checks the per-institution grade-entry whitelist. An empty
// whitelist admits the admin tier and teachers.
func (i *Institution) MayEnterGrades(role UserRole) bool {
	if len(i.GradeEntryRoles) == 0 {
		return role.AdminTier() || role == RoleTeacher
	}
	for _, allowed := range i.GradeEntryRoles {
		if UserRole(allowed) == role {
			return true
		}
	}
	return false
}
