package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleDirector    UserRole = "DIRECTOR"
	RoleCoordinator UserRole = "COORDINATOR"
	RoleSecretary   UserRole = "SECRETARY"
	RoleTeacher     UserRole = "TEACHER"
	RoleStudent     UserRole = "STUDENT"
)

// AdminTier reports whether the role bypasses ownership and workflow-state checks.
func (r UserRole) AdminTier() bool {
	return r == RoleAdmin || r == RoleDirector
}

// StaffEditor reports whether the role carries staff-level edit rights on
// academic records (coordinators and secretaries, besides the admin tier).
func (r UserRole) StaffEditor() bool {
	return r.AdminTier() || r == RoleCoordinator || r == RoleSecretary
}

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDirector, RoleCoordinator, RoleSecretary, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID            string     `db:"id" json:"id"`
	InstitutionID string     `db:"institution_id" json:"institution_id"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	FullName      string     `db:"full_name" json:"full_name"`
	Role          UserRole   `db:"role" json:"role"`
	Active        bool       `db:"active" json:"active"`
	LastLogin     *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
