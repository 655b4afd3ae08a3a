package models

import "time"

// Student is the student-profile identity enrollments and grades reference.
// Like Teacher it is distinct from the login account; UserID links the two
// when the student has portal access.
type Student struct {
	ID            string     `db:"id" json:"id"`
	UserID        *string    `db:"user_id" json:"user_id,omitempty"`
	InstitutionID string     `db:"institution_id" json:"institution_id"`
	FullName      string     `db:"full_name" json:"full_name"`
	BirthDate     *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
