package models

import "time"

// Teacher is the teaching-profile identity, distinct from the login account.
// Ownership of lesson plans and authored grades always references this
// identity, never the user id.
type Teacher struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	InstitutionID string    `db:"institution_id" json:"institution_id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
