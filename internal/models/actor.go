package models

// ActorContext identifies who is performing an operation. It is built once per
// request from the verified token claims and passed explicitly into every
// permission and workflow check; there is no implicit "current user".
type ActorContext struct {
	UserID        string   `json:"user_id"`
	InstitutionID string   `json:"institution_id"`
	Role          UserRole `json:"role"`
	// TeacherID is the owning teacher-profile identity when the user has one.
	// It is distinct from UserID: ownership comparisons are always made
	// against the teacher profile, never the login account.
	TeacherID *string `json:"teacher_id,omitempty"`
	// StudentID is the student-profile identity for student accounts; report
	// card access for students is matched against it.
	StudentID *string `json:"student_id,omitempty"`
}

// ActorFromClaims builds an ActorContext from verified JWT claims.
func ActorFromClaims(claims *JWTClaims) ActorContext {
	return ActorContext{
		UserID:        claims.UserID,
		InstitutionID: claims.InstitutionID,
		Role:          claims.Role,
		TeacherID:     claims.TeacherID,
		StudentID:     claims.StudentID,
	}
}
