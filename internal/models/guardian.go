package models

// Guardian is a parent or legal contact for one or more students.
type Guardian struct {
	ID           string  `db:"id" json:"id"`
	FirstName    string  `db:"first_name" json:"first_name"`
	LastName     string  `db:"last_name" json:"last_name"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	Email        *string `db:"email" json:"email,omitempty"`
	Relationship *string `db:"relationship" json:"relationship,omitempty"`
	Address      *string `db:"address" json:"address,omitempty"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
}

// StudentGuardian links a student to a guardian.
type StudentGuardian struct {
	StudentID  string `db:"student_id" json:"student_id"`
	GuardianID string `db:"guardian_id" json:"guardian_id"`
	IsPrimary  bool   `db:"is_primary" json:"is_primary"`
}

// StudentGuardianDetail is a guardian seen from one of its students.
type StudentGuardianDetail struct {
	Guardian
	IsPrimary bool `db:"is_primary" json:"is_primary"`
}
