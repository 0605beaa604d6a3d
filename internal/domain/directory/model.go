// Package directory resolves students, classes, and accounts. The engine
// treats it as a read-only collaborator: rows are maintained by the portal's
// administration surface, never written here.
package directory

import (
	"time"

	"github.com/google/uuid"
)

// Student maps to the student table.
type Student struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ClassID    uuid.UUID `db:"class_id" json:"class_id"`
	GuardianID uuid.UUID `db:"guardian_id" json:"guardian_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
}

// Account maps to the account table.
type Account struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Role        string    `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
}
