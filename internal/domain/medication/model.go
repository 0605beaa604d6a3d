// Package medication implements guardian-submitted drug administration
// requests. A request is a free-form prescription list plus instructions; it
// never touches tracked inventory. Pending requests may be edited by the
// guardian; a nurse decision (approve or reject) is terminal.
package medication

import (
	"time"

	"github.com/google/uuid"
)

// Request statuses. Approved and Rejected are terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Request maps to the medication_request table.
type Request struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StudentID   uuid.UUID  `db:"student_id" json:"student_id"`
	GuardianID  uuid.UUID  `db:"guardian_id" json:"guardian_id"`
	Status      string     `db:"status" json:"status"`
	ParentNote  string     `db:"parent_note" json:"parent_note"`
	NurseNote   *string    `db:"nurse_note" json:"nurse_note,omitempty"`
	DecidedByID *uuid.UUID `db:"decided_by_id" json:"decided_by_id,omitempty"`
	Medications []Item     `json:"medications"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	DecidedAt   *time.Time `db:"decided_at" json:"decided_at,omitempty"`
}

// Item is one guardian-supplied medication line. It is free text, not a
// reference into the inventory catalog.
type Item struct {
	Name   string     `db:"name" json:"name"`
	Dosage string     `db:"dosage" json:"dosage"`
	Usage  string     `db:"usage" json:"usage"`
	Expiry *time.Time `db:"expiry" json:"expiry,omitempty"`
	Note   string     `db:"note" json:"note"`
}

// IsTerminal reports whether the request has reached a final status.
func (r *Request) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}
