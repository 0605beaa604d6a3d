// Package healthcheck schedules periodic health checks: an assignment per
// student is fanned out when a check is planned, and the assigned nurse fills
// in the measured results afterwards.
package healthcheck

import (
	"time"

	"github.com/google/uuid"
)

// Assignment maps to the health_check_assignment table. The five result
// fields are nil until the nurse records them; completeness is derived from
// them rather than stored.
type Assignment struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	StudentID   uuid.UUID  `db:"student_id" json:"student_id"`
	NurseID     uuid.UUID  `db:"nurse_id" json:"nurse_id"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Description string     `db:"description" json:"description"`
	Result      *string    `db:"result" json:"result"`
	Height      *float64   `db:"height" json:"height"`
	Weight      *float64   `db:"weight" json:"weight"`
	LeftEye     *string    `db:"left_eye" json:"left_eye"`
	RightEye    *string    `db:"right_eye" json:"right_eye"`
	RecordedAt  *time.Time `db:"recorded_at" json:"recorded_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// IsComplete reports whether all five result fields have been recorded.
func (a *Assignment) IsComplete() bool {
	return a.Result != nil && a.Height != nil && a.Weight != nil &&
		a.LeftEye != nil && a.RightEye != nil
}
