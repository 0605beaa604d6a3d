// Package vaccination drives the per-campaign consent pipeline: a campaign
// solicits one consent per enrolled student, guardians answer, nurses record
// injections for consenting students, and follow-ups accumulate per record.
package vaccination

import (
	"time"

	"github.com/google/uuid"
)

// Campaign maps to the vaccination_campaign table.
type Campaign struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	VaccineID   uuid.UUID   `db:"vaccine_id" json:"vaccine_id"`
	ScheduledAt time.Time   `db:"scheduled_at" json:"scheduled_at"`
	ClassIDs    []uuid.UUID `db:"class_ids" json:"class_ids"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Consent maps to the vaccination_consent table. IsAgreed is nil until the
// guardian answers; one logical consent exists per (campaign, student).
type Consent struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CampaignID uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	StudentID  uuid.UUID  `db:"student_id" json:"student_id"`
	IsAgreed   *bool      `db:"is_agreed" json:"is_agreed"`
	Note       string     `db:"note" json:"note"`
	DecidedAt  *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Record maps to the vaccination_record table.
type Record struct {
	ID                uuid.UUID `db:"id" json:"id"`
	CampaignID        uuid.UUID `db:"campaign_id" json:"campaign_id"`
	StudentID         uuid.UUID `db:"student_id" json:"student_id"`
	NurseID           uuid.UUID `db:"nurse_id" json:"nurse_id"`
	InjectedAt        time.Time `db:"injected_at" json:"injected_at"`
	Result            string    `db:"result" json:"result"`
	ImmediateReaction string    `db:"immediate_reaction" json:"immediate_reaction"`
	Note              string    `db:"note" json:"note"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// FollowUp maps to the vaccination_follow_up table. Follow-ups are history:
// each observation appends, nothing overwrites.
type FollowUp struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RecordID   uuid.UUID `db:"record_id" json:"record_id"`
	ObservedAt time.Time `db:"observed_at" json:"observed_at"`
	Reaction   string    `db:"reaction" json:"reaction"`
	Note       string    `db:"note" json:"note"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
