package vaccination

import (
	"context"

	"github.com/google/uuid"
)

type CampaignRepository interface {
	// Create persists the campaign and one undecided consent per student in
	// a single transaction.
	Create(ctx context.Context, campaign *Campaign, studentIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*Campaign, int, error)
}

type ConsentRepository interface {
	GetByCampaignStudent(ctx context.Context, campaignID, studentID uuid.UUID) (*Consent, error)
	// SetAnswer records the guardian's answer on the existing consent row.
	// The write carries its own guard: unless allowRevision is set, only an
	// undecided row matches. Returns false when no row passed the guard, so
	// the loser of two concurrent answers is reported instead of silently
	// overwritten.
	SetAnswer(ctx context.Context, consent *Consent, allowRevision bool) (bool, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Consent, int, error)
}

type RecordRepository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Record, int, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Record, int, error)
}

type FollowUpRepository interface {
	Create(ctx context.Context, f *FollowUp) error
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]*FollowUp, error)
}
