package medication

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id uuid.UUID) (*Request, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Request, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Request, int, error)

	// UpdateContent replaces the parent note and medication lines, guarded
	// by the expected current status. It reports false, nil when the guard
	// did not match (the request exists but left the expected state).
	UpdateContent(ctx context.Context, id uuid.UUID, expectedStatus, parentNote string, meds []Item) (bool, error)

	// UpdateStatus transitions the request from expectedStatus to newStatus,
	// recording the decision. It reports false, nil when the guard did not
	// match, so exactly one of two racing decisions wins.
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string,
		nurseNote *string, decidedBy uuid.UUID, decidedAt time.Time) (bool, error)
}
