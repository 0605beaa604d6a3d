package healthcheck

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateBatch persists the fanned-out assignments in one transaction.
	CreateBatch(ctx context.Context, assignments []*Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Assignment, int, error)
	ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*Assignment, int, error)
	// UpdateResult overwrites the result fields of the assignment.
	UpdateResult(ctx context.Context, a *Assignment) error
}
