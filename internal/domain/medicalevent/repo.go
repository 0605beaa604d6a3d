package medicalevent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, evt *MedicalEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalEvent, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*MedicalEvent, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
