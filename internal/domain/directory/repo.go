package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	ListStudentsByClasses(ctx context.Context, classIDs []uuid.UUID) ([]*Student, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
}
