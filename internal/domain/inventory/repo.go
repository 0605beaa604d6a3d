package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	List(ctx context.Context, kind string, limit, offset int) ([]*Item, int, error)

	// DecrementIfAvailable atomically subtracts qty from the item's on-hand
	// quantity when enough stock remains. It reports false, nil when stock
	// was insufficient at the moment of the update.
	DecrementIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error)

	// Increment adds qty back to the item's on-hand quantity (restock or
	// compensating release).
	Increment(ctx context.Context, id uuid.UUID, qty int) error
}
