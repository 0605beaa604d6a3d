// Package inventory is the ledger of consumable medical stock. It owns the
// only contended counters in the engine: per-item on-hand quantities, which
// medical events decrement atomically.
package inventory

import (
	"time"

	"github.com/google/uuid"
)

// Item kinds.
const (
	KindMedication = "medication"
	KindSupply     = "supply"
)

// Item maps to the inventory_item table.
type Item struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Kind           string    `db:"kind" json:"kind"`
	Name           string    `db:"name" json:"name"`
	Type           string    `db:"type" json:"type"`
	Unit           string    `db:"unit" json:"unit"`
	QuantityOnHand int       `db:"quantity_on_hand" json:"quantity_on_hand"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Line is one (item, quantity) pair of a reservation or release.
type Line struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}
