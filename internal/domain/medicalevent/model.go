// Package medicalevent records medical incidents (accidents, fevers,
// injuries) together with the inventory they consumed. Events are append
// only: once committed they are never edited, and removing one is an
// administrative override that returns its consumption to stock.
package medicalevent

import (
	"time"

	"github.com/google/uuid"

	"github.com/schoolcare/healthd/internal/domain/inventory"
)

// MedicalEvent maps to the medical_event table.
type MedicalEvent struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	StudentID     uuid.UUID      `db:"student_id" json:"student_id"`
	NurseID       uuid.UUID      `db:"nurse_id" json:"nurse_id"`
	Type          string         `db:"type" json:"type"`
	Description   string         `db:"description" json:"description"`
	Note          string         `db:"note" json:"note"`
	OccurredAt    time.Time      `db:"occurred_at" json:"occurred_at"`
	ConsumedLines []ConsumedLine `json:"consumed_lines"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// ConsumedLine maps to the medical_event_line table.
type ConsumedLine struct {
	ItemID       uuid.UUID `db:"item_id" json:"item_id"`
	QuantityUsed int       `db:"quantity_used" json:"quantity_used"`
}

// InventoryLines converts the event's consumption to ledger lines.
func (e *MedicalEvent) InventoryLines() []inventory.Line {
	lines := make([]inventory.Line, len(e.ConsumedLines))
	for i, l := range e.ConsumedLines {
		lines[i] = inventory.Line{ItemID: l.ItemID, Quantity: l.QuantityUsed}
	}
	return lines
}
