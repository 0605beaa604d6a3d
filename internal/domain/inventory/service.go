package inventory

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schoolcare/healthd/internal/platform/apperr"
)

type Service struct {
	repo       Repository
	maxRetries int
	logger     zerolog.Logger
}

func NewService(repo Repository, maxRetries int, logger zerolog.Logger) *Service {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Service{repo: repo, maxRetries: maxRetries, logger: logger}
}

var validKinds = map[string]bool{KindMedication: true, KindSupply: true}

func (s *Service) CreateItem(ctx context.Context, item *Item) error {
	if item.Name == "" {
		return apperr.Validation("name", "is required")
	}
	if item.Unit == "" {
		return apperr.Validation("unit", "is required")
	}
	if !validKinds[item.Kind] {
		return apperr.Validation("kind", "must be medication or supply")
	}
	if item.QuantityOnHand < 0 {
		return apperr.Validation("quantity_on_hand", "must not be negative")
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAvailable returns the current on-hand quantity of an item. The value is
// a snapshot: Reserve never trusts it, callers should not either.
func (s *Service) GetAvailable(ctx context.Context, id uuid.UUID) (int, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return item.QuantityOnHand, nil
}

func (s *Service) ListItems(ctx context.Context, kind string, limit, offset int) ([]*Item, int, error) {
	if kind != "" && !validKinds[kind] {
		return nil, 0, apperr.Validation("kind", "must be medication or supply")
	}
	return s.repo.List(ctx, kind, limit, offset)
}

// Restock adds quantity to an item.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, qty int) (*Item, error) {
	if qty <= 0 {
		return nil, apperr.Validation("quantity", "must be positive")
	}
	if err := s.repo.Increment(ctx, id, qty); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Reserve atomically verifies and decrements every line or none. Lines are
// merged per item and processed in ascending item-id order so concurrent
// multi-item reservations touch rows in the same sequence. Transient
// conflicts are retried up to the configured bound.
func (s *Service) Reserve(ctx context.Context, lines []Line) error {
	merged, err := normalizeLines(lines)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return nil
	}

	for attempt := 0; ; attempt++ {
		err := s.tryReserve(ctx, merged)
		var conflict *apperr.ConcurrencyConflictError
		if errors.As(err, &conflict) && attempt < s.maxRetries {
			s.logger.Debug().Int("attempt", attempt+1).Msg("reservation conflict, retrying")
			continue
		}
		return err
	}
}

// tryReserve decrements line by line. Any failure rolls back the decrements
// already applied, preserving the all-or-nothing contract even when the
// caller's context has been canceled mid-flight.
func (s *Service) tryReserve(ctx context.Context, lines []Line) error {
	var applied []Line
	for _, line := range lines {
		ok, err := s.repo.DecrementIfAvailable(ctx, line.ItemID, line.Quantity)
		if err != nil {
			s.rollback(ctx, applied)
			return err
		}
		if !ok {
			available, gerr := s.GetAvailable(ctx, line.ItemID)
			if gerr != nil {
				available = 0
			}
			s.rollback(ctx, applied)
			return &apperr.InsufficientStockError{Shortfalls: []apperr.Shortfall{{
				ItemID:    line.ItemID,
				Requested: line.Quantity,
				Available: available,
				Shortfall: line.Quantity - available,
			}}}
		}
		applied = append(applied, line)
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, applied []Line) {
	if len(applied) == 0 {
		return
	}
	// Rollback must run even when the caller canceled.
	ctx = context.WithoutCancel(ctx)
	for _, line := range applied {
		if err := s.repo.Increment(ctx, line.ItemID, line.Quantity); err != nil {
			s.logger.Error().Err(err).
				Str("item_id", line.ItemID.String()).
				Int("quantity", line.Quantity).
				Msg("failed to roll back partial reservation")
		}
	}
}

// Release is the compensating increment for a prior successful Reserve.
func (s *Service) Release(ctx context.Context, lines []Line) error {
	merged, err := normalizeLines(lines)
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, line := range merged {
		if err := s.repo.Increment(ctx, line.ItemID, line.Quantity); err != nil {
			s.logger.Error().Err(err).
				Str("item_id", line.ItemID.String()).
				Int("quantity", line.Quantity).
				Msg("failed to release reserved stock")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// normalizeLines validates quantities, merges duplicate items, and sorts by
// item id. The stable order keeps concurrent reservations deadlock-free.
func normalizeLines(lines []Line) ([]Line, error) {
	byItem := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.ItemID == uuid.Nil {
			return nil, apperr.Validation("item_id", "is required")
		}
		if line.Quantity <= 0 {
			return nil, apperr.Validation("quantity", "must be positive")
		}
		byItem[line.ItemID] += line.Quantity
	}

	merged := make([]Line, 0, len(byItem))
	for id, qty := range byItem {
		merged = append(merged, Line{ItemID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].ItemID[:], merged[j].ItemID[:]) < 0
	})
	return merged, nil
}
