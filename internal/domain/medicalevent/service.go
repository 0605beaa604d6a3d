package medicalevent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/domain/inventory"
	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/events"
)

// Ledger is the slice of the inventory service the recorder depends on.
type Ledger interface {
	Reserve(ctx context.Context, lines []inventory.Line) error
	Release(ctx context.Context, lines []inventory.Line) error
}

type Service struct {
	repo       Repository
	ledger     Ledger
	students   directory.Repository
	lookback   time.Duration
	dispatcher *events.Dispatcher
	logger     zerolog.Logger
}

func NewService(repo Repository, ledger Ledger, students directory.Repository,
	lookbackDays int, dispatcher *events.Dispatcher, logger zerolog.Logger) *Service {
	if lookbackDays < 1 {
		lookbackDays = 7
	}
	return &Service{
		repo:       repo,
		ledger:     ledger,
		students:   students,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateEventInput is the request payload for recording an incident.
type CreateEventInput struct {
	StudentID   uuid.UUID      `json:"student_id"`
	NurseID     uuid.UUID      `json:"nurse_id"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Note        string         `json:"note"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Lines       []ConsumedLine `json:"consumed_lines"`
}

// CreateEvent validates the incident, reserves its consumption against the
// ledger, and persists it. Any failure after a successful reservation,
// including caller cancellation, releases the reservation before the error
// propagates so stock never leaks a decrement for an uncommitted event.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (*MedicalEvent, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	evt := &MedicalEvent{
		StudentID:     in.StudentID,
		NurseID:       in.NurseID,
		Type:          in.Type,
		Description:   in.Description,
		Note:          in.Note,
		OccurredAt:    in.OccurredAt,
		ConsumedLines: mergeLines(in.Lines),
	}

	if err := s.ledger.Reserve(ctx, evt.InventoryLines()); err != nil {
		return nil, err
	}

	if err := s.persist(ctx, evt); err != nil {
		s.compensate(ctx, evt)
		return nil, err
	}

	s.dispatcher.Publish(events.Event{
		Topic: events.TopicMedicalEventLogged,
		Data: map[string]string{
			"event_id":   evt.ID.String(),
			"student_id": evt.StudentID.String(),
			"type":       evt.Type,
		},
	})
	return evt, nil
}

func (s *Service) persist(ctx context.Context, evt *MedicalEvent) error {
	// Cancellation after the reservation succeeded is a downstream failure:
	// the caller must not get a committed event it no longer waits for.
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.repo.Create(ctx, evt)
}

func (s *Service) compensate(ctx context.Context, evt *MedicalEvent) {
	if err := s.ledger.Release(ctx, evt.InventoryLines()); err != nil {
		s.logger.Error().Err(err).
			Str("student_id", evt.StudentID.String()).
			Msg("failed to release reservation after persistence failure")
	}
}

// mergeLines sums quantities for repeated items, keeping first-seen order.
// One row per item is what medical_event_line stores.
func mergeLines(lines []ConsumedLine) []ConsumedLine {
	if len(lines) < 2 {
		return lines
	}
	merged := make([]ConsumedLine, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ItemID]; ok {
			merged[i].QuantityUsed += l.QuantityUsed
			continue
		}
		index[l.ItemID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

func (s *Service) validate(ctx context.Context, in CreateEventInput) error {
	if in.StudentID == uuid.Nil {
		return apperr.Validation("student_id", "is required")
	}
	if in.NurseID == uuid.Nil {
		return apperr.Validation("nurse_id", "is required")
	}
	if in.Type == "" {
		return apperr.Validation("type", "is required")
	}
	if in.OccurredAt.IsZero() {
		return apperr.Validation("occurred_at", "is required")
	}
	now := time.Now()
	if in.OccurredAt.After(now) {
		return apperr.Validation("occurred_at", "must not be in the future")
	}
	if in.OccurredAt.Before(now.Add(-s.lookback)) {
		return apperr.Validation("occurred_at", "is older than the allowed look-back window")
	}
	for _, line := range in.Lines {
		if line.ItemID == uuid.Nil {
			return apperr.Validation("consumed_lines.item_id", "is required")
		}
		if line.QuantityUsed <= 0 {
			return apperr.Validation("consumed_lines.quantity_used", "must be positive")
		}
	}
	if _, err := s.students.GetStudent(ctx, in.StudentID); err != nil {
		return err
	}
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*MedicalEvent, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*MedicalEvent, int, error) {
	return s.repo.ListByStudent(ctx, studentID, limit, offset)
}

// DeleteEvent removes an event (administrative override) and returns its
// consumed lines to stock, the symmetric counterpart of CreateEvent.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	evt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.ledger.Release(ctx, evt.InventoryLines()); err != nil {
		s.logger.Error().Err(err).
			Str("event_id", id.String()).
			Msg("failed to restore stock after event deletion")
		return err
	}
	return nil
}
