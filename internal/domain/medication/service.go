package medication

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/events"
)

type Service struct {
	repo       Repository
	students   directory.Repository
	dispatcher *events.Dispatcher
}

func NewService(repo Repository, students directory.Repository, dispatcher *events.Dispatcher) *Service {
	return &Service{repo: repo, students: students, dispatcher: dispatcher}
}

// SubmitInput is a guardian's new medication request.
type SubmitInput struct {
	StudentID   uuid.UUID `json:"student_id"`
	GuardianID  uuid.UUID `json:"guardian_id"`
	ParentNote  string    `json:"parent_note"`
	Medications []Item    `json:"medications"`
}

func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if in.StudentID == uuid.Nil {
		return nil, apperr.Validation("student_id", "is required")
	}
	if in.GuardianID == uuid.Nil {
		return nil, apperr.Validation("guardian_id", "is required")
	}
	if err := validateItems(in.Medications); err != nil {
		return nil, err
	}

	student, err := s.students.GetStudent(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if student.GuardianID != in.GuardianID {
		return nil, apperr.Validation("guardian_id", "is not the student's guardian")
	}

	req := &Request{
		StudentID:   in.StudentID,
		GuardianID:  in.GuardianID,
		Status:      StatusPending,
		ParentNote:  in.ParentNote,
		Medications: in.Medications,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Edit replaces the guardian-editable content of a request. Only pending
// requests can change; a decided request reports the invalid transition.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, parentNote string, meds []Item) (*Request, error) {
	if err := validateItems(meds); err != nil {
		return nil, err
	}

	matched, err := s.repo.UpdateContent(ctx, id, StatusPending, parentNote, meds)
	if err != nil {
		return nil, err
	}
	if !matched {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition("medication request", id, existing.Status, "edit")
	}
	return s.repo.GetByID(ctx, id)
}

// Decide approves or rejects a pending request. The expected-state update
// makes the transition race-safe: when two nurses decide simultaneously,
// exactly one wins and the loser gets InvalidStateTransitionError.
func (s *Service) Decide(ctx context.Context, id uuid.UUID, decision string, nurseNote *string, decidedBy uuid.UUID) (*Request, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, apperr.Validation("decision", "must be approved or rejected")
	}
	if decision == StatusRejected && (nurseNote == nil || *nurseNote == "") {
		return nil, apperr.Validation("nurse_note", "is required when rejecting")
	}
	if decidedBy == uuid.Nil {
		return nil, apperr.Validation("decided_by", "is required")
	}

	matched, err := s.repo.UpdateStatus(ctx, id, StatusPending, decision, nurseNote, decidedBy, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !matched {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition("medication request", id, existing.Status, "decide")
	}

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.dispatcher.Publish(events.Event{
		Topic: events.TopicMedicationDecided,
		Data: map[string]string{
			"request_id": req.ID.String(),
			"student_id": req.StudentID.String(),
			"status":     req.Status,
		},
	})
	return req, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return s.repo.ListByStudent(ctx, studentID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	if status != StatusPending && status != StatusApproved && status != StatusRejected {
		return nil, 0, apperr.Validation("status", "must be pending, approved or rejected")
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func validateItems(meds []Item) error {
	if len(meds) == 0 {
		return apperr.Validation("medications", "at least one medication is required")
	}
	for _, m := range meds {
		if m.Name == "" {
			return apperr.Validation("medications.name", "is required")
		}
		if m.Dosage == "" {
			return apperr.Validation("medications.dosage", "is required")
		}
	}
	return nil
}
