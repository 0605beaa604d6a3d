package healthcheck

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

// CreateAssignmentsInput plans one health check per student of the selected
// classes, all handled by the same nurse.
type CreateAssignmentsInput struct {
	ClassIDs    []uuid.UUID `json:"class_ids"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Description string      `json:"description"`
	NurseID     uuid.UUID   `json:"nurse_id"`
}

func (s *Service) CreateAssignments(ctx context.Context, in CreateAssignmentsInput) ([]*Assignment, error) {
	if len(in.ClassIDs) == 0 {
		return nil, apperr.Validation("class_ids", "at least one class is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.Validation("scheduled_at", "is required")
	}
	if in.NurseID == uuid.Nil {
		return nil, apperr.Validation("nurse_id", "is required")
	}

	enrolled, err := s.students.ListStudentsByClasses(ctx, in.ClassIDs)
	if err != nil {
		return nil, err
	}

	assignments := make([]*Assignment, len(enrolled))
	for i, st := range enrolled {
		assignments[i] = &Assignment{
			StudentID:   st.ID,
			NurseID:     in.NurseID,
			ScheduledAt: in.ScheduledAt,
			Description: in.Description,
		}
	}
	if err := s.repo.CreateBatch(ctx, assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ResultInput carries the five measurements of one check. All five are
// submitted together, so a correction simply re-submits the full set.
type ResultInput struct {
	Result   string  `json:"result"`
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	LeftEye  string  `json:"left_eye"`
	RightEye string  `json:"right_eye"`
}

// RecordResult writes the measurements onto the assignment. Only the
// assigned nurse or an admin may record, and re-recording overwrites.
func (s *Service) RecordResult(ctx context.Context, id uuid.UUID, recordedBy uuid.UUID, isAdmin bool, in ResultInput) (*Assignment, error) {
	if in.Result == "" {
		return nil, apperr.Validation("result", "is required")
	}
	if in.Height <= 0 {
		return nil, apperr.Validation("height", "must be positive")
	}
	if in.Weight <= 0 {
		return nil, apperr.Validation("weight", "must be positive")
	}
	if in.LeftEye == "" {
		return nil, apperr.Validation("left_eye", "is required")
	}
	if in.RightEye == "" {
		return nil, apperr.Validation("right_eye", "is required")
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && a.NurseID != recordedBy {
		return nil, apperr.Forbidden("only the assigned nurse may record this result")
	}

	now := time.Now().UTC()
	a.Result = &in.Result
	a.Height = &in.Height
	a.Weight = &in.Weight
	a.LeftEye = &in.LeftEye
	a.RightEye = &in.RightEye
	a.RecordedAt = &now
	if err := s.repo.UpdateResult(ctx, a); err != nil {
		return nil, err
	}

	s.dispatcher.Publish(events.Event{
		Topic: events.TopicHealthCheckResult,
		Data: map[string]string{
			"assignment_id": a.ID.String(),
			"student_id":    a.StudentID.String(),
		},
	})
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return s.repo.ListByStudent(ctx, studentID, limit, offset)
}

func (s *Service) ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return s.repo.ListByNurse(ctx, nurseID, limit, offset)
}
