// Package timeline composes a student's medical events, vaccination records
// and health-check results into the single chronology the health book view
// consumes.
package timeline

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/schoolcare/healthd/internal/domain/healthcheck"
	"github.com/schoolcare/healthd/internal/domain/medicalevent"
	"github.com/schoolcare/healthd/internal/domain/vaccination"
)

// fetchLimit bounds how much of each source one timeline read pulls. A
// student accumulates a handful of entries per year, so this is generous.
const fetchLimit = 500

type EventSource interface {
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*medicalevent.MedicalEvent, int, error)
}

type VaccinationSource interface {
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*vaccination.Record, int, error)
}

type HealthCheckSource interface {
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*healthcheck.Assignment, int, error)
}

// HealthCheckResult is the recorded-result projection of an assignment.
// Completed is derived from the five result fields, never stored.
type HealthCheckResult struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	ScheduledAt  time.Time  `json:"scheduled_at"`
	RecordedAt   *time.Time `json:"recorded_at"`
	Result       *string    `json:"result"`
	Height       *float64   `json:"height"`
	Weight       *float64   `json:"weight"`
	LeftEye      *string    `json:"left_eye"`
	RightEye     *string    `json:"right_eye"`
	Completed    bool       `json:"completed"`
}

// Entry is one row of the merged chronology.
type Entry struct {
	Kind      string      `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	KindMedicalEvent = "medical_event"
	KindVaccination  = "vaccination"
	KindHealthCheck  = "health_check"
)

// Timeline is the aggregate read model for one student.
type Timeline struct {
	StudentID          uuid.UUID                    `json:"student_id"`
	Events             []*medicalevent.MedicalEvent `json:"events"`
	VaccinationRecords []*vaccination.Record        `json:"vaccination_records"`
	HealthCheckResults []HealthCheckResult          `json:"health_check_results"`
	Entries            []Entry                      `json:"entries"`
}

type Service struct {
	events       EventSource
	vaccinations VaccinationSource
	healthChecks HealthCheckSource
}

func NewService(events EventSource, vaccinations VaccinationSource, healthChecks HealthCheckSource) *Service {
	return &Service{events: events, vaccinations: vaccinations, healthChecks: healthChecks}
}

// GetStudentTimeline merges the three sources, newest first. Any source may
// be empty; an empty timeline is a valid result.
func (s *Service) GetStudentTimeline(ctx context.Context, studentID uuid.UUID) (*Timeline, error) {
	events, _, err := s.events.ListByStudent(ctx, studentID, fetchLimit, 0)
	if err != nil {
		return nil, err
	}
	records, _, err := s.vaccinations.ListByStudent(ctx, studentID, fetchLimit, 0)
	if err != nil {
		return nil, err
	}
	assignments, _, err := s.healthChecks.ListByStudent(ctx, studentID, fetchLimit, 0)
	if err != nil {
		return nil, err
	}

	tl := &Timeline{
		StudentID:          studentID,
		Events:             events,
		VaccinationRecords: records,
	}

	for _, evt := range events {
		tl.Entries = append(tl.Entries, Entry{Kind: KindMedicalEvent, Timestamp: evt.OccurredAt, Data: evt})
	}
	for _, rec := range records {
		tl.Entries = append(tl.Entries, Entry{Kind: KindVaccination, Timestamp: rec.InjectedAt, Data: rec})
	}
	for _, a := range assignments {
		if a.RecordedAt == nil {
			continue
		}
		res := HealthCheckResult{
			AssignmentID: a.ID,
			ScheduledAt:  a.ScheduledAt,
			RecordedAt:   a.RecordedAt,
			Result:       a.Result,
			Height:       a.Height,
			Weight:       a.Weight,
			LeftEye:      a.LeftEye,
			RightEye:     a.RightEye,
			Completed:    a.IsComplete(),
		}
		tl.HealthCheckResults = append(tl.HealthCheckResults, res)
		tl.Entries = append(tl.Entries, Entry{Kind: KindHealthCheck, Timestamp: *a.RecordedAt, Data: res})
	}

	sort.SliceStable(tl.Entries, func(i, j int) bool {
		return tl.Entries[i].Timestamp.After(tl.Entries[j].Timestamp)
	})
	return tl, nil
}
