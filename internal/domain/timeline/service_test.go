package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/schoolcare/healthd/internal/domain/healthcheck"
	"github.com/schoolcare/healthd/internal/domain/medicalevent"
	"github.com/schoolcare/healthd/internal/domain/vaccination"
)

type stubEvents struct {
	events []*medicalevent.MedicalEvent
}

func (s *stubEvents) ListByStudent(_ context.Context, studentID uuid.UUID, limit, offset int) ([]*medicalevent.MedicalEvent, int, error) {
	return s.events, len(s.events), nil
}

type stubVaccinations struct {
	records []*vaccination.Record
}

func (s *stubVaccinations) ListByStudent(_ context.Context, studentID uuid.UUID, limit, offset int) ([]*vaccination.Record, int, error) {
	return s.records, len(s.records), nil
}

type stubHealthChecks struct {
	assignments []*healthcheck.Assignment
}

func (s *stubHealthChecks) ListByStudent(_ context.Context, studentID uuid.UUID, limit, offset int) ([]*healthcheck.Assignment, int, error) {
	return s.assignments, len(s.assignments), nil
}

func TestGetStudentTimelineMergesAndOrders(t *testing.T) {
	studentID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := &stubEvents{events: []*medicalevent.MedicalEvent{
		{ID: uuid.New(), StudentID: studentID, Type: "fever", OccurredAt: base.Add(2 * time.Hour)},
	}}
	vaccinations := &stubVaccinations{records: []*vaccination.Record{
		{ID: uuid.New(), StudentID: studentID, InjectedAt: base.Add(3 * time.Hour)},
	}}
	result := "healthy"
	h, w := 130.0, 28.0
	eye := "10/10"
	recordedAt := base.Add(time.Hour)
	healthChecks := &stubHealthChecks{assignments: []*healthcheck.Assignment{
		{
			ID: uuid.New(), StudentID: studentID, ScheduledAt: base,
			Result: &result, Height: &h, Weight: &w, LeftEye: &eye, RightEye: &eye,
			RecordedAt: &recordedAt,
		},
	}}

	svc := NewService(events, vaccinations, healthChecks)
	tl, err := svc.GetStudentTimeline(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentTimeline failed: %v", err)
	}

	if len(tl.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(tl.Entries))
	}
	wantKinds := []string{KindVaccination, KindMedicalEvent, KindHealthCheck}
	for i, want := range wantKinds {
		if tl.Entries[i].Kind != want {
			t.Errorf("entry %d: expected kind %s, got %s", i, want, tl.Entries[i].Kind)
		}
	}
	for i := 1; i < len(tl.Entries); i++ {
		if tl.Entries[i].Timestamp.After(tl.Entries[i-1].Timestamp) {
			t.Errorf("entries not in descending order at %d", i)
		}
	}

	if len(tl.HealthCheckResults) != 1 {
		t.Fatalf("expected 1 health check result, got %d", len(tl.HealthCheckResults))
	}
	if !tl.HealthCheckResults[0].Completed {
		t.Error("fully recorded check must project as completed")
	}
}

func TestGetStudentTimelineSkipsUnrecordedChecks(t *testing.T) {
	studentID := uuid.New()
	healthChecks := &stubHealthChecks{assignments: []*healthcheck.Assignment{
		{ID: uuid.New(), StudentID: studentID, ScheduledAt: time.Now()},
	}}

	svc := NewService(&stubEvents{}, &stubVaccinations{}, healthChecks)
	tl, err := svc.GetStudentTimeline(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentTimeline failed: %v", err)
	}
	if len(tl.HealthCheckResults) != 0 {
		t.Errorf("unrecorded assignment must not appear, got %d results", len(tl.HealthCheckResults))
	}
	if len(tl.Entries) != 0 {
		t.Errorf("expected empty timeline, got %d entries", len(tl.Entries))
	}
}

func TestGetStudentTimelinePartialCompletion(t *testing.T) {
	studentID := uuid.New()
	result := "follow up needed"
	recordedAt := time.Now()
	healthChecks := &stubHealthChecks{assignments: []*healthcheck.Assignment{
		{ID: uuid.New(), StudentID: studentID, ScheduledAt: time.Now(), Result: &result, RecordedAt: &recordedAt},
	}}

	svc := NewService(&stubEvents{}, &stubVaccinations{}, healthChecks)
	tl, err := svc.GetStudentTimeline(context.Background(), studentID)
	if err != nil {
		t.Fatalf("GetStudentTimeline failed: %v", err)
	}
	if len(tl.HealthCheckResults) != 1 {
		t.Fatalf("expected 1 result, got %d", len(tl.HealthCheckResults))
	}
	if tl.HealthCheckResults[0].Completed {
		t.Error("partially recorded check must not project as completed")
	}
}

func TestGetStudentTimelineEmptySources(t *testing.T) {
	svc := NewService(&stubEvents{}, &stubVaccinations{}, &stubHealthChecks{})
	tl, err := svc.GetStudentTimeline(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("GetStudentTimeline failed: %v", err)
	}
	if len(tl.Entries) != 0 || len(tl.Events) != 0 || len(tl.VaccinationRecords) != 0 || len(tl.HealthCheckResults) != 0 {
		t.Error("expected a fully empty timeline")
	}
}
