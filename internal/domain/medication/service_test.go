package medication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/events"
)

// -- Mocks --

type mockRequestRepo struct {
	reqs map[uuid.UUID]*Request
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{reqs: make(map[uuid.UUID]*Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, req *Request) error {
	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	m.reqs[req.ID] = req
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*Request, error) {
	req, ok := m.reqs[id]
	if !ok {
		return nil, apperr.NotFound("medication request", id)
	}
	cp := *req
	return &cp, nil
}

func (m *mockRequestRepo) ListByStudent(_ context.Context, studentID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, req := range m.reqs {
		if req.StudentID == studentID {
			result = append(result, req)
		}
	}
	return result, len(result), nil
}

func (m *mockRequestRepo) ListByStatus(_ context.Context, status string, limit, offset int) ([]*Request, int, error) {
	var result []*Request
	for _, req := range m.reqs {
		if req.Status == status {
			result = append(result, req)
		}
	}
	return result, len(result), nil
}

func (m *mockRequestRepo) UpdateContent(_ context.Context, id uuid.UUID, expectedStatus, parentNote string, meds []Item) (bool, error) {
	req, ok := m.reqs[id]
	if !ok {
		return false, apperr.NotFound("medication request", id)
	}
	if req.Status != expectedStatus {
		return false, nil
	}
	req.ParentNote = parentNote
	req.Medications = meds
	return true, nil
}

func (m *mockRequestRepo) UpdateStatus(_ context.Context, id uuid.UUID, expectedStatus, newStatus string, nurseNote *string, decidedBy uuid.UUID, decidedAt time.Time) (bool, error) {
	req, ok := m.reqs[id]
	if !ok {
		return false, apperr.NotFound("medication request", id)
	}
	if req.Status != expectedStatus {
		return false, nil
	}
	req.Status = newStatus
	req.NurseNote = nurseNote
	req.DecidedByID = &decidedBy
	req.DecidedAt = &decidedAt
	return true, nil
}

type mockStudents struct {
	students map[uuid.UUID]*directory.Student
}

func newMockStudents() *mockStudents {
	return &mockStudents{students: make(map[uuid.UUID]*directory.Student)}
}

func (m *mockStudents) addStudent(guardianID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.students[id] = &directory.Student{ID: id, ClassID: uuid.New(), GuardianID: guardianID, FullName: "Test Student"}
	return id
}

func (m *mockStudents) GetStudent(_ context.Context, id uuid.UUID) (*directory.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, apperr.NotFound("student", id)
	}
	return s, nil
}

func (m *mockStudents) ListStudentsByClasses(_ context.Context, classIDs []uuid.UUID) ([]*directory.Student, error) {
	return nil, nil
}

func (m *mockStudents) GetAccount(_ context.Context, id uuid.UUID) (*directory.Account, error) {
	return nil, apperr.NotFound("account", id)
}

type fixture struct {
	repo     *mockRequestRepo
	guardian uuid.UUID
	student  uuid.UUID
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRequestRepo()
	students := newMockStudents()
	guardian := uuid.New()
	student := students.addStudent(guardian)
	dispatcher := events.NewDispatcher(8, zerolog.Nop())
	t.Cleanup(dispatcher.Close)
	return &fixture{
		repo:     repo,
		guardian: guardian,
		student:  student,
		svc:      NewService(repo, students, dispatcher),
	}
}

func (f *fixture) submit(t *testing.T) *Request {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), SubmitInput{
		StudentID:   f.student,
		GuardianID:  f.guardian,
		ParentNote:  "after lunch",
		Medications: []Item{{Name: "Paracetamol", Dosage: "250mg"}},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return req
}

func strptr(s string) *string { return &s }

// -- Tests --

func TestSubmitCreatesPendingRequest(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	if req.Status != StatusPending {
		t.Errorf("expected pending status, got %q", req.Status)
	}
	if req.ID == uuid.Nil {
		t.Error("request was not assigned an id")
	}
}

func TestSubmitRejectsForeignGuardian(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), SubmitInput{
		StudentID:   f.student,
		GuardianID:  uuid.New(),
		Medications: []Item{{Name: "Paracetamol", Dosage: "250mg"}},
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for foreign guardian, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   SubmitInput
	}{
		{"missing student", SubmitInput{GuardianID: f.guardian, Medications: []Item{{Name: "A", Dosage: "1"}}}},
		{"missing guardian", SubmitInput{StudentID: f.student, Medications: []Item{{Name: "A", Dosage: "1"}}}},
		{"no medications", SubmitInput{StudentID: f.student, GuardianID: f.guardian}},
		{"unnamed medication", SubmitInput{StudentID: f.student, GuardianID: f.guardian, Medications: []Item{{Dosage: "1"}}}},
		{"missing dosage", SubmitInput{StudentID: f.student, GuardianID: f.guardian, Medications: []Item{{Name: "A"}}}},
	}
	for _, tc := range cases {
		_, err := f.svc.Submit(context.Background(), tc.in)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestEditPendingRequest(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	updated, err := f.svc.Edit(context.Background(), req.ID, "before dinner",
		[]Item{{Name: "Ibuprofen", Dosage: "100mg"}})
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if updated.ParentNote != "before dinner" {
		t.Errorf("parent note not updated: %q", updated.ParentNote)
	}
	if len(updated.Medications) != 1 || updated.Medications[0].Name != "Ibuprofen" {
		t.Errorf("medications not replaced: %+v", updated.Medications)
	}
}

func TestEditDecidedRequestFails(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	if _, err := f.svc.Decide(context.Background(), req.ID, StatusApproved, nil, uuid.New()); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}

	_, err := f.svc.Edit(context.Background(), req.ID, "too late",
		[]Item{{Name: "Ibuprofen", Dosage: "100mg"}})
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
}

func TestDecideApprove(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)
	nurse := uuid.New()

	decided, err := f.svc.Decide(context.Background(), req.ID, StatusApproved, nil, nurse)
	if err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if decided.Status != StatusApproved {
		t.Errorf("expected approved, got %q", decided.Status)
	}
	if decided.DecidedByID == nil || *decided.DecidedByID != nurse {
		t.Error("decided_by not recorded")
	}
	if decided.DecidedAt == nil {
		t.Error("decided_at not recorded")
	}
}

func TestDecideRejectRequiresNote(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.svc.Decide(context.Background(), req.ID, StatusRejected, nil, uuid.New())
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for missing nurse note, got %v", err)
	}

	decided, err := f.svc.Decide(context.Background(), req.ID, StatusRejected, strptr("expired prescription"), uuid.New())
	if err != nil {
		t.Fatalf("Decide with note failed: %v", err)
	}
	if decided.Status != StatusRejected {
		t.Errorf("expected rejected, got %q", decided.Status)
	}
}

func TestDecideTwiceFails(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	if _, err := f.svc.Decide(context.Background(), req.ID, StatusApproved, nil, uuid.New()); err != nil {
		t.Fatalf("first Decide failed: %v", err)
	}
	_, err := f.svc.Decide(context.Background(), req.ID, StatusRejected, strptr("changed my mind"), uuid.New())
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError on second decision, got %v", err)
	}
	if transition.Current != StatusApproved {
		t.Errorf("expected current state approved, got %q", transition.Current)
	}
}

func TestDecideInvalidDecision(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t)

	_, err := f.svc.Decide(context.Background(), req.ID, "maybe", nil, uuid.New())
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for unknown decision, got %v", err)
	}
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t)
	f.submit(t)
	req := f.submit(t)
	if _, err := f.svc.Decide(context.Background(), req.ID, StatusApproved, nil, uuid.New()); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}

	pending, total, err := f.svc.ListByStatus(context.Background(), StatusPending, 20, 0)
	if err != nil {
		t.Fatalf("ListByStatus failed: %v", err)
	}
	if total != 1 || len(pending) != 1 {
		t.Errorf("expected 1 pending request, got %d (total %d)", len(pending), total)
	}

	if _, _, err := f.svc.ListByStatus(context.Background(), "bogus", 20, 0); err == nil {
		t.Error("expected error for unknown status")
	}
}
