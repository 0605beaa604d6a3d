package vaccination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/events"
)

// -- Mocks --

type mockCampaignRepo struct {
	campaigns map[uuid.UUID]*Campaign
	consents  *mockConsentRepo
}

func (m *mockCampaignRepo) Create(_ context.Context, campaign *Campaign, studentIDs []uuid.UUID) error {
	campaign.ID = uuid.New()
	campaign.CreatedAt = time.Now()
	m.campaigns[campaign.ID] = campaign
	for _, sid := range studentIDs {
		c := &Consent{ID: uuid.New(), CampaignID: campaign.ID, StudentID: sid, CreatedAt: time.Now()}
		m.consents.consents[c.ID] = c
	}
	return nil
}

func (m *mockCampaignRepo) GetByID(_ context.Context, id uuid.UUID) (*Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, apperr.NotFound("vaccination campaign", id)
	}
	return c, nil
}

func (m *mockCampaignRepo) List(_ context.Context, limit, offset int) ([]*Campaign, int, error) {
	var result []*Campaign
	for _, c := range m.campaigns {
		result = append(result, c)
	}
	return result, len(result), nil
}

type mockConsentRepo struct {
	mu       sync.Mutex
	consents map[uuid.UUID]*Consent
	// staleUndecidedReads makes reads report an undecided consent even after
	// a decision landed, the view a second guardian gets when their read
	// interleaves with the first answer's write.
	staleUndecidedReads int
}

func (m *mockConsentRepo) GetByCampaignStudent(_ context.Context, campaignID, studentID uuid.UUID) (*Consent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.consents {
		if c.CampaignID == campaignID && c.StudentID == studentID {
			cp := *c
			if m.staleUndecidedReads > 0 {
				m.staleUndecidedReads--
				cp.IsAgreed = nil
				cp.DecidedAt = nil
			}
			return &cp, nil
		}
	}
	return nil, &apperr.NotFoundError{Resource: "consent", ID: campaignID.String() + "/" + studentID.String()}
}

func (m *mockConsentRepo) SetAnswer(_ context.Context, consent *Consent, allowRevision bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.consents {
		if c.CampaignID == consent.CampaignID && c.StudentID == consent.StudentID {
			if c.IsAgreed != nil && !allowRevision {
				return false, nil
			}
			cp := *consent
			cp.ID = id
			m.consents[id] = &cp
			return true, nil
		}
	}
	return false, nil
}

func (m *mockConsentRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	var result []*Consent
	for _, c := range m.consents {
		if c.CampaignID == campaignID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

type mockRecordRepo struct {
	records map[uuid.UUID]*Record
}

func (m *mockRecordRepo) Create(_ context.Context, rec *Record) error {
	for _, existing := range m.records {
		if existing.CampaignID == rec.CampaignID && existing.StudentID == rec.StudentID {
			return apperr.InvalidTransition("vaccination record", rec.StudentID, "recorded", "record again")
		}
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.records[rec.ID] = rec
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("vaccination record", id)
	}
	return rec, nil
}

func (m *mockRecordRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var result []*Record
	for _, rec := range m.records {
		if rec.CampaignID == campaignID {
			result = append(result, rec)
		}
	}
	return result, len(result), nil
}

func (m *mockRecordRepo) ListByStudent(_ context.Context, studentID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var result []*Record
	for _, rec := range m.records {
		if rec.StudentID == studentID {
			result = append(result, rec)
		}
	}
	return result, len(result), nil
}

type mockFollowUpRepo struct {
	followUps map[uuid.UUID]*FollowUp
}

func (m *mockFollowUpRepo) Create(_ context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	f.CreatedAt = time.Now()
	m.followUps[f.ID] = f
	return nil
}

func (m *mockFollowUpRepo) ListByRecord(_ context.Context, recordID uuid.UUID) ([]*FollowUp, error) {
	var result []*FollowUp
	for _, f := range m.followUps {
		if f.RecordID == recordID {
			result = append(result, f)
		}
	}
	return result, nil
}

type mockStudents struct {
	students map[uuid.UUID]*directory.Student
}

func (m *mockStudents) addStudent(classID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.students[id] = &directory.Student{ID: id, ClassID: classID, GuardianID: uuid.New(), FullName: "Test Student"}
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
	var result []*directory.Student
	for _, s := range m.students {
		for _, cid := range classIDs {
			if s.ClassID == cid {
				result = append(result, s)
			}
		}
	}
	return result, nil
}

func (m *mockStudents) GetAccount(_ context.Context, id uuid.UUID) (*directory.Account, error) {
	return nil, apperr.NotFound("account", id)
}

type fixture struct {
	campaigns *mockCampaignRepo
	consents  *mockConsentRepo
	records   *mockRecordRepo
	followUps *mockFollowUpRepo
	students  *mockStudents
	svc       *Service
}

func newFixture(t *testing.T, allowRevision bool) *fixture {
	t.Helper()
	consents := &mockConsentRepo{consents: make(map[uuid.UUID]*Consent)}
	f := &fixture{
		campaigns: &mockCampaignRepo{campaigns: make(map[uuid.UUID]*Campaign), consents: consents},
		consents:  consents,
		records:   &mockRecordRepo{records: make(map[uuid.UUID]*Record)},
		followUps: &mockFollowUpRepo{followUps: make(map[uuid.UUID]*FollowUp)},
		students:  &mockStudents{students: make(map[uuid.UUID]*directory.Student)},
	}
	dispatcher := events.NewDispatcher(8, zerolog.Nop())
	t.Cleanup(dispatcher.Close)
	f.svc = NewService(f.campaigns, f.consents, f.records, f.followUps,
		f.students, allowRevision, dispatcher)
	return f
}

func (f *fixture) createCampaign(t *testing.T, classIDs ...uuid.UUID) *Campaign {
	t.Helper()
	campaign, err := f.svc.CreateCampaign(context.Background(), CreateCampaignInput{
		Name:        "Flu shots",
		VaccineID:   uuid.New(),
		ScheduledAt: time.Now().Add(7 * 24 * time.Hour),
		ClassIDs:    classIDs,
	})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	return campaign
}

// -- Tests --

func TestCreateCampaignFansOutConsents(t *testing.T) {
	f := newFixture(t, false)
	classA := uuid.New()
	classB := uuid.New()
	s1 := f.students.addStudent(classA)
	s2 := f.students.addStudent(classA)
	s3 := f.students.addStudent(classB)
	f.students.addStudent(uuid.New()) // other class, must not get a consent

	campaign := f.createCampaign(t, classA, classB)

	consents, total, err := f.svc.ListConsents(context.Background(), campaign.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListConsents failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 consents, got %d", total)
	}
	seen := map[uuid.UUID]bool{}
	for _, c := range consents {
		if c.IsAgreed != nil {
			t.Errorf("new consent must be undecided, got %v", *c.IsAgreed)
		}
		seen[c.StudentID] = true
	}
	for _, sid := range []uuid.UUID{s1, s2, s3} {
		if !seen[sid] {
			t.Errorf("student %s has no consent", sid)
		}
	}
}

func TestCreateCampaignEmptyClassSucceeds(t *testing.T) {
	f := newFixture(t, false)
	campaign := f.createCampaign(t, uuid.New())

	_, total, err := f.svc.ListConsents(context.Background(), campaign.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListConsents failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no consents for empty class, got %d", total)
	}
}

func TestCreateCampaignValidation(t *testing.T) {
	f := newFixture(t, false)
	cases := []struct {
		name string
		in   CreateCampaignInput
	}{
		{"missing name", CreateCampaignInput{VaccineID: uuid.New(), ScheduledAt: time.Now(), ClassIDs: []uuid.UUID{uuid.New()}}},
		{"missing vaccine", CreateCampaignInput{Name: "Flu", ScheduledAt: time.Now(), ClassIDs: []uuid.UUID{uuid.New()}}},
		{"missing schedule", CreateCampaignInput{Name: "Flu", VaccineID: uuid.New(), ClassIDs: []uuid.UUID{uuid.New()}}},
		{"no classes", CreateCampaignInput{Name: "Flu", VaccineID: uuid.New(), ScheduledAt: time.Now()}},
	}
	for _, tc := range cases {
		_, err := f.svc.CreateCampaign(context.Background(), tc.in)
		var ve *apperr.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tc.name, err)
		}
	}
}

func TestRecordConsent(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	consent, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, "ok with it")
	if err != nil {
		t.Fatalf("RecordConsent failed: %v", err)
	}
	if consent.IsAgreed == nil || !*consent.IsAgreed {
		t.Error("consent answer not recorded")
	}
	if consent.DecidedAt == nil {
		t.Error("decided_at not set")
	}
}

func TestRecordConsentRevisionDisabled(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, ""); err != nil {
		t.Fatalf("first RecordConsent failed: %v", err)
	}
	_, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, false, "changed my mind")
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}
}

func TestRecordConsentConcurrentAnswerLoses(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, ""); err != nil {
		t.Fatalf("first RecordConsent failed: %v", err)
	}

	// A second answer whose read interleaved with the first write passes
	// the undecided pre-check but must still lose on the guarded update.
	f.consents.staleUndecidedReads = 1
	_, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, false, "")
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError, got %v", err)
	}

	consent, err := f.consents.GetByCampaignStudent(context.Background(), campaign.ID, student)
	if err != nil {
		t.Fatalf("GetByCampaignStudent failed: %v", err)
	}
	if consent.IsAgreed == nil || !*consent.IsAgreed {
		t.Error("losing answer overwrote the committed one")
	}
}

func TestRecordConsentRevisionEnabled(t *testing.T) {
	f := newFixture(t, true)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, ""); err != nil {
		t.Fatalf("first RecordConsent failed: %v", err)
	}
	consent, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, false, "changed my mind")
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	if consent.IsAgreed == nil || *consent.IsAgreed {
		t.Error("revised answer not stored")
	}
}

func TestRecordConsentUnknownStudent(t *testing.T) {
	f := newFixture(t, false)
	campaign := f.createCampaign(t, uuid.New())

	_, err := f.svc.RecordConsent(context.Background(), campaign.ID, uuid.New(), true, "")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func recordInput(campaignID, studentID uuid.UUID) RecordVaccinationInput {
	return RecordVaccinationInput{
		CampaignID: campaignID,
		StudentID:  studentID,
		NurseID:    uuid.New(),
		InjectedAt: time.Now(),
		Result:     "done",
	}
}

func TestRecordVaccinationRequiresAgreedConsent(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	// Undecided consent blocks recording.
	_, err := f.svc.RecordVaccination(context.Background(), recordInput(campaign.ID, student))
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError for undecided consent, got %v", err)
	}

	// Declined consent blocks recording.
	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, false, ""); err != nil {
		t.Fatalf("RecordConsent failed: %v", err)
	}
	_, err = f.svc.RecordVaccination(context.Background(), recordInput(campaign.ID, student))
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError for declined consent, got %v", err)
	}
}

func TestRecordVaccinationWithConsent(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, ""); err != nil {
		t.Fatalf("RecordConsent failed: %v", err)
	}
	rec, err := f.svc.RecordVaccination(context.Background(), recordInput(campaign.ID, student))
	if err != nil {
		t.Fatalf("RecordVaccination failed: %v", err)
	}
	if rec.ID == uuid.Nil {
		t.Error("record was not assigned an id")
	}

	// One record per (campaign, student).
	_, err = f.svc.RecordVaccination(context.Background(), recordInput(campaign.ID, student))
	var transition *apperr.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidStateTransitionError for duplicate record, got %v", err)
	}
}

func TestRecordFollowUp(t *testing.T) {
	f := newFixture(t, false)
	classID := uuid.New()
	student := f.students.addStudent(classID)
	campaign := f.createCampaign(t, classID)

	if _, err := f.svc.RecordConsent(context.Background(), campaign.ID, student, true, ""); err != nil {
		t.Fatalf("RecordConsent failed: %v", err)
	}
	rec, err := f.svc.RecordVaccination(context.Background(), recordInput(campaign.ID, student))
	if err != nil {
		t.Fatalf("RecordVaccination failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		_, err := f.svc.RecordFollowUp(context.Background(), rec.ID,
			time.Now().Add(time.Duration(i)*time.Hour), "mild fever", "")
		if err != nil {
			t.Fatalf("RecordFollowUp failed: %v", err)
		}
	}
	followUps, err := f.svc.ListFollowUps(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("ListFollowUps failed: %v", err)
	}
	if len(followUps) != 2 {
		t.Errorf("expected 2 follow-ups, got %d", len(followUps))
	}
}

func TestRecordFollowUpUnknownRecord(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.RecordFollowUp(context.Background(), uuid.New(), time.Now(), "rash", "")
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
