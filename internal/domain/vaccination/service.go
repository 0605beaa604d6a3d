package vaccination

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/schoolcare/healthd/internal/domain/directory"
	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/events"
)

type Service struct {
	campaigns     CampaignRepository
	consents      ConsentRepository
	records       RecordRepository
	followUps     FollowUpRepository
	students      directory.Repository
	allowRevision bool
	dispatcher    *events.Dispatcher
}

func NewService(campaigns CampaignRepository, consents ConsentRepository,
	records RecordRepository, followUps FollowUpRepository,
	students directory.Repository, allowRevision bool, dispatcher *events.Dispatcher) *Service {
	return &Service{
		campaigns:     campaigns,
		consents:      consents,
		records:       records,
		followUps:     followUps,
		students:      students,
		allowRevision: allowRevision,
		dispatcher:    dispatcher,
	}
}

// CreateCampaignInput describes a new vaccination campaign.
type CreateCampaignInput struct {
	Name        string      `json:"name"`
	VaccineID   uuid.UUID   `json:"vaccine_id"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	ClassIDs    []uuid.UUID `json:"class_ids"`
}

// CreateCampaign persists the campaign and solicits one undecided consent
// per student enrolled in the selected classes. Classes with no students
// simply contribute no consents.
func (s *Service) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*Campaign, error) {
	if in.Name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if in.VaccineID == uuid.Nil {
		return nil, apperr.Validation("vaccine_id", "is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.Validation("scheduled_at", "is required")
	}
	if len(in.ClassIDs) == 0 {
		return nil, apperr.Validation("class_ids", "at least one class is required")
	}

	enrolled, err := s.students.ListStudentsByClasses(ctx, in.ClassIDs)
	if err != nil {
		return nil, err
	}
	studentIDs := make([]uuid.UUID, len(enrolled))
	for i, st := range enrolled {
		studentIDs[i] = st.ID
	}

	campaign := &Campaign{
		Name:        in.Name,
		VaccineID:   in.VaccineID,
		ScheduledAt: in.ScheduledAt,
		ClassIDs:    in.ClassIDs,
	}
	if err := s.campaigns.Create(ctx, campaign, studentIDs); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (s *Service) GetCampaign(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return s.campaigns.GetByID(ctx, id)
}

func (s *Service) ListCampaigns(ctx context.Context, limit, offset int) ([]*Campaign, int, error) {
	return s.campaigns.List(ctx, limit, offset)
}

// RecordConsent stores the guardian's answer. Whether a decided consent can
// be revised is a policy choice; with revision disabled, answering twice is
// an invalid transition.
func (s *Service) RecordConsent(ctx context.Context, campaignID, studentID uuid.UUID, isAgreed bool, note string) (*Consent, error) {
	if campaignID == uuid.Nil {
		return nil, apperr.Validation("campaign_id", "is required")
	}
	if studentID == uuid.Nil {
		return nil, apperr.Validation("student_id", "is required")
	}

	existing, err := s.consents.GetByCampaignStudent(ctx, campaignID, studentID)
	if err != nil {
		return nil, err
	}
	if existing.IsAgreed != nil && !s.allowRevision {
		return nil, apperr.InvalidTransition("consent", existing.ID,
			strconv.FormatBool(*existing.IsAgreed), "revise")
	}

	now := time.Now().UTC()
	existing.IsAgreed = &isAgreed
	existing.Note = note
	existing.DecidedAt = &now
	// The repo re-checks undecidedness inside the UPDATE, so a concurrent
	// answer that slipped past the read above still loses here.
	matched, err := s.consents.SetAnswer(ctx, existing, s.allowRevision)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, apperr.InvalidTransition("consent", existing.ID, "decided", "revise")
	}

	s.dispatcher.Publish(events.Event{
		Topic: events.TopicConsentRecorded,
		Data: map[string]string{
			"campaign_id": campaignID.String(),
			"student_id":  studentID.String(),
			"is_agreed":   strconv.FormatBool(isAgreed),
		},
	})
	return existing, nil
}

// RecordVaccinationInput is a nurse-entered injection record.
type RecordVaccinationInput struct {
	CampaignID        uuid.UUID `json:"campaign_id"`
	StudentID         uuid.UUID `json:"student_id"`
	NurseID           uuid.UUID `json:"nurse_id"`
	InjectedAt        time.Time `json:"injected_at"`
	Result            string    `json:"result"`
	ImmediateReaction string    `json:"immediate_reaction"`
	Note              string    `json:"note"`
}

// RecordVaccination creates the injection record. It is only valid for a
// (campaign, student) whose consent answer is an explicit yes.
func (s *Service) RecordVaccination(ctx context.Context, in RecordVaccinationInput) (*Record, error) {
	if in.CampaignID == uuid.Nil {
		return nil, apperr.Validation("campaign_id", "is required")
	}
	if in.StudentID == uuid.Nil {
		return nil, apperr.Validation("student_id", "is required")
	}
	if in.NurseID == uuid.Nil {
		return nil, apperr.Validation("nurse_id", "is required")
	}
	if in.InjectedAt.IsZero() {
		return nil, apperr.Validation("injected_at", "is required")
	}

	consent, err := s.consents.GetByCampaignStudent(ctx, in.CampaignID, in.StudentID)
	if err != nil {
		return nil, err
	}
	if consent.IsAgreed == nil {
		return nil, apperr.InvalidTransition("consent", consent.ID, "undecided", "record vaccination")
	}
	if !*consent.IsAgreed {
		return nil, apperr.InvalidTransition("consent", consent.ID, "declined", "record vaccination")
	}

	rec := &Record{
		CampaignID:        in.CampaignID,
		StudentID:         in.StudentID,
		NurseID:           in.NurseID,
		InjectedAt:        in.InjectedAt,
		Result:            in.Result,
		ImmediateReaction: in.ImmediateReaction,
		Note:              in.Note,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.dispatcher.Publish(events.Event{
		Topic: events.TopicVaccinationDone,
		Data: map[string]string{
			"record_id":   rec.ID.String(),
			"campaign_id": rec.CampaignID.String(),
			"student_id":  rec.StudentID.String(),
		},
	})
	return rec, nil
}

// RecordFollowUp appends a post-injection observation to an existing record.
func (s *Service) RecordFollowUp(ctx context.Context, recordID uuid.UUID, observedAt time.Time, reaction, note string) (*FollowUp, error) {
	if recordID == uuid.Nil {
		return nil, apperr.Validation("record_id", "is required")
	}
	if observedAt.IsZero() {
		return nil, apperr.Validation("observed_at", "is required")
	}
	if _, err := s.records.GetByID(ctx, recordID); err != nil {
		return nil, err
	}

	f := &FollowUp{
		RecordID:   recordID,
		ObservedAt: observedAt,
		Reaction:   reaction,
		Note:       note,
	}
	if err := s.followUps.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) ListConsents(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	return s.consents.ListByCampaign(ctx, campaignID, limit, offset)
}

func (s *Service) ListRecords(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return s.records.ListByCampaign(ctx, campaignID, limit, offset)
}

func (s *Service) ListFollowUps(ctx context.Context, recordID uuid.UUID) ([]*FollowUp, error) {
	if _, err := s.records.GetByID(ctx, recordID); err != nil {
		return nil, err
	}
	return s.followUps.ListByRecord(ctx, recordID)
}
