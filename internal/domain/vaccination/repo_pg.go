package vaccination

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolcare/healthd/internal/platform/apperr"
	"github.com/schoolcare/healthd/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Campaign Repository ===========

type campaignRepoPG struct{ pool *pgxpool.Pool }

func NewCampaignRepoPG(pool *pgxpool.Pool) CampaignRepository {
	return &campaignRepoPG{pool: pool}
}

const campaignCols = `id, name, vaccine_id, scheduled_at, class_ids, created_at`

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.VaccineID, &c.ScheduledAt, &c.ClassIDs, &c.CreatedAt)
	return &c, err
}

func (r *campaignRepoPG) Create(ctx context.Context, campaign *Campaign, studentIDs []uuid.UUID) error {
	campaign.ID = uuid.New()
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := conn(ctx, r.pool).Exec(ctx, `
			INSERT INTO vaccination_campaign (id, name, vaccine_id, scheduled_at, class_ids)
			VALUES ($1,$2,$3,$4,$5)`,
			campaign.ID, campaign.Name, campaign.VaccineID, campaign.ScheduledAt, campaign.ClassIDs)
		if err != nil {
			return err
		}
		for _, studentID := range studentIDs {
			_, err := conn(ctx, r.pool).Exec(ctx, `
				INSERT INTO vaccination_consent (id, campaign_id, student_id)
				VALUES ($1,$2,$3)`,
				uuid.New(), campaign.ID, studentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *campaignRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	c, err := scanCampaign(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+campaignCols+` FROM vaccination_campaign WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("vaccination campaign", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *campaignRepoPG) List(ctx context.Context, limit, offset int) ([]*Campaign, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM vaccination_campaign`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+campaignCols+` FROM vaccination_campaign ORDER BY scheduled_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Consent Repository ===========

type consentRepoPG struct{ pool *pgxpool.Pool }

func NewConsentRepoPG(pool *pgxpool.Pool) ConsentRepository {
	return &consentRepoPG{pool: pool}
}

const consentCols = `id, campaign_id, student_id, is_agreed, note, decided_at, created_at`

func scanConsent(row pgx.Row) (*Consent, error) {
	var c Consent
	err := row.Scan(&c.ID, &c.CampaignID, &c.StudentID, &c.IsAgreed, &c.Note, &c.DecidedAt, &c.CreatedAt)
	return &c, err
}

func (r *consentRepoPG) GetByCampaignStudent(ctx context.Context, campaignID, studentID uuid.UUID) (*Consent, error) {
	c, err := scanConsent(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+consentCols+` FROM vaccination_consent WHERE campaign_id = $1 AND student_id = $2`,
		campaignID, studentID))
	if db.IsNoRows(err) {
		return nil, &apperr.NotFoundError{Resource: "consent", ID: campaignID.String() + "/" + studentID.String()}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *consentRepoPG) SetAnswer(ctx context.Context, consent *Consent, allowRevision bool) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE vaccination_consent
		SET is_agreed = $3, note = $4, decided_at = $5
		WHERE campaign_id = $1 AND student_id = $2
		  AND (is_agreed IS NULL OR $6)`,
		consent.CampaignID, consent.StudentID, consent.IsAgreed, consent.Note, consent.DecidedAt,
		allowRevision)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *consentRepoPG) ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Consent, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM vaccination_consent WHERE campaign_id = $1`, campaignID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+consentCols+` FROM vaccination_consent
		WHERE campaign_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		campaignID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

// =========== Record Repository ===========

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

const recordCols = `id, campaign_id, student_id, nurse_id, injected_at, result, immediate_reaction, note, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.CampaignID, &rec.StudentID, &rec.NurseID,
		&rec.InjectedAt, &rec.Result, &rec.ImmediateReaction, &rec.Note, &rec.CreatedAt)
	return &rec, err
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vaccination_record (id, campaign_id, student_id, nurse_id, injected_at, result, immediate_reaction, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.CampaignID, rec.StudentID, rec.NurseID,
		rec.InjectedAt, rec.Result, rec.ImmediateReaction, rec.Note)
	if db.IsUniqueViolation(err) {
		return apperr.InvalidTransition("vaccination record",
			rec.StudentID, "recorded", "record again")
	}
	return err
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+recordCols+` FROM vaccination_record WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("vaccination record", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *recordRepoPG) listBy(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM vaccination_record WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+recordCols+` FROM vaccination_record
		WHERE `+column+` = $1 ORDER BY injected_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *recordRepoPG) ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return r.listBy(ctx, "campaign_id", campaignID, limit, offset)
}

func (r *recordRepoPG) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	return r.listBy(ctx, "student_id", studentID, limit, offset)
}

// =========== FollowUp Repository ===========

type followUpRepoPG struct{ pool *pgxpool.Pool }

func NewFollowUpRepoPG(pool *pgxpool.Pool) FollowUpRepository {
	return &followUpRepoPG{pool: pool}
}

func (r *followUpRepoPG) Create(ctx context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO vaccination_follow_up (id, record_id, observed_at, reaction, note)
		VALUES ($1,$2,$3,$4,$5)`,
		f.ID, f.RecordID, f.ObservedAt, f.Reaction, f.Note)
	return err
}

func (r *followUpRepoPG) ListByRecord(ctx context.Context, recordID uuid.UUID) ([]*FollowUp, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, record_id, observed_at, reaction, note, created_at
		FROM vaccination_follow_up WHERE record_id = $1 ORDER BY observed_at`,
		recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*FollowUp
	for rows.Next() {
		var f FollowUp
		if err := rows.Scan(&f.ID, &f.RecordID, &f.ObservedAt, &f.Reaction, &f.Note, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}
