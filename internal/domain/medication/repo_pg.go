package medication

import (
	"context"
	"time"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const requestCols = `id, student_id, guardian_id, status, parent_note, nurse_note, decided_by_id, created_at, decided_at`

func (r *repoPG) scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.StudentID, &req.GuardianID, &req.Status,
		&req.ParentNote, &req.NurseNote, &req.DecidedByID, &req.CreatedAt, &req.DecidedAt)
	return &req, err
}

func (r *repoPG) Create(ctx context.Context, req *Request) error {
	req.ID = uuid.New()
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO medication_request (id, student_id, guardian_id, status, parent_note)
			VALUES ($1,$2,$3,$4,$5)`,
			req.ID, req.StudentID, req.GuardianID, req.Status, req.ParentNote)
		if err != nil {
			return err
		}
		return r.insertItems(ctx, req.ID, req.Medications)
	})
}

func (r *repoPG) insertItems(ctx context.Context, requestID uuid.UUID, meds []Item) error {
	for i, m := range meds {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO medication_request_item (request_id, position, name, dosage, usage, expiry, note)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			requestID, i, m.Name, m.Dosage, m.Usage, m.Expiry, m.Note)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadItems(ctx context.Context, requestID uuid.UUID) ([]Item, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT name, dosage, usage, expiry, note
		FROM medication_request_item WHERE request_id = $1 ORDER BY position`,
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []Item
	for rows.Next() {
		var m Item
		if err := rows.Scan(&m.Name, &m.Dosage, &m.Usage, &m.Expiry, &m.Note); err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Request, error) {
	req, err := r.scanRequest(r.conn(ctx).QueryRow(ctx,
		`SELECT `+requestCols+` FROM medication_request WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("medication request", id)
	}
	if err != nil {
		return nil, err
	}
	req.Medications, err = r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Request, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medication_request WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+requestCols+` FROM medication_request
		WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, req := range items {
		req.Medications, err = r.loadItems(ctx, req.ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repoPG) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `student_id = $1`, studentID, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Request, int, error) {
	return r.list(ctx, `status = $1`, status, limit, offset)
}

func (r *repoPG) UpdateContent(ctx context.Context, id uuid.UUID, expectedStatus, parentNote string, meds []Item) (bool, error) {
	matched := false
	err := db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		tag, err := r.conn(ctx).Exec(ctx, `
			UPDATE medication_request SET parent_note = $3
			WHERE id = $1 AND status = $2`,
			id, expectedStatus, parentNote)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		matched = true
		if _, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM medication_request_item WHERE request_id = $1`, id); err != nil {
			return err
		}
		return r.insertItems(ctx, id, meds)
	})
	return matched, err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string,
	nurseNote *string, decidedBy uuid.UUID, decidedAt time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_request
		SET status = $3, nurse_note = $4, decided_by_id = $5, decided_at = $6
		WHERE id = $1 AND status = $2`,
		id, expectedStatus, newStatus, nurseNote, decidedBy, decidedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
