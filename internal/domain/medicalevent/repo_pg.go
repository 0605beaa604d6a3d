package medicalevent

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

const eventCols = `id, student_id, nurse_id, type, description, note, occurred_at, created_at`

func (r *repoPG) scanEvent(row pgx.Row) (*MedicalEvent, error) {
	var e MedicalEvent
	err := row.Scan(&e.ID, &e.StudentID, &e.NurseID, &e.Type, &e.Description,
		&e.Note, &e.OccurredAt, &e.CreatedAt)
	return &e, err
}

// Create persists the event and its consumption lines in one transaction.
func (r *repoPG) Create(ctx context.Context, evt *MedicalEvent) error {
	evt.ID = uuid.New()
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		_, err := r.conn(ctx).Exec(ctx, `
			INSERT INTO medical_event (id, student_id, nurse_id, type, description, note, occurred_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			evt.ID, evt.StudentID, evt.NurseID, evt.Type, evt.Description, evt.Note, evt.OccurredAt)
		if err != nil {
			return err
		}
		for _, line := range evt.ConsumedLines {
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO medical_event_line (event_id, item_id, quantity_used)
				VALUES ($1,$2,$3)`,
				evt.ID, line.ItemID, line.QuantityUsed)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) loadLines(ctx context.Context, eventID uuid.UUID) ([]ConsumedLine, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT item_id, quantity_used FROM medical_event_line WHERE event_id = $1 ORDER BY item_id`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ConsumedLine
	for rows.Next() {
		var l ConsumedLine
		if err := rows.Scan(&l.ItemID, &l.QuantityUsed); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalEvent, error) {
	evt, err := r.scanEvent(r.conn(ctx).QueryRow(ctx,
		`SELECT `+eventCols+` FROM medical_event WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("medical event", id)
	}
	if err != nil {
		return nil, err
	}
	evt.ConsumedLines, err = r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return evt, nil
}

func (r *repoPG) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*MedicalEvent, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_event WHERE student_id = $1`, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+eventCols+` FROM medical_event
		WHERE student_id = $1 ORDER BY occurred_at DESC LIMIT $2 OFFSET $3`,
		studentID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*MedicalEvent
	for rows.Next() {
		evt, err := r.scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, evt := range items {
		evt.ConsumedLines, err = r.loadLines(ctx, evt.ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx,
			`DELETE FROM medical_event_line WHERE event_id = $1`, id); err != nil {
			return err
		}
		tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_event WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("medical event", id)
		}
		return nil
	})
}
