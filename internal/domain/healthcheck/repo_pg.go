package healthcheck

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

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const assignmentCols = `id, student_id, nurse_id, scheduled_at, description,
	result, height, weight, left_eye, right_eye, recorded_at, created_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.StudentID, &a.NurseID, &a.ScheduledAt, &a.Description,
		&a.Result, &a.Height, &a.Weight, &a.LeftEye, &a.RightEye, &a.RecordedAt, &a.CreatedAt)
	return &a, err
}

func (r *repoPG) CreateBatch(ctx context.Context, assignments []*Assignment) error {
	return db.RunInTx(ctx, r.pool, func(ctx context.Context) error {
		for _, a := range assignments {
			a.ID = uuid.New()
			_, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO health_check_assignment (id, student_id, nurse_id, scheduled_at, description)
				VALUES ($1,$2,$3,$4,$5)`,
				a.ID, a.StudentID, a.NurseID, a.ScheduledAt, a.Description)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	a, err := scanAssignment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM health_check_assignment WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("health check assignment", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *repoPG) listBy(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM health_check_assignment WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assignmentCols+` FROM health_check_assignment
		WHERE `+column+` = $1 ORDER BY scheduled_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return r.listBy(ctx, "student_id", studentID, limit, offset)
}

func (r *repoPG) ListByNurse(ctx context.Context, nurseID uuid.UUID, limit, offset int) ([]*Assignment, int, error) {
	return r.listBy(ctx, "nurse_id", nurseID, limit, offset)
}

func (r *repoPG) UpdateResult(ctx context.Context, a *Assignment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE health_check_assignment
		SET result = $2, height = $3, weight = $4, left_eye = $5, right_eye = $6, recorded_at = $7
		WHERE id = $1`,
		a.ID, a.Result, a.Height, a.Weight, a.LeftEye, a.RightEye, a.RecordedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("health check assignment", a.ID)
	}
	return nil
}
