package directory

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

const studentCols = `id, class_id, guardian_id, full_name, date_of_birth`

func (r *repoPG) GetStudent(ctx context.Context, id uuid.UUID) (*Student, error) {
	var s Student
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+studentCols+` FROM student WHERE id = $1`, id).
		Scan(&s.ID, &s.ClassID, &s.GuardianID, &s.FullName, &s.DateOfBirth)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("student", id)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) ListStudentsByClasses(ctx context.Context, classIDs []uuid.UUID) ([]*Student, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+studentCols+` FROM student WHERE class_id = ANY($1) ORDER BY full_name`, classIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.ClassID, &s.GuardianID, &s.FullName, &s.DateOfBirth); err != nil {
			return nil, err
		}
		students = append(students, &s)
	}
	return students, rows.Err()
}

func (r *repoPG) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	var a Account
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, role, display_name FROM account WHERE id = $1`, id).
		Scan(&a.ID, &a.Role, &a.DisplayName)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("account", id)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
