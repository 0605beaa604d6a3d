package inventory

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

const itemCols = `id, kind, name, type, unit, quantity_on_hand, created_at, updated_at`

func (r *repoPG) scanItem(row pgx.Row) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Kind, &it.Name, &it.Type, &it.Unit,
		&it.QuantityOnHand, &it.CreatedAt, &it.UpdatedAt)
	return &it, err
}

func (r *repoPG) Create(ctx context.Context, item *Item) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_item (id, kind, name, type, unit, quantity_on_hand)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		item.ID, item.Kind, item.Name, item.Type, item.Unit, item.QuantityOnHand)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Item, error) {
	it, err := r.scanItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+itemCols+` FROM inventory_item WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("inventory item", id)
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *repoPG) List(ctx context.Context, kind string, limit, offset int) ([]*Item, int, error) {
	where := ``
	args := []interface{}{limit, offset}
	if kind != "" {
		where = ` WHERE kind = $3`
		args = append(args, kind)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM inventory_item`
	if kind != "" {
		if err := r.conn(ctx).QueryRow(ctx, countQuery+` WHERE kind = $1`, kind).Scan(&total); err != nil {
			return nil, 0, err
		}
	} else {
		if err := r.conn(ctx).QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+itemCols+` FROM inventory_item`+where+` ORDER BY name LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		it, err := r.scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// DecrementIfAvailable relies on a single conditional UPDATE so the check
// and the decrement are one atomic statement; the quantity_on_hand >= $2
// predicate is what makes concurrent oversell impossible.
func (r *repoPG) DecrementIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = NOW()
		WHERE id = $1 AND quantity_on_hand >= $2`,
		id, qty)
	if err != nil {
		if db.IsSerializationFailure(err) {
			return false, &apperr.ConcurrencyConflictError{Op: "decrement inventory"}
		}
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish unknown item from insufficient stock.
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *repoPG) Increment(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE inventory_item
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW()
		WHERE id = $1`,
		id, qty)
	if err != nil {
		if db.IsSerializationFailure(err) {
			return &apperr.ConcurrencyConflictError{Op: "increment inventory"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("inventory item", id)
	}
	return nil
}
