package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avgystin/practicalwork/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	const stmt = `
INSERT INTO orders (order_uuid, session_id, product_name, quantity, unit_price, total_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`

	err := r.pool.QueryRow(ctx, stmt,
		order.ExternalID, order.SessionToken, order.ProductName,
		order.Quantity, order.UnitPrice, order.TotalPrice, order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		return domain.Order{}, wrapErr("save order", err)
	}
	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	const query = `
SELECT id, order_uuid, session_id, product_name, quantity, unit_price, total_price, created_at
FROM orders
WHERE id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.ExternalID, &o.SessionToken, &o.ProductName,
		&o.Quantity, &o.UnitPrice, &o.TotalPrice, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("find order", err)
	}
	return &o, nil
}

// DeleteByID reports whether a row was removed. Deleting a missing order is
// not an error.
func (r *OrderRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, wrapErr("delete order", err)
	}
	return tag.RowsAffected() > 0, nil
}
