package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

const orderSelect = `
SELECT o.id::text, o.user_id::text, COALESCE(u.name, ''), COALESCE(u.email, ''),
       o.shipping_address, o.shipping_city, o.shipping_zip, o.payment_method,
       o.items_price::text, o.tax_price::text, o.shipping_price::text, o.total_price::text,
       o.status, o.version, o.created_at, o.updated_at
FROM orders o
LEFT JOIN users u ON u.id = o.user_id
`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrDiscard(logger).With("repo", "order")}
}

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertOrder = `
INSERT INTO orders (user_id, shipping_address, shipping_city, shipping_zip, payment_method,
                    items_price, tax_price, shipping_price, total_price)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9::numeric)
RETURNING id::text
`
	var id string
	err = tx.QueryRow(ctx, insertOrder,
		o.User.ID,
		o.ShippingAddress.Address,
		o.ShippingAddress.City,
		o.ShippingAddress.Zip,
		o.PaymentMethod,
		o.ItemsPrice.String(),
		o.TaxPrice.String(),
		o.ShippingPrice.String(),
		o.TotalPrice.String(),
	).Scan(&id)
	if err != nil {
		r.logger.Error("insert order", "user_id", o.User.ID, "error", err)
		return nil, mapError(err)
	}

	const insertLine = `
INSERT INTO order_items (order_id, position, product_id, name, quantity, price, image)
VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
`
	batch := &pgx.Batch{}
	for i, l := range o.Lines {
		batch.Queue(insertLine, id, i, l.ProductID, l.Name, l.Quantity, l.Price.String(), l.Image)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("insert order lines", "order_id", id, "error", err)
		return nil, mapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}
	r.logger.Info("order created", "order_id", id, "user_id", o.User.ID, "lines", len(o.Lines))
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	orders, err := r.query(ctx, orderSelect+`WHERE o.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+`ORDER BY o.created_at DESC`)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+`WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus, expectedVersion int) (*domain.Order, error) {
	const q = `
UPDATE orders
SET status = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND ($3 = 0 OR version = $3)
`
	tag, err := r.pool.Exec(ctx, q, id, string(status), expectedVersion)
	if err != nil {
		r.logger.Error("update order status", "order_id", id, "error", err)
		return nil, mapError(err)
	}
	if tag.RowsAffected() == 0 {
		// either missing or a stale version
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.logger.Warn("order version conflict", "order_id", id, "expected", expectedVersion, "actual", current.Version)
		return nil, domain.ErrConflict
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM orders WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		r.logger.Error("delete order", "order_id", id, "error", err)
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("order deleted", "order_id", id)
	return nil
}

func (r *postgresRepo) query(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("query orders", "error", err)
		return nil, mapError(err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("query orders rows", "error", err)
		return nil, mapError(err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	lines, err := loadLines(ctx, r.pool, ids)
	if err != nil {
		r.logger.Error("load order lines", "error", err)
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []domain.OrderLine{}
		}
	}
	return orders, nil
}

func loadLines(ctx context.Context, q querier, orderIDs []string) (map[string][]domain.OrderLine, error) {
	const sel = `
SELECT order_id::text, product_id, name, quantity, price::text, image
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`
	rows, err := q.Query(ctx, sel, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var orderID, price string
		var l domain.OrderLine
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Quantity, &price, &l.Image); err != nil {
			return nil, err
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("decode line price %q: %w", price, err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	var items, tax, shipping, total string
	err := row.Scan(
		&o.ID, &o.User.ID, &o.User.Name, &o.User.Email,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.Zip, &o.PaymentMethod,
		&items, &tax, &shipping, &total,
		&status, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = domain.OrderStatus(status)
	for _, f := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{items, &o.ItemsPrice},
		{tax, &o.TaxPrice},
		{shipping, &o.ShippingPrice},
		{total, &o.TotalPrice},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return o, fmt.Errorf("decode price %q: %w", f.raw, err)
		}
	}
	return o, nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "22P02":
			// malformed uuid
			return domain.ErrNotFound
		case "23503":
			return fmt.Errorf("%w: unknown user", domain.ErrValidation)
		case "23514":
			return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
		case "22003":
			return fmt.Errorf("%w: numeric value out of range", domain.ErrValidation)
		}
	}
	return err
}
