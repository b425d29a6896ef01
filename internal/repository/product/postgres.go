package product

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

const productColumns = `id::text, name, description, price::text, category, image, stock, rating, num_of_reviews, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrDiscard(logger).With("repo", "product")}
}

func (r *postgresRepo) List(ctx context.Context, category string) ([]domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE $1 = '' OR category = $1
ORDER BY category, name
`
	rows, err := r.pool.Query(ctx, q, category)
	if err != nil {
		r.logger.Error("list products", "category", category, "error", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("list products rows", "category", category, "error", err)
		return nil, err
	}
	r.logger.Debug("list products", "category", category, "count", len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const q = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug("get product not found", "id", id)
			return nil, err
		}
		r.logger.Error("get product", "id", id, "error", err)
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, category, image, stock, rating, num_of_reviews)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)
ON CONFLICT (name) DO UPDATE SET
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    category = EXCLUDED.category,
    image = EXCLUDED.image,
    stock = EXCLUDED.stock,
    rating = EXCLUDED.rating,
    num_of_reviews = EXCLUDED.num_of_reviews
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q,
		p.Name,
		p.Description,
		p.Price.String(),
		p.Category,
		p.Image,
		p.Stock,
		p.Rating,
		p.NumOfReviews,
	))
	if err != nil {
		r.logger.Error("upsert product", "name", p.Name, "error", err)
		return nil, err
	}
	r.logger.Debug("upserted product", "name", res.Name, "id", res.ID)
	return res, nil
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (name, description, price, category, image, stock)
VALUES ($1, $2, $3::numeric, $4, $5, $6)
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, p.Name, p.Description, p.Price.String(), p.Category, p.Image, p.Stock))
	if err != nil {
		r.logger.Warn("create product", "name", p.Name, "error", err)
		return nil, err
	}
	r.logger.Info("created product", "name", res.Name, "id", res.ID)
	return res, nil
}

func (r *postgresRepo) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
UPDATE products
SET name = $2,
    description = $3,
    price = $4::numeric,
    category = $5,
    image = $6,
    stock = $7
WHERE id = $1
RETURNING ` + productColumns
	res, err := scanProduct(r.pool.QueryRow(ctx, q, p.ID, p.Name, p.Description, p.Price.String(), p.Category, p.Image, p.Stock))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("update product", "id", p.ID, "error", err)
		}
		return nil, err
	}
	r.logger.Info("updated product", "name", res.Name, "id", res.ID)
	return res, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM products WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Error("delete product", "id", id, "error", err)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.logger.Info("deleted product", "id", id)
	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	var price string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Category, &p.Image, &p.Stock, &p.Rating, &p.NumOfReviews, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	return &p, nil
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
		case "23505":
			return fmt.Errorf("%w: product name already taken", domain.ErrAlreadyExists)
		case "22001", "22003":
			return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.Message)
		}
	}
	return err
}
