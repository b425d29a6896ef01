package message

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrDiscard(logger).With("repo", "message")}
}

func (r *postgresRepo) Create(ctx context.Context, m domain.Message) (*domain.Message, error) {
	const q = `
INSERT INTO messages (name, email, body)
VALUES ($1, $2, $3)
RETURNING id::text, name, email, body, created_at
`
	var res domain.Message
	err := r.pool.QueryRow(ctx, q, m.Name, m.Email, m.Body).Scan(&res.ID, &res.Name, &res.Email, &res.Body, &res.CreatedAt)
	if err != nil {
		r.logger.Error("insert message", "error", err)
		return nil, err
	}
	r.logger.Info("message stored", "message_id", res.ID)
	return &res, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Message, error) {
	const q = `
SELECT id::text, name, email, body, created_at
FROM messages
ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("list messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM messages WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.Is(err, pgx.ErrNoRows) || (errors.As(err, &pgErr) && pgErr.Code == "22P02") {
			return domain.ErrNotFound
		}
		r.logger.Error("delete message", "message_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
