package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avgystin/practicalwork/internal/domain"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) SaveMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	const stmt = `INSERT INTO messages (content, created_at) VALUES ($1, $2) RETURNING id`

	if err := r.pool.QueryRow(ctx, stmt, msg.Content, msg.CreatedAt).Scan(&msg.ID); err != nil {
		return domain.Message{}, wrapErr("save message", err)
	}
	return msg, nil
}
