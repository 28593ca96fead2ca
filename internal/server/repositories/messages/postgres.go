package messages

import (
	"context"
	"fmt"

	"github.com/avolkov/duochat/internal/dbx"
	"github.com/avolkov/duochat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, msg *models.Message) (*models.Message, error) {

	query :=
		`INSERT INTO messages (id, thread_key, sender_id, receiver_id, body)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING sent_at, seq
		 `

	err := r.db.QueryRowContext(ctx, query,
		msg.ID, msg.ThreadKey, msg.SenderID, msg.ReceiverID, msg.Body).
		Scan(&msg.SentAt, &msg.Seq)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

func (r *PostgresRepository) ListThread(ctx context.Context, threadKey string) ([]*models.Message, error) {
	query :=
		`SELECT id, thread_key, sender_id, receiver_id, body, sent_at, seq FROM messages
		 WHERE thread_key = $1
		 ORDER BY sent_at, seq
		 `

	rows, err := r.db.QueryContext(ctx, query, threadKey)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		if err := rows.Scan(&msg.ID, &msg.ThreadKey, &msg.SenderID, &msg.ReceiverID, &msg.Body, &msg.SentAt, &msg.Seq); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
