package messages

import (
	"context"

	"github.com/avolkov/duochat/internal/server/models"
)

type Repository interface {
	// Append inserts a message; sent_at and seq are assigned by the
	// database and written back into the returned message.
	Append(ctx context.Context, msg *models.Message) (*models.Message, error)
	// ListThread returns the full thread ordered by (sent_at, seq).
	ListThread(ctx context.Context, threadKey string) ([]*models.Message, error)
}
