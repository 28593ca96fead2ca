package users

import (
	"context"

	"github.com/avolkov/duochat/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	SetPushToken(ctx context.Context, id string, token string) error
	ClearPushToken(ctx context.Context, id string) error
	SetAvatarKey(ctx context.Context, id string, key string) error
}
