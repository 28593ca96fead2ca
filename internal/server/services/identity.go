// Package services contains server-side business logic. This file implements
// IdentityService: account creation, credential verification, record reads,
// and push-token updates.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/server/auth"
	"github.com/avolkov/duochat/internal/server/config"
	"github.com/avolkov/duochat/internal/server/models"
	"github.com/avolkov/duochat/internal/server/repositories/users"
)

// IdentityService provides identity-store operations:
//   - CreateAccount: create an identity record with a hashed password
//   - Authenticate: verify credentials and mint an access token
//   - GetRecord / ListRecords: profile reads (password hash never leaves)
//   - SetPushToken / ClearPushToken: partial updates of the token column
type IdentityService struct {
	users                       users.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewIdentityService constructs an IdentityService using the users
// repository and server config.
func NewIdentityService(repo users.Repository, cfg *config.Config) *IdentityService {
	return &IdentityService{
		users:                       repo,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// CreateAccount creates a new identity record with an empty push token.
// The raw password is hashed with bcrypt and discarded; it is never stored
// on the profile.
func (s *IdentityService) CreateAccount(ctx context.Context, displayName, email, password, avatar string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrInternal
	}

	user := &models.User{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: hash,
		Avatar:       avatar,
	}

	u, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Authenticate verifies the email/password pair and, on success, returns
// the user id and a fresh access token.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (string, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", "", common.ErrUnauthorized
		}
		return "", "", common.ErrInternal
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return "", "", common.ErrUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", "", common.ErrInternal
	}

	return user.ID, token, nil
}

// GetRecord returns the identity record for the given user id.
func (s *IdentityService) GetRecord(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListRecords returns all identity records, for partner selection.
func (s *IdentityService) ListRecords(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

// SetPushToken updates only the push_token field of the record.
func (s *IdentityService) SetPushToken(ctx context.Context, userID, token string) error {
	return s.users.SetPushToken(ctx, userID, token)
}

// ClearPushToken removes the push_token field of the record.
func (s *IdentityService) ClearPushToken(ctx context.Context, userID string) error {
	return s.users.ClearPushToken(ctx, userID)
}

// SetAvatarKey records the storage key of an uploaded full-size avatar.
func (s *IdentityService) SetAvatarKey(ctx context.Context, userID, key string) error {
	return s.users.SetAvatarKey(ctx, userID, key)
}
