package services

import (
	"context"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/client/session"
	"github.com/avolkov/duochat/internal/logging"
)

// TokenSource supplies the device's current push-delivery token and reports
// rotations of it.
type TokenSource interface {
	Current(ctx context.Context) (string, error)
	OnRotate(fn func(token string)) (stop func())
}

// PushManager keeps the remote identity record's push token in step with
// the device token. All of its work is best-effort: delivery degradation is
// acceptable, broken primary flows are not.
type PushManager struct {
	api    api.Client
	tokens TokenSource
	store  *session.Store
	logger logging.Logger
}

func NewPushManager(client api.Client, tokens TokenSource, store *session.Store, l logging.Logger) *PushManager {
	return &PushManager{
		api:    client,
		tokens: tokens,
		store:  store,
		logger: l.With("module", "push_manager"),
	}
}

// Attach writes the current device token onto the identity record. The
// update touches only the token field, so repeating it is harmless.
func (m *PushManager) Attach(ctx context.Context, userID string) error {
	token, err := m.tokens.Current(ctx)
	if err != nil {
		return err
	}
	return m.api.UpdatePushToken(ctx, userID, token)
}

// Detach removes the token field from the identity record so the backend
// stops routing notifications to this device.
func (m *PushManager) Detach(ctx context.Context, userID string) error {
	return m.api.ClearPushToken(ctx, userID)
}

// Watch re-attaches on token rotation for as long as a signed-in session is
// cached; rotations while signed out are ignored. It also attaches once at
// startup if the cached session is signed in. The returned stop function
// cancels the rotation subscription.
func (m *PushManager) Watch(ctx context.Context) (stop func()) {
	if sess, err := m.store.Load(ctx); err == nil && sess.SignedIn {
		if err := m.Attach(ctx, sess.UserID); err != nil {
			m.logger.Warn(ctx, "initial push token attach failed", "error", err.Error())
		}
	}

	return m.tokens.OnRotate(func(token string) {
		sess, err := m.store.Load(ctx)
		if err != nil {
			m.logger.Warn(ctx, "session load failed on token rotation", "error", err.Error())
			return
		}
		if !sess.SignedIn {
			return
		}
		if err := m.api.UpdatePushToken(ctx, sess.UserID, token); err != nil {
			m.logger.Warn(ctx, "push token re-attach failed", "error", err.Error())
		}
	})
}
