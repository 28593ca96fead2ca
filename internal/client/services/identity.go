// Package services contains the client's application services: the identity
// lifecycle, push-token management, conversation synchronization, and the
// message presenter.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/avolkov/duochat/internal/avatarx"
	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/client/session"
	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/logging"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// SignUpInput is the raw form input for account creation. Avatar carries
// the original image bytes; the service encodes the preview itself.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
	Avatar   []byte
}

// IdentityService drives sign-up, sign-in and sign-out against the remote
// identity store, and is the sole writer of the local session cache.
type IdentityService struct {
	api    api.Client
	store  *session.Store
	push   *PushManager
	logger logging.Logger
}

func NewIdentityService(client api.Client, store *session.Store, push *PushManager, l logging.Logger) *IdentityService {
	return &IdentityService{
		api:    client,
		store:  store,
		push:   push,
		logger: l.With("module", "identity_service"),
	}
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, msg)
}

// validateSignUp checks the form fields in the fixed order the messages are
// shown to the user. Nothing reaches the network before it passes.
func validateSignUp(in SignUpInput) error {
	switch {
	case len(in.Avatar) == 0:
		return validationError("Please choose an avatar")
	case strings.TrimSpace(in.Name) == "":
		return validationError("Please enter your name")
	case strings.TrimSpace(in.Email) == "":
		return validationError("Please enter your e-mail")
	case !emailPattern.MatchString(in.Email):
		return validationError("Please enter a valid e-mail")
	case strings.TrimSpace(in.Password) == "":
		return validationError("Please enter your password")
	case strings.TrimSpace(in.Confirm) == "":
		return validationError("Please confirm your password")
	case in.Password != in.Confirm:
		return validationError("Password does not match password confirmation")
	}
	return nil
}

func validateSignIn(email, password string) error {
	switch {
	case strings.TrimSpace(email) == "":
		return validationError("Please enter your e-mail")
	case !emailPattern.MatchString(email):
		return validationError("Please enter a valid e-mail")
	case strings.TrimSpace(password) == "":
		return validationError("Please enter your password")
	}
	return nil
}

// SignUp validates the form, encodes the avatar preview, creates the remote
// identity record, authenticates, and overwrites the session cache
// wholesale. Backend rejections surface their message verbatim.
func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) (session.Session, error) {
	if err := validateSignUp(in); err != nil {
		return session.Anonymous(), err
	}

	encoded, err := avatarx.Encode(in.Avatar)
	if err != nil {
		return session.Anonymous(), validationError("Please choose an avatar")
	}

	userID, err := s.api.CreateAccount(ctx, api.NewAccount{
		DisplayName: in.Name,
		Email:       in.Email,
		Password:    in.Password,
		Avatar:      encoded,
	})
	if err != nil {
		return session.Anonymous(), err
	}

	if _, _, err := s.api.Authenticate(ctx, in.Email, in.Password); err != nil {
		return session.Anonymous(), err
	}

	sess := session.Session{
		SignedIn:       true,
		UserID:         userID,
		DisplayName:    in.Name,
		AvatarEncoding: encoded,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return session.Anonymous(), fmt.Errorf("saving session: %w", err)
	}

	s.attachPushToken(ctx, userID)

	return sess, nil
}

// SignIn authenticates and fetches the matching identity record. A missing
// record after successful authentication is backend inconsistency, reported
// as ErrProfileNotFound rather than bad credentials. On success the session
// cache is overwritten wholesale.
func (s *IdentityService) SignIn(ctx context.Context, email, password string) (session.Session, error) {
	if err := validateSignIn(email, password); err != nil {
		return session.Anonymous(), err
	}

	userID, _, err := s.api.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			return session.Anonymous(), common.ErrInvalidCredentials
		}
		return session.Anonymous(), err
	}

	record, err := s.api.GetRecord(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return session.Anonymous(), common.ErrProfileNotFound
		}
		return session.Anonymous(), err
	}

	sess := session.Session{
		SignedIn:       true,
		UserID:         record.ID,
		DisplayName:    record.DisplayName,
		AvatarEncoding: record.Avatar,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return session.Anonymous(), fmt.Errorf("saving session: %w", err)
	}

	s.attachPushToken(ctx, userID)

	return sess, nil
}

// SignOut detaches the push token best-effort, then clears the cache. A
// failed detach never blocks the sign-out.
func (s *IdentityService) SignOut(ctx context.Context) error {
	sess, err := s.store.Load(ctx)
	if err == nil && sess.SignedIn {
		if err := s.push.Detach(ctx, sess.UserID); err != nil {
			s.logger.Warn(ctx, "push token detach failed", "error", err.Error())
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Session returns the cached session.
func (s *IdentityService) Session(ctx context.Context) (session.Session, error) {
	return s.store.Load(ctx)
}

// Partners lists the other identity records, for conversation selection.
func (s *IdentityService) Partners(ctx context.Context, selfID string) ([]*api.Record, error) {
	records, err := s.api.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	others := make([]*api.Record, 0, len(records))
	for _, r := range records {
		if r.ID != selfID {
			others = append(others, r)
		}
	}
	return others, nil
}

func (s *IdentityService) attachPushToken(ctx context.Context, userID string) {
	if err := s.push.Attach(ctx, userID); err != nil {
		s.logger.Warn(ctx, "push token attach failed", "error", err.Error())
	}
}
