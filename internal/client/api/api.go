// Package api defines the client's view of the remote backend: the identity
// store, the append-only thread collection, the push-token registry, and the
// avatar original storage. Services depend on the Client interface so tests
// can substitute a fake.
package api

import (
	"context"
	"time"
)

// NewAccount is the payload for account creation. Avatar carries the
// base64-encoded JPEG preview produced by avatarx.Encode.
type NewAccount struct {
	DisplayName string
	Email       string
	Password    string
	Avatar      string
}

// Record is a remote identity record as seen by the client. The backend
// never serializes credentials into it.
type Record struct {
	ID          string
	DisplayName string
	Email       string
	Avatar      string
	AvatarKey   string
	CreatedAt   time.Time
}

// OutgoingMessage is a message to append. The sender is implied by the
// session; SentAt is always assigned by the remote store.
type OutgoingMessage struct {
	ReceiverID string
	Body       string
}

// Message is one element of a thread snapshot.
type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Body       string
	SentAt     time.Time
	Seq        int64
}

// Subscription is a live view of one thread. Every delivery on Snapshots is
// the full ordered thread, not a delta. Errs carries transient feed errors.
// Close stops deliveries and closes both channels.
type Subscription interface {
	Snapshots() <-chan []Message
	Errs() <-chan error
	Close() error
}

// Client is the remote backend surface.
type Client interface {
	CreateAccount(ctx context.Context, account NewAccount) (string, error)
	Authenticate(ctx context.Context, email string, password string) (string, string, error)
	GetRecord(ctx context.Context, userID string) (*Record, error)
	ListUsers(ctx context.Context) ([]*Record, error)
	UpdatePushToken(ctx context.Context, userID string, token string) error
	ClearPushToken(ctx context.Context, userID string) error
	Append(ctx context.Context, threadKey string, msg OutgoingMessage) error
	Subscribe(ctx context.Context, threadKey string) (Subscription, error)
	AvatarUploadURL(ctx context.Context) (string, string, error)
	AvatarGetURL(ctx context.Context, key string) (string, error)
	Close() error
}
