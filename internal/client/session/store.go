package session

import (
	"context"
	"database/sql"

	"github.com/avolkov/duochat/internal/dbx"
)

// Keys of the cached record. The record is written wholesale: all keys in
// one transaction, never piecemeal.
const (
	keySignedIn    = "is_signed_in"
	keyUserID      = "user_id"
	keyDisplayName = "display_name"
	keyAvatar      = "avatar"
)

// Store reads and writes the whole session record.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the cached session. A record flagged signed-in without a
// user id is treated as signed out rather than surfaced as corrupt.
func (s *Store) Load(ctx context.Context) (Session, error) {
	repo := NewSQLiteRepository(s.db)

	signedIn, err := repo.Get(ctx, keySignedIn)
	if err != nil {
		return Anonymous(), err
	}
	userID, err := repo.Get(ctx, keyUserID)
	if err != nil {
		return Anonymous(), err
	}
	if string(signedIn) != "true" || len(userID) == 0 {
		return Anonymous(), nil
	}

	displayName, err := repo.Get(ctx, keyDisplayName)
	if err != nil {
		return Anonymous(), err
	}
	avatar, err := repo.Get(ctx, keyAvatar)
	if err != nil {
		return Anonymous(), err
	}

	return Session{
		SignedIn:       true,
		UserID:         string(userID),
		DisplayName:    string(displayName),
		AvatarEncoding: string(avatar),
	}, nil
}

// Save overwrites the record wholesale in a single transaction.
func (s *Store) Save(ctx context.Context, sess Session) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)

		signedIn := "false"
		if sess.SignedIn {
			signedIn = "true"
		}
		if err := repo.Set(ctx, keySignedIn, []byte(signedIn)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyUserID, []byte(sess.UserID)); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyDisplayName, []byte(sess.DisplayName)); err != nil {
			return err
		}
		return repo.Set(ctx, keyAvatar, []byte(sess.AvatarEncoding))
	})
}

// Clear wipes the whole record.
func (s *Store) Clear(ctx context.Context) error {
	return NewSQLiteRepository(s.db).Clear(ctx)
}
