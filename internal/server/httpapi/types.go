package httpapi

import (
	"time"

	"github.com/avolkov/duochat/internal/server/models"
)

// Wire types. The identity record's password hash stays server-side, so the
// storage models are never serialized directly.

type accountRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Avatar      string `json:"avatar"`
}

type accountResponse struct {
	ID string `json:"id"`
}

type sessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

type userPayload struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Avatar      string    `json:"avatar,omitempty"`
	AvatarKey   string    `json:"avatar_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

type messageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Body       string `json:"body"`
}

type messagePayload struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
	Seq        int64     `json:"seq"`
}

// snapshotFrame is one websocket delivery: the full ordered thread.
type snapshotFrame struct {
	Messages []messagePayload `json:"messages"`
}

type uploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type getURLResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toUserPayload(u *models.User) userPayload {
	return userPayload{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Avatar:      u.Avatar,
		AvatarKey:   u.AvatarKey,
		CreatedAt:   u.CreatedAt,
	}
}

func toMessagePayload(m *models.Message) messagePayload {
	return messagePayload{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		SentAt:     m.SentAt,
		Seq:        m.Seq,
	}
}

func toSnapshotFrame(msgs []*models.Message) snapshotFrame {
	frame := snapshotFrame{Messages: make([]messagePayload, 0, len(msgs))}
	for _, m := range msgs {
		frame.Messages = append(frame.Messages, toMessagePayload(m))
	}
	return frame
}
