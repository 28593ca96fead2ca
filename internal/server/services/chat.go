package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/logging"
	"github.com/avolkov/duochat/internal/server/hub"
	"github.com/avolkov/duochat/internal/server/models"
	"github.com/avolkov/duochat/internal/server/notify"
	"github.com/avolkov/duochat/internal/server/repositories/messages"
	"github.com/avolkov/duochat/internal/server/repositories/users"
)

// ChatService owns the append-only thread collection. Appends get a
// server-assigned timestamp and sequence number; after each append the full
// ordered snapshot is fanned out to the thread's live subscribers and the
// receiver's device is pinged best-effort.
type ChatService struct {
	messages messages.Repository
	users    users.Repository
	hub      *hub.Hub
	notifier notify.Notifier
	logger   logging.Logger
}

func NewChatService(msgRepo messages.Repository, userRepo users.Repository, h *hub.Hub, n notify.Notifier, l logging.Logger) *ChatService {
	return &ChatService{
		messages: msgRepo,
		users:    userRepo,
		hub:      h,
		notifier: n,
		logger:   l.With("module", "chat_service"),
	}
}

// Append validates that the sender participates in the thread, persists the
// message, and publishes the refreshed snapshot. The message's SentAt and
// Seq come back from the store, never from the client.
func (s *ChatService) Append(ctx context.Context, threadKey, senderID, receiverID, body string) (*models.Message, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: empty message body", common.ErrValidation)
	}
	if common.ThreadKey(senderID, receiverID) != threadKey {
		return nil, fmt.Errorf("%w: sender is not a participant of the thread", common.ErrValidation)
	}

	msg := &models.Message{
		ID:         uuid.New().String(),
		ThreadKey:  threadKey,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
	}

	msg, err := s.messages.Append(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("error appending message: %w", err)
	}

	snapshot, err := s.messages.ListThread(ctx, threadKey)
	if err != nil {
		return nil, fmt.Errorf("error loading thread: %w", err)
	}
	s.hub.Publish(threadKey, snapshot)

	s.notifyReceiver(ctx, msg)

	return msg, nil
}

// Snapshot returns the full ordered thread, for the initial delivery on
// subscribe.
func (s *ChatService) Snapshot(ctx context.Context, threadKey string) ([]*models.Message, error) {
	return s.messages.ListThread(ctx, threadKey)
}

// Subscribe opens a live view of the thread on the hub.
func (s *ChatService) Subscribe(threadKey string) *hub.Subscriber {
	return s.hub.Subscribe(threadKey)
}

// notifyReceiver pings the receiver's device if it has a push token.
// Failures are logged and never escalate into the append path.
func (s *ChatService) notifyReceiver(ctx context.Context, msg *models.Message) {
	receiver, err := s.users.GetByID(ctx, msg.ReceiverID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Warn(ctx, "receiver lookup failed", "error", err.Error())
		}
		return
	}
	if receiver.PushToken == nil || *receiver.PushToken == "" {
		return
	}

	sender, err := s.users.GetByID(ctx, msg.SenderID)
	senderName := msg.SenderID
	if err == nil {
		senderName = sender.DisplayName
	}

	if err := s.notifier.Notify(ctx, *receiver.PushToken, senderName, msg.Body); err != nil {
		s.logger.Warn(ctx, "push delivery failed", "error", err.Error())
	}
}
