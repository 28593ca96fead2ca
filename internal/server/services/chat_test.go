package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/logging"
	"github.com/avolkov/duochat/internal/server/hub"
	"github.com/avolkov/duochat/internal/server/models"
)

// ---- fake messages repository ----

type fakeMessageRepo struct {
	mu      sync.Mutex
	rows    map[string][]*models.Message
	nextSeq int64
	now     time.Time

	AppendErr error
	ListErr   error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		rows: make(map[string][]*models.Message),
		now:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeMessageRepo) Append(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if f.AppendErr != nil {
		return nil, f.AppendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSeq++
	msg.Seq = f.nextSeq
	msg.SentAt = f.now.Add(time.Duration(f.nextSeq) * time.Second)
	f.rows[msg.ThreadKey] = append(f.rows[msg.ThreadKey], msg)
	return msg, nil
}

func (f *fakeMessageRepo) ListThread(ctx context.Context, threadKey string) ([]*models.Message, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.rows[threadKey]...), nil
}

// ---- fake notifier ----

type fakeNotifier struct {
	mu        sync.Mutex
	Calls     []string
	NotifyErr error
}

func (f *fakeNotifier) Notify(ctx context.Context, pushToken, senderName, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, pushToken)
	return f.NotifyErr
}

func (f *fakeNotifier) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newChatFixture(t *testing.T) (*ChatService, *fakeMessageRepo, *fakeUserRepo, *fakeNotifier) {
	t.Helper()
	msgRepo := newFakeMessageRepo()
	userRepo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	svc := NewChatService(msgRepo, userRepo, hub.NewHub(), notifier, testLogger())
	return svc, msgRepo, userRepo, notifier
}

func seedUser(t *testing.T, repo *fakeUserRepo, id, name string) {
	t.Helper()
	repo.byID[id] = &models.User{ID: id, DisplayName: name, Email: name + "@example.com"}
	repo.byEmail[name+"@example.com"] = repo.byID[id]
}

// ---- tests ----

func TestAppend_ServerAssignsOrderingKey(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")

	key := common.ThreadKey("a", "b")
	msg, err := svc.Append(context.Background(), key, "a", "b", "hi")
	require.NoError(t, err)
	require.Equal(t, int64(1), msg.Seq)
	require.False(t, msg.SentAt.IsZero())
}

func TestAppend_EmptyBody(t *testing.T) {
	svc, _, _, _ := newChatFixture(t)

	_, err := svc.Append(context.Background(), "a:b", "a", "b", "")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAppend_SenderOutsideThread(t *testing.T) {
	svc, _, _, _ := newChatFixture(t)

	_, err := svc.Append(context.Background(), "a:b", "c", "b", "hi")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestAppend_PublishesSnapshotToSubscribers(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")

	key := common.ThreadKey("a", "b")
	sub := svc.Subscribe(key)
	defer sub.Close()

	_, err := svc.Append(context.Background(), key, "a", "b", "hi")
	require.NoError(t, err)

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		require.Equal(t, "hi", snap[0].Body)
	case <-time.After(time.Second):
		t.Fatal("snapshot not delivered")
	}
}

func TestAppend_BothPartiesConvergeRegardlessOfSendOrder(t *testing.T) {
	svc, _, userRepo, _ := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")

	key := common.ThreadKey("a", "b")
	subA := svc.Subscribe(key)
	subB := svc.Subscribe(key)
	defer subA.Close()
	defer subB.Close()

	_, err := svc.Append(context.Background(), key, "a", "b", "hi")
	require.NoError(t, err)
	_, err = svc.Append(context.Background(), key, "b", "a", "hello")
	require.NoError(t, err)

	for _, sub := range []*hub.Subscriber{subA, subB} {
		var last []*models.Message
		deadline := time.After(time.Second)
	drain:
		for {
			select {
			case snap := <-sub.Snapshots():
				last = snap
				if len(snap) == 2 {
					break drain
				}
			case <-deadline:
				break drain
			}
		}
		require.Len(t, last, 2)
		require.Equal(t, "hi", last[0].Body)
		require.Equal(t, "a", last[0].SenderID)
		require.Equal(t, "hello", last[1].Body)
		require.Equal(t, "b", last[1].SenderID)
	}
}

func TestAppend_NotifiesReceiverWithToken(t *testing.T) {
	svc, _, userRepo, notifier := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")
	token := "bob-device"
	userRepo.byID["b"].PushToken = &token

	_, err := svc.Append(context.Background(), common.ThreadKey("a", "b"), "a", "b", "hi")
	require.NoError(t, err)
	require.Equal(t, []string{"bob-device"}, notifier.calls())
}

func TestAppend_NoTokenNoNotification(t *testing.T) {
	svc, _, userRepo, notifier := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")

	_, err := svc.Append(context.Background(), common.ThreadKey("a", "b"), "a", "b", "hi")
	require.NoError(t, err)
	require.Empty(t, notifier.calls())
}

func TestAppend_NotifierFailureDoesNotFailAppend(t *testing.T) {
	svc, _, userRepo, notifier := newChatFixture(t)
	seedUser(t, userRepo, "a", "Alice")
	seedUser(t, userRepo, "b", "Bob")
	token := "bob-device"
	userRepo.byID["b"].PushToken = &token
	notifier.NotifyErr = errors.New("gateway down")

	_, err := svc.Append(context.Background(), common.ThreadKey("a", "b"), "a", "b", "hi")
	require.NoError(t, err)
}

func TestAppend_RepoErrorPropagates(t *testing.T) {
	svc, msgRepo, _, _ := newChatFixture(t)
	msgRepo.AppendErr = errors.New("db down")

	_, err := svc.Append(context.Background(), "a:b", "a", "b", "hi")
	require.Error(t, err)
}
