package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/client/session"
	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	db, err := session.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return session.NewStore(db)
}

// sessionProbe reads the cache directly to assert on what was persisted.
type sessionProbe struct {
	store *session.Store
}

func (p *sessionProbe) load(t *testing.T) session.Session {
	t.Helper()
	sess, err := p.store.Load(context.Background())
	require.NoError(t, err)
	return sess
}

// ---- fake api.Client ----

type fakeClient struct {
	mu    sync.Mutex
	Calls []string

	CreateAccountErr error
	CreatedAccount   api.NewAccount
	NewUserID        string

	AuthErr    error
	AuthUserID string

	Records      map[string]*api.Record
	GetRecordErr error

	Listed  []*api.Record
	ListErr error

	UpdateTokenErr error
	LastTokenUser  string
	LastToken      string
	ClearTokenErr  error
	ClearedUser    string

	AppendErr error
	Appended  []api.OutgoingMessage

	Sub          api.Subscription
	SubscribeErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{NewUserID: "u1", AuthUserID: "u1", Records: map[string]*api.Record{}}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

func (f *fakeClient) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *fakeClient) CreateAccount(ctx context.Context, account api.NewAccount) (string, error) {
	f.record("CreateAccount")
	if f.CreateAccountErr != nil {
		return "", f.CreateAccountErr
	}
	f.CreatedAccount = account
	return f.NewUserID, nil
}

func (f *fakeClient) Authenticate(ctx context.Context, email, password string) (string, string, error) {
	f.record("Authenticate")
	if f.AuthErr != nil {
		return "", "", f.AuthErr
	}
	return f.AuthUserID, "token", nil
}

func (f *fakeClient) GetRecord(ctx context.Context, userID string) (*api.Record, error) {
	f.record("GetRecord")
	if f.GetRecordErr != nil {
		return nil, f.GetRecordErr
	}
	if r, ok := f.Records[userID]; ok {
		return r, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeClient) ListUsers(ctx context.Context) ([]*api.Record, error) {
	f.record("ListUsers")
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Listed, nil
}

func (f *fakeClient) UpdatePushToken(ctx context.Context, userID, token string) error {
	f.record("UpdatePushToken")
	if f.UpdateTokenErr != nil {
		return f.UpdateTokenErr
	}
	f.mu.Lock()
	f.LastTokenUser = userID
	f.LastToken = token
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) ClearPushToken(ctx context.Context, userID string) error {
	f.record("ClearPushToken")
	if f.ClearTokenErr != nil {
		return f.ClearTokenErr
	}
	f.ClearedUser = userID
	return nil
}

func (f *fakeClient) Append(ctx context.Context, threadKey string, msg api.OutgoingMessage) error {
	f.record("Append")
	if f.AppendErr != nil {
		return f.AppendErr
	}
	f.mu.Lock()
	f.Appended = append(f.Appended, msg)
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, threadKey string) (api.Subscription, error) {
	f.record("Subscribe")
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.Sub, nil
}

func (f *fakeClient) AvatarUploadURL(ctx context.Context) (string, string, error) {
	f.record("AvatarUploadURL")
	return "avatars/k", "http://signed-put", nil
}

func (f *fakeClient) AvatarGetURL(ctx context.Context, key string) (string, error) {
	f.record("AvatarGetURL")
	return "http://signed-get", nil
}

func (f *fakeClient) Close() error {
	return nil
}

// ---- fake subscription ----

type fakeSubscription struct {
	snapshots chan []api.Message
	errs      chan error
	closeOnce sync.Once
	Closed    bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		snapshots: make(chan []api.Message, 8),
		errs:      make(chan error, 8),
	}
}

func (s *fakeSubscription) Snapshots() <-chan []api.Message { return s.snapshots }
func (s *fakeSubscription) Errs() <-chan error              { return s.errs }

func (s *fakeSubscription) Close() error {
	s.closeOnce.Do(func() {
		s.Closed = true
		close(s.snapshots)
		close(s.errs)
	})
	return nil
}

// ---- fake token source ----

type fakeTokenSource struct {
	mu       sync.Mutex
	token    string
	tokenErr error
	rotate   func(string)
	stopped  bool
}

func (f *fakeTokenSource) Current(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.token, nil
}

func (f *fakeTokenSource) OnRotate(fn func(string)) (stop func()) {
	f.mu.Lock()
	f.rotate = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.stopped = true
		f.rotate = nil
		f.mu.Unlock()
	}
}

func (f *fakeTokenSource) fireRotation(token string) {
	f.mu.Lock()
	f.token = token
	fn := f.rotate
	f.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}
