package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/duochat/internal/common"
)

func TestAuthenticate_StoresTokenForLaterRequests(t *testing.T) {
	var sawAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions":
			_ = json.NewEncoder(w).Encode(sessionResponse{UserID: "u1", AccessToken: "tok-123"})
		case "/api/users":
			sawAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode([]userPayload{})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	userID, token, err := c.Authenticate(context.Background(), "a@example.com", "pass")
	require.NoError(t, err)
	require.Equal(t, "u1", userID)
	require.Equal(t, "tok-123", token)

	_, err = c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-123", sawAuth)
}

func TestMapError_Taxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"unauthorized"}`, common.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":"nope"}`, common.ErrUnauthorized},
		{"not found", http.StatusNotFound, `{"error":"not found"}`, common.ErrNotFound},
		{"conflict", http.StatusConflict, `{"error":"email already registered"}`, common.ErrRemote},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL)
			_, err := c.GetRecord(context.Background(), "u1")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateAccount_DuplicateEmailMessageVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"email already registered"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.CreateAccount(context.Background(), NewAccount{Email: "a@example.com"})
	require.ErrorIs(t, err, common.ErrRemote)
	require.Contains(t, err.Error(), "email already registered")
}

func TestRequest_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.ListUsers(context.Background())
	require.ErrorIs(t, err, common.ErrUnavailable)
}

func TestSubscribe_DeliversSnapshotFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/threads/a:b/feed", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		frame := snapshotFrame{Messages: []messagePayload{
			{ID: "m1", SenderID: "a", ReceiverID: "b", Body: "hi", SentAt: time.Now(), Seq: 1},
		}}
		require.NoError(t, conn.WriteJSON(frame))

		frame.Messages = append(frame.Messages, messagePayload{ID: "m2", SenderID: "b", ReceiverID: "a", Body: "hello", Seq: 2})
		require.NoError(t, conn.WriteJSON(frame))

		// hold the connection open until the client closes it
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	sub, err := c.Subscribe(context.Background(), "a:b")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 1)
		require.Equal(t, "hi", snap[0].Body)
	case <-time.After(2 * time.Second):
		t.Fatal("first snapshot not delivered")
	}

	select {
	case snap := <-sub.Snapshots():
		require.Len(t, snap, 2)
		require.Equal(t, "m2", snap[1].ID)
	case <-time.After(2 * time.Second):
		t.Fatal("second snapshot not delivered")
	}
}

func TestSubscribe_CloseStopsDeliveries(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	sub, err := c.Subscribe(context.Background(), "a:b")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	select {
	case _, ok := <-sub.Snapshots():
		require.False(t, ok, "snapshot channel must be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot channel not closed after Close")
	}
}

func TestSubscribe_RejectedUpgradeMapsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"missing token"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	_, err := c.Subscribe(context.Background(), "a:b")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestFeedURL_Schemes(t *testing.T) {
	c := NewHTTPClient("https://chat.example.com")
	u, err := c.feedURL("a:b")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "wss://chat.example.com/api/threads/"))

	c = NewHTTPClient("http://127.0.0.1:8080")
	u, err = c.feedURL("a:b")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "ws://127.0.0.1:8080/api/threads/"))
}
