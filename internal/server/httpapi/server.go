// Package httpapi exposes the identity, thread and avatar services over a
// JSON REST surface plus one websocket feed per thread.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/avolkov/duochat/internal/logging"
	"github.com/avolkov/duochat/internal/server/hub"
	"github.com/avolkov/duochat/internal/server/models"
	"github.com/avolkov/duochat/internal/server/services"
)

// Chat is the thread surface the message and feed handlers depend on,
// satisfied by services.ChatService.
type Chat interface {
	Append(ctx context.Context, threadKey, senderID, receiverID, body string) (*models.Message, error)
	Snapshot(ctx context.Context, threadKey string) ([]*models.Message, error)
	Subscribe(threadKey string) *hub.Subscriber
}

type Server struct {
	identity  *services.IdentityService
	chat      Chat
	avatars   *services.AvatarService
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(is *services.IdentityService, cs Chat, as *services.AvatarService, l logging.Logger, secretKey string) *Server {
	return &Server{
		identity:  is,
		chat:      cs,
		avatars:   as,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the route table. Accounts and sessions are open; everything
// else sits behind the bearer-token middleware.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	r.HandleFunc("/api/accounts", s.createAccount).Methods("POST")
	r.HandleFunc("/api/sessions", s.createSession).Methods("POST")

	p := r.PathPrefix("/api").Subrouter()
	p.Use(s.requireAuth)
	p.HandleFunc("/users", s.listUsers).Methods("GET")
	p.HandleFunc("/users/{id}", s.getUser).Methods("GET")
	p.HandleFunc("/users/{id}/push-token", s.putPushToken).Methods("PUT")
	p.HandleFunc("/users/{id}/push-token", s.deletePushToken).Methods("DELETE")
	p.HandleFunc("/threads/{key}/messages", s.postMessage).Methods("POST")
	p.HandleFunc("/threads/{key}/feed", s.threadFeed).Methods("GET")
	p.HandleFunc("/avatars/upload-url", s.avatarUploadURL).Methods("POST")
	p.HandleFunc("/avatars/url", s.avatarGetURL).Methods("GET")

	return r
}
