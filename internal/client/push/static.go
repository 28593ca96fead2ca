// Package push provides the device's push-delivery token. The terminal
// client has no platform push channel, so the token is a stable random id
// minted per installation; Rotate exists for the services that must survive
// platform-driven token churn.
package push

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StaticSource is a TokenSource whose token changes only via Rotate.
type StaticSource struct {
	mu        sync.Mutex
	token     string
	listeners map[int]func(string)
	nextID    int
}

func NewStaticSource() *StaticSource {
	return &StaticSource{
		token:     uuid.New().String(),
		listeners: make(map[int]func(string)),
	}
}

func (s *StaticSource) Current(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

// OnRotate registers a rotation listener. The returned stop function
// removes it.
func (s *StaticSource) OnRotate(fn func(token string)) (stop func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Rotate replaces the token and notifies listeners.
func (s *StaticSource) Rotate() string {
	s.mu.Lock()
	s.token = uuid.New().String()
	token := s.token
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(token)
	}
	return token
}
