// Package hub maintains the set of live thread subscriptions and fans out
// full ordered snapshots to them on every append.
package hub

import (
	"sync"

	"github.com/avolkov/duochat/internal/server/models"
)

// Hub keys subscribers by thread so an append touches only the two parties
// watching that conversation.
type Hub struct {
	mu      sync.RWMutex
	threads map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{threads: make(map[string]map[*Subscriber]struct{})}
}

// Subscriber is one live view of a thread. Snapshots are delivered on a
// buffered channel; because every delivery is a full snapshot, a slow
// consumer may be skipped ahead to the latest one.
type Subscriber struct {
	hub       *Hub
	threadKey string
	ch        chan []*models.Message

	mu     sync.Mutex
	closed bool
}

// Subscribe registers a new live view of the given thread. The caller must
// call Close exactly once when the view is no longer needed.
func (h *Hub) Subscribe(threadKey string) *Subscriber {
	s := &Subscriber{
		hub:       h,
		threadKey: threadKey,
		ch:        make(chan []*models.Message, 1),
	}

	h.mu.Lock()
	subs, ok := h.threads[threadKey]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.threads[threadKey] = subs
	}
	subs[s] = struct{}{}
	h.mu.Unlock()

	return s
}

// Snapshots returns the delivery channel. It is closed by Close.
func (s *Subscriber) Snapshots() <-chan []*models.Message {
	return s.ch
}

// Close unregisters the subscriber and closes its delivery channel. It is
// safe to call once per Subscribe; further deliveries stop immediately.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	h := s.hub
	h.mu.Lock()
	if subs, ok := h.threads[s.threadKey]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.threads, s.threadKey)
		}
	}
	h.mu.Unlock()

	close(s.ch)
}

// Publish delivers the full ordered snapshot to every subscriber of the
// thread. If a subscriber's buffer still holds an undelivered snapshot, it
// is replaced: full-snapshot semantics make the latest one authoritative.
func (h *Hub) Publish(threadKey string, snapshot []*models.Message) {
	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.threads[threadKey]))
	for s := range h.threads[threadKey] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		s.deliver(snapshot)
	}
}

func (s *Subscriber) deliver(snapshot []*models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snapshot:
			return
		default:
			// drop the stale buffered snapshot in favor of this one
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Subscribers reports the number of live views of a thread.
func (h *Hub) Subscribers(threadKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[threadKey])
}
