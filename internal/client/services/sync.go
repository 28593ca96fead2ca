package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/common"
	"github.com/avolkov/duochat/internal/logging"
)

// Conversation is a live, ordered view of one two-party thread. Deliveries
// from the feed replace the snapshot wholesale; Send goes to the remote
// store only and its echo arrives through the same feed as everyone else's
// messages.
type Conversation struct {
	api       api.Client
	selfID    string
	otherID   string
	threadKey string
	sub       api.Subscription
	logger    logging.Logger

	mu       sync.Mutex
	snapshot []api.Message

	updates chan []api.Message
	errs    chan error

	closeOnce sync.Once
	done      chan struct{}
}

// OpenConversation subscribes to the thread between selfID and otherID and
// starts applying deliveries.
func OpenConversation(ctx context.Context, client api.Client, selfID, otherID string, l logging.Logger) (*Conversation, error) {
	threadKey := common.ThreadKey(selfID, otherID)

	sub, err := client.Subscribe(ctx, threadKey)
	if err != nil {
		return nil, fmt.Errorf("subscribing to thread: %w", err)
	}

	c := &Conversation{
		api:       client,
		selfID:    selfID,
		otherID:   otherID,
		threadKey: threadKey,
		sub:       sub,
		logger:    l.With("module", "conversation", "thread", threadKey),
		updates:   make(chan []api.Message, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}

	go c.run()

	return c, nil
}

// Snapshot returns a copy of the current ordered view.
func (c *Conversation) Snapshot() []api.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]api.Message(nil), c.snapshot...)
}

// Updates delivers the re-sorted snapshot after each feed delivery. Like
// the feed itself, it may coalesce: an unread update is replaced by a newer
// one, which is safe because every value is the full thread.
func (c *Conversation) Updates() <-chan []api.Message {
	return c.updates
}

// Errors carries transient feed errors. The subscription stays open; the
// caller decides whether to close and reopen.
func (c *Conversation) Errors() <-chan error {
	return c.errs
}

// Send appends a message remotely. The local snapshot is not touched; the
// echo arrives via the feed, keeping a single source of truth for ordering.
// Failures are returned to the caller and never retried automatically.
func (c *Conversation) Send(ctx context.Context, body string) error {
	if body == "" {
		return fmt.Errorf("%w: empty message body", common.ErrValidation)
	}
	return c.api.Append(ctx, c.threadKey, api.OutgoingMessage{ReceiverID: c.otherID, Body: body})
}

// Close stops deliveries and releases the subscription. Idempotent; it does
// not cancel an in-flight Send.
func (c *Conversation) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.sub.Close()
	})
	return nil
}

func (c *Conversation) run() {
	defer close(c.updates)

	snapshots := c.sub.Snapshots()
	errs := c.sub.Errs()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				c.flushErrors(errs)
				return
			}
			c.apply(snap)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.reportError(err)
		case <-c.done:
			return
		}
	}
}

// flushErrors forwards errors still queued when the feed closes. The
// subscription reports a terminal read failure and then closes both
// channels, and select order must not swallow that error.
func (c *Conversation) flushErrors(errs <-chan error) {
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.reportError(err)
		default:
			return
		}
	}
}

// apply replaces the snapshot with the delivery, stably re-sorted by SentAt
// so equal timestamps keep their remote-assigned relative order.
func (c *Conversation) apply(snap []api.Message) {
	sorted := append([]api.Message(nil), snap...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SentAt.Before(sorted[j].SentAt)
	})

	c.mu.Lock()
	c.snapshot = sorted
	c.mu.Unlock()

	for {
		select {
		case c.updates <- sorted:
			return
		case <-c.done:
			return
		default:
			// replace a stale undelivered update with this one
			select {
			case <-c.updates:
			default:
			}
		}
	}
}

func (c *Conversation) reportError(err error) {
	select {
	case c.errs <- err:
	default:
		c.logger.Warn(context.Background(), "dropping feed error", "error", err.Error())
	}
}
