// Package notify abstracts the push-delivery backend the chat service pings
// after an append. Delivery is best-effort; failures never block the append.
package notify

import (
	"context"

	"github.com/avolkov/duochat/internal/logging"
)

// Notifier delivers a push notification to a device token.
type Notifier interface {
	Notify(ctx context.Context, pushToken string, senderName string, body string) error
}

// LogNotifier is the reference implementation: it records deliveries in the
// log instead of calling a platform push gateway.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, pushToken string, senderName string, body string) error {
	n.logger.Info(ctx, "push notification", "token", pushToken, "from", senderName)
	return nil
}
