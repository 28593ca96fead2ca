package api

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/avolkov/duochat/internal/common"
)

// wsSubscription reads snapshot frames off a websocket feed and republishes
// them as []Message deliveries. One reader goroutine owns the connection.
type wsSubscription struct {
	conn      *websocket.Conn
	snapshots chan []Message
	errs      chan error

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSubscription(conn *websocket.Conn) *wsSubscription {
	s := &wsSubscription{
		conn:      conn,
		snapshots: make(chan []Message, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *wsSubscription) Snapshots() <-chan []Message {
	return s.snapshots
}

func (s *wsSubscription) Errs() <-chan error {
	return s.errs
}

// Close tears down the connection and stops deliveries. Safe to call from
// any goroutine; only the first call does work.
func (s *wsSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	})
	return nil
}

func (s *wsSubscription) readLoop() {
	defer func() {
		s.conn.Close()
		close(s.snapshots)
		close(s.errs)
	}()

	for {
		var frame snapshotFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case <-s.done:
				// closed locally, not an error
			default:
				s.reportError(fmt.Errorf("%w: %v", common.ErrUnavailable, err))
			}
			return
		}

		msgs := make([]Message, 0, len(frame.Messages))
		for _, p := range frame.Messages {
			msgs = append(msgs, toMessage(p))
		}

		select {
		case s.snapshots <- msgs:
		case <-s.done:
			return
		}
	}
}

func (s *wsSubscription) reportError(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
