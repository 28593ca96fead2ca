package models

import "time"

// Message is one element of an append-only two-party thread. SentAt is
// assigned by the server clock and Seq by the database; together they form
// the stable ordering key (SentAt, Seq).
type Message struct {
	ID         string
	ThreadKey  string
	SenderID   string
	ReceiverID string
	Body       string
	SentAt     time.Time
	Seq        int64
}
