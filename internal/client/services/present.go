package services

import (
	"time"

	"github.com/avolkov/duochat/internal/client/api"
)

// RowKind tags a rendered message row by authorship.
type RowKind int

const (
	RowSent RowKind = iota
	RowReceived
)

// RenderRow is one presentable line of conversation history.
type RenderRow struct {
	Kind     RowKind
	Body     string
	SentAt   time.Time
	SenderID string
}

// Present maps an ordered snapshot onto render rows. Kind is determined
// solely by SenderID equality with selfID. The result is recomputed in full
// from each snapshot; no state is kept between calls.
func Present(msgs []api.Message, selfID string) []RenderRow {
	rows := make([]RenderRow, 0, len(msgs))
	for _, m := range msgs {
		kind := RowReceived
		if m.SenderID == selfID {
			kind = RowSent
		}
		rows = append(rows, RenderRow{
			Kind:     kind,
			Body:     m.Body,
			SentAt:   m.SentAt,
			SenderID: m.SenderID,
		})
	}
	return rows
}
