package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/common"
)

func openTestConversation(t *testing.T) (*Conversation, *fakeClient, *fakeSubscription) {
	t.Helper()
	client := newFakeClient()
	sub := newFakeSubscription()
	client.Sub = sub

	conv, err := OpenConversation(context.Background(), client, "a", "b", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { conv.Close() })
	return conv, client, sub
}

func waitUpdate(t *testing.T, conv *Conversation) []api.Message {
	t.Helper()
	select {
	case snap, ok := <-conv.Updates():
		require.True(t, ok, "updates channel closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
		return nil
	}
}

func TestOpen_SubscribesToSortedPairKey(t *testing.T) {
	client := newFakeClient()
	client.Sub = newFakeSubscription()

	conv, err := OpenConversation(context.Background(), client, "zed", "adam", testLogger())
	require.NoError(t, err)
	defer conv.Close()

	require.Equal(t, "adam:zed", conv.threadKey)
}

func TestDelivery_ReplacesSnapshotSortedBySentAt(t *testing.T) {
	conv, _, sub := openTestConversation(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sub.snapshots <- []api.Message{
		{ID: "m2", SenderID: "b", Body: "second", SentAt: base.Add(time.Minute), Seq: 2},
		{ID: "m1", SenderID: "a", Body: "first", SentAt: base, Seq: 1},
	}

	snap := waitUpdate(t, conv)
	require.Equal(t, []string{"m1", "m2"}, []string{snap[0].ID, snap[1].ID})
	require.Equal(t, snap, conv.Snapshot())
}

func TestDelivery_EqualTimestampsKeepRemoteOrder(t *testing.T) {
	conv, _, sub := openTestConversation(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	remote := []api.Message{
		{ID: "m1", SenderID: "a", Body: "one", SentAt: at, Seq: 1},
		{ID: "m2", SenderID: "b", Body: "two", SentAt: at, Seq: 2},
		{ID: "m3", SenderID: "a", Body: "three", SentAt: at, Seq: 3},
	}

	// repeated identical deliveries must never reshuffle ties
	for i := 0; i < 3; i++ {
		sub.snapshots <- remote
		snap := waitUpdate(t, conv)
		require.Equal(t, []string{"m1", "m2", "m3"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})
	}
}

func TestSend_AppendsRemotelyWithoutTouchingSnapshot(t *testing.T) {
	conv, client, _ := openTestConversation(t)

	require.NoError(t, conv.Send(context.Background(), "hi"))
	require.Equal(t, []api.OutgoingMessage{{ReceiverID: "b", Body: "hi"}}, client.Appended)
	require.Empty(t, conv.Snapshot(), "echo must come from the feed, not from Send")
}

func TestSend_EmptyBody(t *testing.T) {
	conv, client, _ := openTestConversation(t)

	err := conv.Send(context.Background(), "")
	require.ErrorIs(t, err, common.ErrValidation)
	require.Empty(t, client.Appended)
}

func TestSend_FailureReturnedNotRetried(t *testing.T) {
	conv, client, _ := openTestConversation(t)
	client.AppendErr = errors.New("append failed")

	require.Error(t, conv.Send(context.Background(), "hi"))

	calls := 0
	for _, c := range client.calls() {
		if c == "Append" {
			calls++
		}
	}
	require.Equal(t, 1, calls, "send must not auto-retry")
}

func TestErrors_ForwardsFeedErrors(t *testing.T) {
	conv, _, sub := openTestConversation(t)

	sub.errs <- errors.New("transient feed failure")

	select {
	case err := <-conv.Errors():
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed error not forwarded")
	}
}

// A read failure makes the subscription report the error and then close
// both channels. The error must reach Errors() even when the closed
// snapshots channel is ready in the same select.
func TestErrors_DeliveredWhenFeedClosesRightAfter(t *testing.T) {
	for i := 0; i < 100; i++ {
		client := newFakeClient()
		sub := newFakeSubscription()
		client.Sub = sub

		sub.errs <- errors.New("unexpected EOF")
		sub.Close()

		conv, err := OpenConversation(context.Background(), client, "a", "b", testLogger())
		require.NoError(t, err)

		select {
		case err, ok := <-conv.Errors():
			require.True(t, ok, "errors channel closed without delivering")
			require.Error(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("feed error lost when subscription closed")
		}
		conv.Close()
	}
}

func TestClose_IdempotentAndStopsDeliveries(t *testing.T) {
	conv, _, sub := openTestConversation(t)

	require.NoError(t, conv.Close())
	require.NoError(t, conv.Close())
	require.True(t, sub.Closed)

	select {
	case _, ok := <-conv.Updates():
		require.False(t, ok, "updates channel must be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel not closed")
	}
}

// Both parties converge to the identical ordered snapshot regardless of the
// order their sends complete in, because every delivery is the full thread.
func TestTwoConversations_ConvergeRegardlessOfSendOrder(t *testing.T) {
	clientA := newFakeClient()
	subA := newFakeSubscription()
	clientA.Sub = subA

	clientB := newFakeClient()
	subB := newFakeSubscription()
	clientB.Sub = subB

	convA, err := OpenConversation(context.Background(), clientA, "a", "b", testLogger())
	require.NoError(t, err)
	defer convA.Close()

	convB, err := OpenConversation(context.Background(), clientB, "b", "a", testLogger())
	require.NoError(t, err)
	defer convB.Close()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	full := []api.Message{
		{ID: "m1", SenderID: "a", ReceiverID: "b", Body: "hi", SentAt: at, Seq: 1},
		{ID: "m2", SenderID: "b", ReceiverID: "a", Body: "hello", SentAt: at, Seq: 2},
	}

	// A sees the thread build up message by message; B only sees the final
	// state, as if it reconnected late.
	subA.snapshots <- full[:1]
	waitUpdate(t, convA)
	subA.snapshots <- full
	snapA := waitUpdate(t, convA)

	subB.snapshots <- full
	snapB := waitUpdate(t, convB)

	require.Equal(t, snapA, snapB)
	require.Equal(t, "m1", snapA[0].ID)
	require.Equal(t, "m2", snapA[1].ID)
}
