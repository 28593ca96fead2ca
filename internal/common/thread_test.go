package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreadKey_OrderIndependent(t *testing.T) {
	require.Equal(t, ThreadKey("alice", "bob"), ThreadKey("bob", "alice"))
}

func TestThreadKey_SortsPair(t *testing.T) {
	require.Equal(t, "alice:bob", ThreadKey("bob", "alice"))
	require.Equal(t, "alice:bob", ThreadKey("alice", "bob"))
}

func TestThreadKey_SameUserTwice(t *testing.T) {
	require.Equal(t, "x:x", ThreadKey("x", "x"))
}
