package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerSupersedesPreviousRequest(t *testing.T) {
	tracker := NewTracker()
	firstCtx, first := tracker.Begin(context.Background(), "client-a")
	require.True(t, tracker.Current(first))

	_, second := tracker.Begin(context.Background(), "client-a")
	require.False(t, tracker.Current(first))
	require.True(t, tracker.Current(second))
	require.ErrorIs(t, firstCtx.Err(), context.Canceled)

	_, other := tracker.Begin(context.Background(), "client-b")
	require.True(t, tracker.Current(other))
	require.True(t, tracker.Current(second))

	tracker.Done(first)
	require.True(t, tracker.Current(second), "stale ticket must not release the newer one")
	tracker.Done(second)

	_, third := tracker.Begin(context.Background(), "client-a")
	require.Greater(t, third.Seq, second.Seq)
}

func TestTrackerForgetsReleasedKeys(t *testing.T) {
	tracker := NewTracker()
	for i := 0; i < 100; i++ {
		_, ticket := tracker.Begin(context.Background(), fmt.Sprintf("client-%d", i))
		tracker.Done(ticket)
	}
	require.Empty(t, tracker.slots)

	_, old := tracker.Begin(context.Background(), "client-a")
	_, current := tracker.Begin(context.Background(), "client-a")
	tracker.Done(old)
	require.Len(t, tracker.slots, 1, "stale release keeps the newer request")
	tracker.Done(current)
	require.Empty(t, tracker.slots)

	_, again := tracker.Begin(context.Background(), "client-a")
	require.False(t, tracker.Current(old))
	require.False(t, tracker.Current(current))
	require.True(t, tracker.Current(again))
}
