package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_FetchReturnsPublishedInOrder(t *testing.T) {
	t.Parallel()
	log := NewMemory(0)
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		_, err := log.Publish(ctx, p)
		require.NoError(t, err)
	}

	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	events, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, []string{"1", "2", "3"}, []string{events[0].ID, events[1].ID, events[2].ID})
	require.Equal(t, "a", events[0].Payload)
	require.Equal(t, 3, log.Pending())
}

func TestMemory_FetchRespectsBatch(t *testing.T) {
	t.Parallel()
	log := NewMemory(2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := log.Publish(ctx, "x")
		require.NoError(t, err)
	}

	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)

	first, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	second, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, "3", second[0].ID)
}

func TestMemory_UnackedEventsAreRedeliveredOnResubscribe(t *testing.T) {
	t.Parallel()
	log := NewMemory(0)
	ctx := context.Background()
	for _, p := range []string{"1", "2", "3"} {
		_, err := log.Publish(ctx, p)
		require.NoError(t, err)
	}

	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)
	events, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.NoError(t, events[0].Ack(ctx))
	require.NoError(t, events[2].Ack(ctx))
	require.NoError(t, sub.Close())

	resub, err := log.Subscribe(ctx)
	require.NoError(t, err)
	again, err := resub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, "2", again[0].ID)
	require.True(t, log.Acked("1"))
	require.False(t, log.Acked("2"))
	require.False(t, log.Acked("nope"))
}

func TestMemory_IdleUnackedEntryIsReofferedOnSameSubscription(t *testing.T) {
	t.Parallel()
	log := NewMemory(0, WithClaimIdle(20*time.Millisecond))
	ctx := context.Background()
	for _, p := range []string{"a", "b"} {
		_, err := log.Publish(ctx, p)
		require.NoError(t, err)
	}

	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NoError(t, first[1].Ack(ctx))

	fetchCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	again, err := sub.Fetch(fetchCtx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, "1", again[0].ID)
	require.Equal(t, "a", again[0].Payload)

	require.NoError(t, again[0].Ack(ctx))
	require.Equal(t, 0, log.Pending())
}

func TestMemory_RecentlyDeliveredEntryIsNotReoffered(t *testing.T) {
	t.Parallel()
	log := NewMemory(0)
	ctx := context.Background()
	_, err := log.Publish(ctx, "a")
	require.NoError(t, err)

	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first, err := sub.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	fetchCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = sub.Fetch(fetchCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, log.Pending())
}

func TestMemory_FetchBlocksUntilPublish(t *testing.T) {
	t.Parallel()
	log := NewMemory(0)
	ctx := context.Background()
	sub, err := log.Subscribe(ctx)
	require.NoError(t, err)

	got := make(chan []Event, 1)
	go func() {
		events, _ := sub.Fetch(ctx)
		got <- events
	}()

	time.Sleep(10 * time.Millisecond)
	_, err = log.Publish(ctx, "late")
	require.NoError(t, err)

	select {
	case events := <-got:
		require.Len(t, events, 1)
		require.Equal(t, "late", events[0].Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake up on publish")
	}
}

func TestMemory_FetchHonoursContextAndClose(t *testing.T) {
	t.Parallel()
	log := NewMemory(0)

	sub, err := log.Subscribe(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = sub.Fetch(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, err = sub.Fetch(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestEvent_AckWithoutSourceIsNoop(t *testing.T) {
	t.Parallel()
	require.NoError(t, Event{ID: "1"}.Ack(context.Background()))
}
