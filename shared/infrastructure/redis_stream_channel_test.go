package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

func newTestRedisChannel(t *testing.T) (*RedisStreamChannel, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ch := NewRedisStreamChannel(client, RedisConfig{
		StreamPrefix: "saga:",
		Block:        -1,
		RetryBackoff: 5 * time.Millisecond,
	}, zerolog.Nop())
	t.Cleanup(func() { ch.Close() })
	return ch, client, mr
}

func TestRedisStreamChannel_CreateIfAbsentIsIdempotent(t *testing.T) {
	ch, client, _ := newTestRedisChannel(t)
	ctx := context.Background()

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))

	groups, err := client.XInfoGroups(ctx, "saga:flights").Result()
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "saga", groups[0].Name)
}

func TestRedisStreamChannel_PublishAndConsume(t *testing.T) {
	ch, client, _ := newTestRedisChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	require.NoError(t, ch.CreateIfAbsent(ctx, "hotels"))

	delivered := make(chan saga.Message, 4)
	require.NoError(t, ch.Subscribe(ctx, collect(delivered), "flights", "hotels"))

	require.NoError(t, ch.Publish(ctx, "hotels", saga.NewMessage("saga-1", 1, saga.PhaseBackward, []byte(`{"room":3}`))))

	got := receive(t, delivered)
	assert.Equal(t, saga.PhaseBackward, got.Saga.Phase)
	assert.JSONEq(t, `{"room":3}`, string(got.Payload))

	assert.Eventually(t, func() bool {
		pending, err := client.XPending(ctx, "saga:hotels", "saga").Result()
		return err == nil && pending.Count == 0
	}, time.Second, 5*time.Millisecond)
}

func TestRedisStreamChannel_FailedEntryIsReadAgain(t *testing.T) {
	ch, _, _ := newTestRedisChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ch.CreateIfAbsent(ctx, "payments"))

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	require.NoError(t, ch.Subscribe(ctx, func(context.Context, saga.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts == 1 {
			return errors.New("publish failed")
		}
		close(done)
		return nil
	}, "payments"))

	require.NoError(t, ch.Publish(ctx, "payments", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("failed entry was not read again")
	}
	mu.Lock()
	assert.Equal(t, 2, attempts)
	mu.Unlock()
}

func TestRedisStreamChannel_UndecodableEntryIsAcked(t *testing.T) {
	ch, client, _ := newTestRedisChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ch.CreateIfAbsent(ctx, "payments"))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: "saga:payments",
		Values: map[string]any{"body": "{"},
	}).Err())

	called := make(chan saga.Message, 1)
	require.NoError(t, ch.Subscribe(ctx, collect(called), "payments"))

	assert.Eventually(t, func() bool {
		info, err := client.XInfoGroups(ctx, "saga:payments").Result()
		return err == nil && len(info) == 1 && info[0].Pending == 0 && info[0].LastDeliveredID != "0-0"
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, called)
}

func TestRedisStreamChannel_Errors(t *testing.T) {
	ch, _, _ := newTestRedisChannel(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := ch.Publish(ctx, "flights", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil))
	assert.ErrorIs(t, err, ErrChannelNotFound)
	assert.ErrorIs(t, ch.Subscribe(ctx, collect(nil), "flights"), ErrChannelNotFound)

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	require.NoError(t, ch.Subscribe(ctx, collect(make(chan saga.Message, 1)), "flights"))
	assert.ErrorIs(t, ch.Subscribe(ctx, collect(make(chan saga.Message, 1)), "flights"), ErrAlreadySubscribed)
}
