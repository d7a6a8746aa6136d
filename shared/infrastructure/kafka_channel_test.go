package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

// fakeKafka loops written messages back to the reader
type fakeKafka struct {
	mu        sync.Mutex
	created   []kafka.TopicConfig
	written   []kafka.Message
	committed []int64
	topics    []string
	writeErr  error
	closed    bool

	stream chan kafka.Message
	offset int64
}

func newFakeKafka() *fakeKafka {
	return &fakeKafka{stream: make(chan kafka.Message, 16)}
}

func (f *fakeKafka) create(ctx context.Context, topics ...kafka.TopicConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		for _, c := range f.created {
			if c.Topic == t.Topic {
				return kafka.TopicAlreadyExists
			}
		}
		f.created = append(f.created, t)
	}
	return nil
}

func (f *fakeKafka) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for _, m := range msgs {
		m.Offset = f.offset
		f.offset++
		f.written = append(f.written, m)
		f.stream <- m
	}
	return nil
}

func (f *fakeKafka) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.stream:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeKafka) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeKafka) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeKafka) Committed() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func newTestKafkaChannel(f *fakeKafka) *KafkaChannel {
	cfg := KafkaConfig{GroupID: "saga", TopicPrefix: "saga.", RetryBackoff: time.Millisecond}
	return newKafkaChannel(cfg, zerolog.Nop(), f, f.create, func(topics []string) kafkaReader {
		f.mu.Lock()
		f.topics = topics
		f.mu.Unlock()
		return f
	})
}

func TestNewKafkaChannel_Validation(t *testing.T) {
	_, err := NewKafkaChannel(KafkaConfig{GroupID: "saga"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = NewKafkaChannel(KafkaConfig{Brokers: []string{"localhost:9092"}}, zerolog.Nop())
	assert.Error(t, err)
}

func TestKafkaChannel_CreateIfAbsentIsIdempotent(t *testing.T) {
	f := newFakeKafka()
	ch := newTestKafkaChannel(f)

	require.NoError(t, ch.CreateIfAbsent(context.Background(), "flights"))
	require.NoError(t, ch.CreateIfAbsent(context.Background(), "flights"))

	require.Len(t, f.created, 1)
	assert.Equal(t, "saga.flights", f.created[0].Topic)
	assert.Equal(t, 1, f.created[0].NumPartitions)
	assert.Equal(t, 1, f.created[0].ReplicationFactor)
}

func TestKafkaChannel_PublishAndConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeKafka()
	ch := newTestKafkaChannel(f)

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	require.NoError(t, ch.CreateIfAbsent(ctx, "hotels"))

	delivered := make(chan saga.Message, 4)
	require.NoError(t, ch.Subscribe(ctx, collect(delivered), "flights", "hotels"))
	assert.Equal(t, []string{"saga.flights", "saga.hotels"}, f.topics)

	require.NoError(t, ch.Publish(ctx, "hotels", saga.NewMessage("saga-7", 1, saga.PhaseForward, []byte(`{"room":3}`))))

	got := receive(t, delivered)
	assert.Equal(t, 1, got.Saga.Index)
	assert.Equal(t, "saga.hotels", f.written[0].Topic)
	assert.Equal(t, []byte("saga-7"), f.written[0].Key)

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]int64{0}, f.Committed())
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ch.Close())
	assert.True(t, f.closed)
}

func TestKafkaChannel_RetriesHandlerBeforeCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFakeKafka()
	ch := newTestKafkaChannel(f)
	defer ch.Close()
	require.NoError(t, ch.CreateIfAbsent(ctx, "payments"))

	var mu sync.Mutex
	attempts := 0
	require.NoError(t, ch.Subscribe(ctx, func(context.Context, saga.Message) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("publish failed")
		}
		return nil
	}, "payments"))

	require.NoError(t, ch.Publish(ctx, "payments", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil)))

	assert.Eventually(t, func() bool {
		return len(f.Committed()) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 3, attempts)
	mu.Unlock()
}

func TestKafkaChannel_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFakeKafka()
	ch := newTestKafkaChannel(f)

	err := ch.Publish(ctx, "flights", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil))
	assert.ErrorIs(t, err, ErrChannelNotFound)

	require.NoError(t, ch.CreateIfAbsent(ctx, "flights"))
	f.writeErr = errors.New("not enough replicas")
	err = ch.Publish(ctx, "flights", saga.NewMessage("saga-1", 0, saga.PhaseForward, nil))
	assert.ErrorContains(t, err, "not enough replicas")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	require.NoError(t, ch.Subscribe(ctx, collect(make(chan saga.Message, 1)), "flights"))
	assert.ErrorIs(t, ch.Subscribe(ctx, collect(make(chan saga.Message, 1)), "flights"), ErrAlreadySubscribed)
	require.NoError(t, ch.Close())
}
