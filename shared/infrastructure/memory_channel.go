package infrastructure

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Channel = (*MemoryChannel)(nil)

var (
	ErrChannelNotFound   = errors.New("channel not found")
	ErrChannelClosed     = errors.New("channel closed")
	ErrAlreadySubscribed = errors.New("channel already subscribed")
)

// PublishedMessage is a message as it was handed to the memory channel
type PublishedMessage struct {
	ChannelID string
	Message   saga.Message
}

// MemoryChannel is an in-process saga.Channel. Every channel is an unbounded
// FIFO queue drained by one goroutine, so delivery is ordered per channel and
// concurrent across channels. Publish never waits for a consumer, which keeps
// a handler publishing to a peer queue from blocking on it. Messages travel
// in their JSON wire form. There is no redelivery: a handler error is logged
// and the message is dropped.
type MemoryChannel struct {
	mu         sync.RWMutex
	queues     map[string]*memoryQueue
	subscribed map[string]bool
	published  []PublishedMessage
	logger     zerolog.Logger

	done   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// memoryQueue holds undelivered message bodies. ready has room for one
// wakeup so a push never blocks.
type memoryQueue struct {
	mu    sync.Mutex
	items [][]byte
	ready chan struct{}
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{ready: make(chan struct{}, 1)}
}

func (q *memoryQueue) push(body []byte) {
	q.mu.Lock()
	q.items = append(q.items, body)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *memoryQueue) pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	body := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return body, true
}

// Len returns how many messages wait on channelID
func (c *MemoryChannel) Len(channelID string) int {
	c.mu.RLock()
	queue, ok := c.queues[channelID]
	c.mu.RUnlock()
	if !ok {
		return 0
	}

	queue.mu.Lock()
	defer queue.mu.Unlock()
	return len(queue.items)
}

// NewMemoryChannel creates an empty memory channel
func NewMemoryChannel(logger zerolog.Logger) *MemoryChannel {
	return &MemoryChannel{
		queues:     make(map[string]*memoryQueue),
		subscribed: make(map[string]bool),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// CreateIfAbsent creates the queue for channelID unless it exists
func (c *MemoryChannel) CreateIfAbsent(ctx context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if _, ok := c.queues[channelID]; !ok {
		c.queues[channelID] = newMemoryQueue()
	}
	return nil
}

// Publish enqueues msg on channelID and returns without waiting for delivery
func (c *MemoryChannel) Publish(ctx context.Context, channelID string, msg saga.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := msg.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal saga message")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	queue, ok := c.queues[channelID]
	if !ok {
		return errors.Wrapf(ErrChannelNotFound, "publish to %s", channelID)
	}
	c.published = append(c.published, PublishedMessage{ChannelID: channelID, Message: msg})
	queue.push(body)
	return nil
}

// Subscribe starts one delivery goroutine per channel. Delivery stops when
// ctx is cancelled or the channel is closed.
func (c *MemoryChannel) Subscribe(ctx context.Context, handler saga.Handler, channelIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	queues := make([]*memoryQueue, len(channelIDs))
	for i, channelID := range channelIDs {
		queue, ok := c.queues[channelID]
		if !ok {
			return errors.Wrapf(ErrChannelNotFound, "subscribe to %s", channelID)
		}
		if c.subscribed[channelID] {
			return errors.Wrapf(ErrAlreadySubscribed, "subscribe to %s", channelID)
		}
		queues[i] = queue
	}

	for i, channelID := range channelIDs {
		c.subscribed[channelID] = true
		c.wg.Add(1)
		go c.deliver(ctx, channelID, queues[i], handler)
	}
	return nil
}

func (c *MemoryChannel) deliver(ctx context.Context, channelID string, queue *memoryQueue, handler saga.Handler) {
	defer c.wg.Done()

	logger := c.logger.With().Str("channel", channelID).Logger()
	for {
		body, ok := queue.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-queue.ready:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		msg, err := saga.DecodeMessage(body)
		if err != nil {
			logger.Warn().Err(err).Msg("dropping undecodable message")
			continue
		}
		if err := handler(ctx, msg); err != nil {
			logger.Error().Err(err).Str("saga_id", msg.Saga.ID.String()).Msg("message handler failed")
		}
	}
}

// Published returns every message published so far, in publish order
func (c *MemoryChannel) Published() []PublishedMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]PublishedMessage, len(c.published))
	copy(out, c.published)
	return out
}

// Close stops delivery and waits for in-flight handlers to return
func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}
