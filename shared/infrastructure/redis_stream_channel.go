package infrastructure

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Channel = (*RedisStreamChannel)(nil)

const redisBodyField = "body"

// RedisConfig configures the Redis Streams saga channel
type RedisConfig struct {
	Group        string
	Consumer     string
	StreamPrefix string
	Count        int64
	// Block is how long XREADGROUP waits for entries. Negative means do not
	// block at all.
	Block        time.Duration
	RetryBackoff time.Duration
}

// RedisStreamChannel is a saga.Channel with one stream per step channel,
// read through a consumer group. Entries stay pending until the handler
// accepts them and are read again from the pending list after a failure.
type RedisStreamChannel struct {
	client redis.UniversalClient
	cfg    RedisConfig
	logger zerolog.Logger

	mu      sync.Mutex
	streams map[string]string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRedisStreamChannel creates a channel on client
func NewRedisStreamChannel(client redis.UniversalClient, cfg RedisConfig, logger zerolog.Logger) *RedisStreamChannel {
	if cfg.Group == "" {
		cfg.Group = "saga"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "orchestrator"
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.Block == 0 {
		cfg.Block = 2 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &RedisStreamChannel{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		streams: make(map[string]string),
	}
}

// CreateIfAbsent creates the stream and its consumer group
func (c *RedisStreamChannel) CreateIfAbsent(ctx context.Context, channelID string) error {
	stream := c.cfg.StreamPrefix + channelID
	err := c.client.XGroupCreateMkStream(ctx, stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return errors.Wrapf(err, "failed to create consumer group on %s", stream)
	}

	c.mu.Lock()
	c.streams[channelID] = stream
	c.mu.Unlock()
	return nil
}

// Publish appends msg to the stream of channelID
func (c *RedisStreamChannel) Publish(ctx context.Context, channelID string, msg saga.Message) error {
	c.mu.Lock()
	stream, ok := c.streams[channelID]
	c.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrChannelNotFound, "publish to %s", channelID)
	}

	body, err := msg.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{redisBodyField: string(body)},
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to append to %s", stream)
	}
	return nil
}

// Subscribe starts one consumer reading every listed stream
func (c *RedisStreamChannel) Subscribe(ctx context.Context, handler saga.Handler, channelIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return errors.Wrap(ErrAlreadySubscribed, "redis channel has a consumer")
	}

	streams := make([]string, len(channelIDs))
	for i, channelID := range channelIDs {
		stream, ok := c.streams[channelID]
		if !ok {
			return errors.Wrapf(ErrChannelNotFound, "subscribe to %s", channelID)
		}
		streams[i] = stream
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, streams, handler)
	}()
	return nil
}

func (c *RedisStreamChannel) consume(ctx context.Context, streams []string, handler saga.Handler) {
	start := ">"
	for ctx.Err() == nil {
		failed, err := c.readOnce(ctx, streams, start, handler)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error().Err(err).Msg("redis stream read failed")
			sleep(ctx, c.cfg.RetryBackoff)
			continue
		}

		// Failed entries are still pending for this consumer; "0" reads them back
		if failed > 0 {
			start = "0"
			sleep(ctx, c.cfg.RetryBackoff)
		} else {
			start = ">"
		}
	}
}

// readOnce reads one batch starting at id (">" for new entries, "0" for
// this consumer's pending ones) and returns how many entries the handler
// rejected.
func (c *RedisStreamChannel) readOnce(ctx context.Context, streams []string, id string, handler saga.Handler) (int, error) {
	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, id)
	}

	res, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  args,
		Count:    c.cfg.Count,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		if c.cfg.Block < 0 {
			sleep(ctx, 10*time.Millisecond)
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	failed := 0
	for _, stream := range res {
		for _, entry := range stream.Messages {
			logger := c.logger.With().Str("stream", stream.Stream).Str("entry_id", entry.ID).Logger()

			body, _ := entry.Values[redisBodyField].(string)
			msg, err := saga.DecodeMessage([]byte(body))
			if err != nil {
				logger.Warn().Err(err).Msg("dropping undecodable message")
			} else if err := handler(ctx, msg); err != nil {
				logger.Error().Err(err).Str("saga_id", msg.Saga.ID.String()).Msg("message handler failed")
				failed++
				continue
			}

			if err := c.client.XAck(ctx, stream.Stream, c.cfg.Group, entry.ID).Err(); err != nil {
				logger.Error().Err(err).Msg("redis ack failed")
			}
		}
	}
	return failed, nil
}

// Close stops the consumer
func (c *RedisStreamChannel) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}
