package infrastructure

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/draftea/saga-orchestrator/shared/saga"
)

var _ saga.Channel = (*KafkaChannel)(nil)

// KafkaConfig configures the Kafka saga channel
type KafkaConfig struct {
	Brokers           []string
	GroupID           string
	TopicPrefix       string
	Partitions        int
	ReplicationFactor int
	RetryBackoff      time.Duration
}

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type topicCreator func(ctx context.Context, topics ...kafka.TopicConfig) error

// KafkaChannel is a saga.Channel with one topic per step channel. Messages
// are keyed by saga id, so one instance always lands on the same partition.
type KafkaChannel struct {
	cfg         KafkaConfig
	logger      zerolog.Logger
	writer      kafkaWriter
	createTopic topicCreator
	newReader   func(topics []string) kafkaReader

	mu      sync.Mutex
	topics  map[string]string
	readers []kafkaReader
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewKafkaChannel creates a Kafka channel for the configured brokers
func NewKafkaChannel(cfg KafkaConfig, logger zerolog.Logger) (*KafkaChannel, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka.brokers is required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New("kafka.group_id is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
	newReader := func(topics []string) kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			GroupTopics: topics,
		})
	}
	return newKafkaChannel(cfg, logger, w, controllerTopicCreator(cfg.Brokers), newReader), nil
}

func newKafkaChannel(cfg KafkaConfig, logger zerolog.Logger, w kafkaWriter, create topicCreator, newReader func([]string) kafkaReader) *KafkaChannel {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	return &KafkaChannel{
		cfg:         cfg,
		logger:      logger,
		writer:      w,
		createTopic: create,
		newReader:   newReader,
		topics:      make(map[string]string),
	}
}

// controllerTopicCreator creates topics through the cluster controller
func controllerTopicCreator(brokers []string) topicCreator {
	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	return func(ctx context.Context, topics ...kafka.TopicConfig) error {
		conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return errors.Wrap(err, "failed to dial kafka broker")
		}
		defer conn.Close()

		controller, err := conn.Controller()
		if err != nil {
			return errors.Wrap(err, "failed to find kafka controller")
		}
		controllerConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
		if err != nil {
			return errors.Wrap(err, "failed to dial kafka controller")
		}
		defer controllerConn.Close()

		return controllerConn.CreateTopics(topics...)
	}
}

// CreateIfAbsent creates the topic of channelID. An existing topic is fine.
func (c *KafkaChannel) CreateIfAbsent(ctx context.Context, channelID string) error {
	topic := c.cfg.TopicPrefix + channelID
	err := c.createTopic(ctx, kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     c.cfg.Partitions,
		ReplicationFactor: c.cfg.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return errors.Wrapf(err, "failed to create topic %s", topic)
	}

	c.mu.Lock()
	c.topics[channelID] = topic
	c.mu.Unlock()
	return nil
}

// Publish writes msg to the topic of channelID and waits for all in-sync
// replicas to acknowledge it.
func (c *KafkaChannel) Publish(ctx context.Context, channelID string, msg saga.Message) error {
	c.mu.Lock()
	topic, ok := c.topics[channelID]
	c.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrChannelNotFound, "publish to %s", channelID)
	}

	body, err := msg.Marshal()
	if err != nil {
		return errors.Wrap(err, "failed to marshal message")
	}

	err = c.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(msg.Saga.ID),
		Value: body,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write to %s", topic)
	}
	return nil
}

// Subscribe starts one group reader over the topics of every channel.
// Offsets are committed only after the handler accepted the message.
func (c *KafkaChannel) Subscribe(ctx context.Context, handler saga.Handler, channelIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	topics := make([]string, len(channelIDs))
	for i, channelID := range channelIDs {
		topic, ok := c.topics[channelID]
		if !ok {
			return errors.Wrapf(ErrChannelNotFound, "subscribe to %s", channelID)
		}
		topics[i] = topic
	}

	if c.cancel == nil {
		ctx, c.cancel = context.WithCancel(ctx)
	} else {
		return errors.Wrap(ErrAlreadySubscribed, "kafka channel has a reader")
	}

	reader := c.newReader(topics)
	c.readers = append(c.readers, reader)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consume(ctx, reader, handler)
	}()
	return nil
}

func (c *KafkaChannel) consume(ctx context.Context, reader kafkaReader, handler saga.Handler) {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error().Err(err).Msg("kafka fetch failed")
			sleep(ctx, c.cfg.RetryBackoff)
			continue
		}

		logger := c.logger.With().Str("topic", m.Topic).Int("partition", m.Partition).Int64("offset", m.Offset).Logger()

		msg, err := saga.DecodeMessage(m.Value)
		if err != nil {
			logger.Warn().Err(err).Msg("dropping undecodable message")
		} else {
			// Retry in place: committing a later offset would skip this one
			for {
				err := handler(ctx, msg)
				if err == nil {
					break
				}
				logger.Error().Err(err).Str("saga_id", msg.Saga.ID.String()).Msg("message handler failed")
				sleep(ctx, c.cfg.RetryBackoff)
				if ctx.Err() != nil {
					return
				}
			}
		}

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("kafka commit failed")
		}
	}
}

// Close stops the reader loop and closes the reader and the writer
func (c *KafkaChannel) Close() error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	readers := c.readers
	c.readers = nil
	c.mu.Unlock()

	c.wg.Wait()

	for _, reader := range readers {
		if err := reader.Close(); err != nil {
			return errors.Wrap(err, "failed to close kafka reader")
		}
	}
	return c.writer.Close()
}
