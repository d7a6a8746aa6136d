package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/draftea/saga-orchestrator/booking-service/application"
	"github.com/draftea/saga-orchestrator/booking-service/domain"
	"github.com/draftea/saga-orchestrator/booking-service/handlers"
	sharedinfra "github.com/draftea/saga-orchestrator/shared/infrastructure"
	"github.com/draftea/saga-orchestrator/shared/saga"
	"github.com/draftea/saga-orchestrator/shared/telemetry"
)

// TransportChannel is a saga channel that owns broker resources
type TransportChannel interface {
	saga.Channel
	Close() error
}

type Dependencies struct {
	Logger zerolog.Logger

	// Database
	DB *sqlx.DB

	// Infrastructure
	Channel TransportChannel
	Journal domain.TransitionJournal

	// Saga
	BookingSaga  *application.BookingSaga
	Orchestrator *saga.Orchestrator

	// Use Cases
	StartBooking   *application.StartBooking
	GetTransitions *application.GetTransitions

	// HTTP Handlers
	SagaHandlers *handlers.SagaHandlers

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()

	// Fatal receives the first transport failure seen while handling a
	// delivered message
	Fatal <-chan error
}

// BuildDependencies wires the service. The orchestrator is not subscribed
// yet; call Run for that.
func BuildDependencies(ctx context.Context, config *Config, logger zerolog.Logger, opts ...saga.Option) (*Dependencies, error) {
	deps := &Dependencies{Logger: logger}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.BookingServiceConfig.
			WithServiceName(config.ServiceName).
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize telemetry")
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize journal
	if config.Database.Enabled {
		db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			deps.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		deps.DB = db
		deps.Journal = sharedinfra.NewPostgresJournal(db)
	} else {
		deps.Journal = sharedinfra.NewMemoryJournal()
	}

	// Initialize transport
	channel, err := NewTransportChannel(ctx, config, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Channel = channel

	// Initialize saga
	fatal := make(chan error, 1)
	deps.Fatal = fatal

	deps.BookingSaga = application.NewBookingSaga(logger, config.Saga.FailAt)
	definition, err := deps.BookingSaga.Builder().Definition()
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "invalid booking saga")
	}

	orchOpts := []saga.Option{
		saga.WithLogger(logger),
		saga.WithObserver(deps.Journal),
		saga.WithTransportFailureHandler(func(err error) {
			logger.Error().Err(err).Msg("saga transport failure")
			select {
			case fatal <- err:
			default:
			}
		}),
	}
	deps.Orchestrator, err = saga.NewOrchestrator(definition, channel, append(orchOpts, opts...)...)
	if err != nil {
		deps.Close()
		return nil, errors.Wrap(err, "failed to create orchestrator")
	}

	// Initialize use cases
	deps.StartBooking = application.NewStartBooking(deps.Orchestrator)
	deps.GetTransitions = application.NewGetTransitions(deps.Journal)

	// Initialize handlers
	deps.SagaHandlers = handlers.NewSagaHandlers(deps.StartBooking, deps.GetTransitions)

	return deps, nil
}

// Run creates the step channels and subscribes the orchestrator to them
func (d *Dependencies) Run(ctx context.Context) error {
	if err := d.Orchestrator.Init(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize orchestrator")
	}
	return nil
}

// NewTransportChannel builds the saga channel selected by config.Transport
func NewTransportChannel(ctx context.Context, config *Config, logger zerolog.Logger) (TransportChannel, error) {
	logger = logger.With().Str("transport", config.Transport).Logger()

	switch config.Transport {
	case TransportMemory:
		return sharedinfra.NewMemoryChannel(logger), nil

	case TransportSNSSQS:
		channel, err := sharedinfra.NewSNSSQSChannelFromConfig(ctx, sharedinfra.SNSSQSConfig{
			Region:      config.AWS.Region,
			Endpoint:    config.AWS.Endpoint,
			TopicPrefix: config.AWS.TopicPrefix,
			QueuePrefix: config.AWS.QueuePrefix,
		}, logger, sharedinfra.WithWaitTime(config.AWS.WaitTimeSeconds, time.Second))
		if err != nil {
			return nil, errors.Wrap(err, "failed to create SNS/SQS channel")
		}
		return channel, nil

	case TransportKafka:
		channel, err := sharedinfra.NewKafkaChannel(sharedinfra.KafkaConfig{
			Brokers:           config.Kafka.Brokers,
			GroupID:           config.Kafka.GroupID,
			TopicPrefix:       config.Kafka.TopicPrefix,
			Partitions:        config.Kafka.Partitions,
			ReplicationFactor: config.Kafka.ReplicationFactor,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create kafka channel")
		}
		return channel, nil

	case TransportRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to ping redis")
		}
		channel := sharedinfra.NewRedisStreamChannel(client, sharedinfra.RedisConfig{
			Group:        config.Redis.Group,
			Consumer:     config.Redis.Consumer,
			StreamPrefix: config.Redis.StreamPrefix,
			Block:        config.Redis.Block,
		}, logger)
		return &redisTransport{RedisStreamChannel: channel, client: client}, nil
	}

	return nil, errors.Errorf("unknown transport %q", config.Transport)
}

// redisTransport closes the client after the consumer stopped
type redisTransport struct {
	*sharedinfra.RedisStreamChannel
	client *redis.Client
}

func (t *redisTransport) Close() error {
	if err := t.RedisStreamChannel.Close(); err != nil {
		return err
	}
	return t.client.Close()
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.Channel != nil {
		if err := d.Channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close transport: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
