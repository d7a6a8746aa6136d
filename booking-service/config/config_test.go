package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Local(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, "booking-service", cfg.ServiceName)
	assert.Equal(t, TransportMemory, cfg.Transport)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Kafka.Partitions)
	assert.Equal(t, 2*time.Second, cfg.Redis.Block)
	assert.Equal(t, int32(5), cfg.AWS.WaitTimeSeconds)
	assert.False(t, cfg.Database.Enabled)
	assert.Empty(t, cfg.Saga.FailAt)
}

func TestReadConfig_EnvOverride(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SAGA_TRANSPORT", TransportKafka)
	t.Setenv("SAGA_SAGA_FAIL_AT", "PaymentService")

	cfg, err := ReadConfig()
	require.NoError(t, err)

	assert.Equal(t, TransportKafka, cfg.Transport)
	assert.Equal(t, "PaymentService", cfg.Saga.FailAt)
}

func TestReadConfig_UnknownTransport(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("SAGA_TRANSPORT", "carrier-pigeon")

	_, err := ReadConfig()
	assert.ErrorContains(t, err, `unknown transport "carrier-pigeon"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{name: "memory", config: Config{Transport: TransportMemory}},
		{name: "sns sqs", config: Config{Transport: TransportSNSSQS}},
		{name: "redis", config: Config{Transport: TransportRedis}},
		{name: "kafka", config: Config{Transport: TransportKafka, Kafka: Kafka{Brokers: []string{"b:9092"}}}},
		{name: "kafka without brokers", config: Config{Transport: TransportKafka}, wantErr: "kafka.brokers is required"},
		{name: "empty transport", config: Config{}, wantErr: "unknown transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_GetDatabaseURL(t *testing.T) {
	cfg := Config{Database: Database{
		Host:     "db",
		Port:     5433,
		User:     "saga",
		Password: "secret",
		Database: "sagas",
		SSLMode:  "require",
	}}

	assert.Equal(t, "postgres://saga:secret@db:5433/sagas?sslmode=require", cfg.GetDatabaseURL())
}

func TestNewLogger(t *testing.T) {
	t.Run("json at debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(Log{Level: "debug", Format: "json"}, &buf)

		logger.Debug().Str("saga_id", "s-1").Msg("step")
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
		assert.Contains(t, buf.String(), `"saga_id":"s-1"`)
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(Log{Level: "loud", Format: "json"}, &buf)

		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
		assert.Contains(t, buf.String(), "bad value for log.level")

		buf.Reset()
		logger.Debug().Msg("hidden")
		assert.Empty(t, buf.String())
	})
}

func TestNewTransportChannel_Unknown(t *testing.T) {
	_, err := NewTransportChannel(context.Background(), &Config{Transport: "smoke"}, zerolog.Nop())
	assert.ErrorContains(t, err, `unknown transport "smoke"`)
}
