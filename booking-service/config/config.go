package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	TransportMemory = "memory"
	TransportSNSSQS = "sns_sqs"
	TransportKafka  = "kafka"
	TransportRedis  = "redis"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	Transport   string    `mapstructure:"transport"`
	AWS         AWS       `mapstructure:"aws"`
	Kafka       Kafka     `mapstructure:"kafka"`
	Redis       Redis     `mapstructure:"redis"`
	Database    Database  `mapstructure:"database"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
	Log         Log       `mapstructure:"log"`
	Saga        Saga      `mapstructure:"saga"`
}

type AWS struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	QueuePrefix     string `mapstructure:"queue_prefix"`
	WaitTimeSeconds int32  `mapstructure:"wait_time_seconds"`
}

type Kafka struct {
	Brokers           []string `mapstructure:"brokers"`
	GroupID           string   `mapstructure:"group_id"`
	TopicPrefix       string   `mapstructure:"topic_prefix"`
	Partitions        int      `mapstructure:"partitions"`
	ReplicationFactor int      `mapstructure:"replication_factor"`
}

type Redis struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Group        string        `mapstructure:"group"`
	Consumer     string        `mapstructure:"consumer"`
	StreamPrefix string        `mapstructure:"stream_prefix"`
	Block        time.Duration `mapstructure:"block"`
}

type Database struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Saga holds settings of the demo booking saga
type Saga struct {
	// FailAt makes the forward command of the named step fail
	FailAt string `mapstructure:"fail_at"`
}

func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	configDir := filepath.Join(filepath.Dir(filename))
	viper.SetConfigName(getConfigName())
	viper.SetConfigType("json")
	viper.AddConfigPath(configDir)

	// SAGA_KAFKA_BROKERS overrides kafka.brokers
	viper.AutomaticEnv()
	viper.SetEnvPrefix("SAGA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	err = viper.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults() {
	viper.SetDefault("service_name", "booking-service")
	viper.SetDefault("env", "local")
	viper.SetDefault("port", "8080")
	viper.SetDefault("transport", TransportMemory)

	viper.SetDefault("aws.region", "us-east-1")
	viper.SetDefault("aws.topic_prefix", "saga-")
	viper.SetDefault("aws.queue_prefix", "saga-")
	viper.SetDefault("aws.wait_time_seconds", 15)

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "booking-service")
	viper.SetDefault("kafka.topic_prefix", "saga.")
	viper.SetDefault("kafka.partitions", 1)
	viper.SetDefault("kafka.replication_factor", 1)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.group", "booking-service")
	viper.SetDefault("redis.consumer", hostname())
	viper.SetDefault("redis.stream_prefix", "saga:")
	viper.SetDefault("redis.block", "2s")

	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "sagas")
	viper.SetDefault("database.ssl_mode", "disable")

	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("saga.fail_at", "")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "booking-service"
	}
	return name
}

// Validate checks the transport selection and its required settings
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportMemory, TransportSNSSQS, TransportRedis:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required for the kafka transport")
		}
	default:
		return errors.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
