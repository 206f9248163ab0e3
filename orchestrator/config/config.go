package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Transport drivers
const (
	TransportSNS    = "sns"
	TransportNATS   = "nats"
	TransportMemory = "memory"
)

type Config struct {
	ServiceName  string       `mapstructure:"service_name"`
	Env          string       `mapstructure:"env"`
	Port         string       `mapstructure:"port"`
	Log          Log          `mapstructure:"log"`
	Database     Database     `mapstructure:"database"`
	Store        Store        `mapstructure:"store"`
	Redis        Redis        `mapstructure:"redis"`
	Transport    Transport    `mapstructure:"transport"`
	AWS          AWS          `mapstructure:"aws"`
	NATS         NATS         `mapstructure:"nats"`
	Telemetry    Telemetry    `mapstructure:"telemetry"`
	Orchestrator Orchestrator `mapstructure:"orchestrator"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Database struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type Store struct {
	Driver string `mapstructure:"driver"`
}

type Redis struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type Transport struct {
	Driver string `mapstructure:"driver"`
}

type AWS struct {
	Region            string `mapstructure:"region"`
	Endpoint          string `mapstructure:"endpoint"`
	SNSTopicArn       string `mapstructure:"sns_topic_arn"`
	SQSQueueURL       string `mapstructure:"sqs_queue_url"`
	Readers           int32  `mapstructure:"readers"`
	Workers           int32  `mapstructure:"workers"`
	VisibilityTimeout int32  `mapstructure:"visibility_timeout"`
	WaitTimeSeconds   int32  `mapstructure:"wait_time_seconds"`
}

type NATS struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	QueueGroup    string `mapstructure:"queue_group"`
}

type Telemetry struct {
	Enabled        bool   `mapstructure:"enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceVersion string `mapstructure:"service_version"`
}

type Orchestrator struct {
	MaxConflictRetries int `mapstructure:"max_conflict_retries"`
}

// ReadConfig loads <ENVIRONMENT>.json from this package's directory, local.json
// by default. ORCHESTRATOR_ prefixed environment variables override any key,
// e.g. ORCHESTRATOR_STORE_DRIVER for store.driver.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("unable to get current file")
	}

	return readConfig(filepath.Dir(filename))
}

func readConfig(configDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(getConfigName())
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("ORCHESTRATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultsFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
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

// setDefaultsFromEnv sets defaults, honoring the unprefixed variables the
// deployment tooling already exports
func setDefaultsFromEnv(v *viper.Viper) {
	// Service defaults
	v.SetDefault("service_name", "order-orchestrator")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8080"))
	v.SetDefault("log.level", getEnv("LOG_LEVEL", "info"))
	v.SetDefault("log.format", "json")

	// Database defaults
	v.SetDefault("database.url", getEnv("DATABASE_URL", ""))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "orders")
	v.SetDefault("database.ssl_mode", "disable")

	v.SetDefault("store.driver", StorePostgres)

	// Redis defaults
	v.SetDefault("redis.addr", getEnv("REDIS_ADDR", "localhost:6379"))
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "orchestrator:")

	v.SetDefault("transport.driver", TransportSNS)

	// AWS defaults
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint", getEnv("AWS_ENDPOINT_URL", ""))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:order-events"))
	v.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/order-orchestrator"))
	v.SetDefault("aws.readers", 1)
	v.SetDefault("aws.workers", 10)
	v.SetDefault("aws.visibility_timeout", 30)
	v.SetDefault("aws.wait_time_seconds", 20)

	// NATS defaults
	v.SetDefault("nats.url", getEnv("NATS_URL", "nats://127.0.0.1:4222"))
	v.SetDefault("nats.subject_prefix", "orders")
	v.SetDefault("nats.queue_group", "order-orchestrator")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	v.SetDefault("telemetry.service_version", "1.0.0")

	v.SetDefault("orchestrator.max_conflict_retries", 5)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the driver selections and the settings they need
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Transport.Driver {
	case TransportSNS:
		if c.AWS.SNSTopicArn == "" || c.AWS.SQSQueueURL == "" {
			return errors.New("sns transport requires aws.sns_topic_arn and aws.sqs_queue_url")
		}
		// SQS rejects long polls outside 0..20 seconds
		if c.AWS.WaitTimeSeconds < 0 || c.AWS.WaitTimeSeconds > 20 {
			return errors.New("aws.wait_time_seconds must be between 0 and 20")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return errors.New("nats transport requires nats.url")
		}
	case TransportMemory:
	default:
		return fmt.Errorf("unknown transport driver %q", c.Transport.Driver)
	}

	if c.Orchestrator.MaxConflictRetries < 0 {
		return errors.New("orchestrator.max_conflict_retries must not be negative")
	}

	return nil
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
