// Package config provides configuration structures and validation for the gateway and
// the reconciliation worker. Values come from an optional .env file, environment variables
// and defaults, in that order of precedence (environment wins).
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. It is built once at startup and
// handed to constructors; nothing reads the environment after LoadConfig returns.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Mpesa       MpesaConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Sweeper     SweeperConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka producer configuration
type KafkaConfig struct {
	Brokers           string
	EventsTopic       string // Finalized transaction events
	DLQTopic          string // Malformed callbacks, empty disables the DLQ
	NumPartitions     int
	ReplicationFactor int
	WriteTimeout      time.Duration
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the callback archive
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration. An empty Addr disables the token cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// MpesaConfig holds the Daraja credentials and STK push parameters.
// Credentials are optional at load time; Initiate reports them as a ConfigError.
type MpesaConfig struct {
	Environment       string // sandbox or production
	BaseURL           string // overrides the environment's base URL when set
	ConsumerKey       string
	ConsumerSecret    string
	ShortCode         string
	PassKey           string
	CallbackURL       string
	TransactionType   string
	HTTPTimeout       time.Duration
	TokenTTL          time.Duration
	DefaultBusinessID string // last-resort owner for callbacks that cannot be attributed
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int // Maximum number of publish attempts for outbox messages
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// SweeperConfig controls the stale pending transaction sweep
type SweeperConfig struct {
	Enabled    bool
	Interval   time.Duration
	PendingAge time.Duration // Only pending rows older than this are queried
	BatchSize  int
}

// MissingCredentials lists the Daraja settings required to initiate a push that are empty.
func (m MpesaConfig) MissingCredentials() []string {
	var missing []string
	if m.ConsumerKey == "" {
		missing = append(missing, "MPESA_CONSUMER_KEY")
	}
	if m.ConsumerSecret == "" {
		missing = append(missing, "MPESA_CONSUMER_SECRET")
	}
	if m.ShortCode == "" {
		missing = append(missing, "MPESA_SHORTCODE")
	}
	if m.PassKey == "" {
		missing = append(missing, "MPESA_PASSKEY")
	}
	if m.CallbackURL == "" {
		missing = append(missing, "MPESA_CALLBACK_URL")
	}
	return missing
}

// validate checks every section and reports all problems at once
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	} else if c.Server.WriteTimeout <= 2*c.Mpesa.HTTPTimeout {
		// a push makes a token call and a push call, each bounded by MPESA_HTTP_TIMEOUT
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must exceed twice MPESA_HTTP_TIMEOUT")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENTS_TOPIC is required")
	}
	if c.Kafka.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "KAFKA_WRITE_TIMEOUT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	// Validate M-Pesa config
	switch strings.ToLower(c.Mpesa.Environment) {
	case "sandbox", "production":
	default:
		validationErrors = append(validationErrors, "MPESA_ENVIRONMENT must be sandbox or production")
	}
	if c.Mpesa.TransactionType == "" {
		validationErrors = append(validationErrors, "MPESA_TRANSACTION_TYPE is required")
	}
	if c.Mpesa.HTTPTimeout <= 0 {
		validationErrors = append(validationErrors, "MPESA_HTTP_TIMEOUT must be greater than 0")
	}
	if c.Mpesa.DefaultBusinessID == "" {
		validationErrors = append(validationErrors, "MPESA_DEFAULT_BUSINESS_ID is required")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if c.Sweeper.Enabled {
		if c.Sweeper.Interval <= 0 {
			validationErrors = append(validationErrors, "SWEEPER_INTERVAL must be greater than 0")
		}
		if c.Sweeper.PendingAge <= 0 {
			validationErrors = append(validationErrors, "SWEEPER_PENDING_AGE must be greater than 0")
		}
		if c.Sweeper.BatchSize <= 0 {
			validationErrors = append(validationErrors, "SWEEPER_BATCH_SIZE must be greater than 0")
		}
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
