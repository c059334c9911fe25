// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, message queues, the NLU provider, the
// WhatsApp sender, and the business policy thresholds.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all
// components. Each field represents a major subsystem's configuration and is
// validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	NLU         NLUConfig
	WhatsApp    WhatsAppConfig
	Policy      PolicyConfig
	Outbox      OutboxConfig
	Scheduler   SchedulerConfig
	WorkerPool  WorkerPoolConfig
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

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	InboundTopic      string // Topic carrying admitted inbound WhatsApp messages
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the conversation session store
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration // How long an idle conversation context is retained
}

// NLUConfig contains settings for the external language-understanding provider
type NLUConfig struct {
	BaseURL            string
	APIKey             string
	ChatModel          string
	TranscriptionModel string
	LanguageCode       string
	Timeout            time.Duration
	MinConfidence      float64 // Hypotheses below this confidence are discarded
}

// WhatsAppConfig contains settings for the outbound WhatsApp Cloud API sender
type WhatsAppConfig struct {
	BaseURL       string
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string // Webhook verification token
	OwnerPhone    string // Business owner wa_id, recipient of proactive alerts
	Timeout       time.Duration
}

// PolicyConfig contains the business-rule thresholds that decide when a
// command needs human approval. None of these are hard-coded at use sites.
type PolicyConfig struct {
	LargeCreditThreshold int64         // Paise; a single credit grant beyond this needs approval
	BulkOrderThreshold   int64         // Paise; bulk order value beyond this needs approval
	BulkSumTolerance     int64         // Allowed |declared total - sum(groups)| in native units
	SimilarityFloor      float64       // Minimum fuzzy-match score for entity resolution
	ApprovalTTL          time.Duration // Pending approvals older than this expire
	OverdueDays          int           // Unpaid invoices older than this are overdue
}

// OutboxConfig contains the credit-ledger outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// SchedulerConfig contains background job configuration
type SchedulerConfig struct {
	ExpirySweepInterval time.Duration // How often stale pending approvals are expired
	DailySummaryHour    int           // Hour of day (UTC) for the owner summary
	LowStockHour        int           // Hour of day (UTC) for low stock alerts
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int // Maximum number of workers in the pool
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
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
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.InboundTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_INBOUND_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
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
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.SessionTTL <= 0 {
		validationErrors = append(validationErrors, "REDIS_SESSION_TTL must be greater than 0")
	}

	// Validate NLU config
	if c.NLU.BaseURL == "" {
		validationErrors = append(validationErrors, "NLU_BASE_URL is required")
	}
	if c.NLU.Timeout <= 0 {
		validationErrors = append(validationErrors, "NLU_TIMEOUT must be greater than 0")
	}
	if c.NLU.MinConfidence < 0 || c.NLU.MinConfidence > 1 {
		validationErrors = append(validationErrors, "NLU_MIN_CONFIDENCE must be between 0 and 1")
	}

	// Validate WhatsApp config
	if c.WhatsApp.BaseURL == "" {
		validationErrors = append(validationErrors, "WHATSAPP_BASE_URL is required")
	}
	if c.WhatsApp.PhoneNumberID == "" {
		validationErrors = append(validationErrors, "WHATSAPP_PHONE_NUMBER_ID is required")
	}
	if c.WhatsApp.Timeout <= 0 {
		validationErrors = append(validationErrors, "WHATSAPP_TIMEOUT must be greater than 0")
	}

	// Validate Policy config
	if c.Policy.LargeCreditThreshold <= 0 {
		validationErrors = append(validationErrors, "POLICY_LARGE_CREDIT_THRESHOLD must be greater than 0")
	}
	if c.Policy.BulkOrderThreshold <= 0 {
		validationErrors = append(validationErrors, "POLICY_BULK_ORDER_THRESHOLD must be greater than 0")
	}
	if c.Policy.BulkSumTolerance < 0 {
		validationErrors = append(validationErrors, "POLICY_BULK_SUM_TOLERANCE must not be negative")
	}
	if c.Policy.SimilarityFloor <= 0 || c.Policy.SimilarityFloor > 1 {
		validationErrors = append(validationErrors, "POLICY_SIMILARITY_FLOOR must be between 0 and 1")
	}
	if c.Policy.ApprovalTTL <= 0 {
		validationErrors = append(validationErrors, "POLICY_APPROVAL_TTL must be greater than 0")
	}
	if c.Policy.OverdueDays <= 0 {
		validationErrors = append(validationErrors, "POLICY_OVERDUE_DAYS must be greater than 0")
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

	// Validate Scheduler config
	if c.Scheduler.ExpirySweepInterval <= 0 {
		validationErrors = append(validationErrors, "SCHEDULER_EXPIRY_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Scheduler.DailySummaryHour < 0 || c.Scheduler.DailySummaryHour > 23 {
		validationErrors = append(validationErrors, "SCHEDULER_DAILY_SUMMARY_HOUR must be between 0 and 23")
	}
	if c.Scheduler.LowStockHour < 0 || c.Scheduler.LowStockHour > 23 {
		validationErrors = append(validationErrors, "SCHEDULER_LOW_STOCK_HOUR must be between 0 and 23")
	}

	// Validate WorkerPool config
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
