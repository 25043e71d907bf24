package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Storage backends
const (
	StorageBackendS3    = "s3"
	StorageBackendMinio = "minio"
)

// Pub/sub backends
const (
	PubSubBackendSNS   = "sns"
	PubSubBackendRedis = "redis"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Storage  StorageConfig  `yaml:"storage"`
	PubSub   PubSubConfig   `yaml:"pubsub"`
	Hub      HubConfig      `yaml:"hub"`
	Logging  LoggingConfig  `yaml:"logging"`
	Worker   WorkerConfig   `yaml:"worker"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	AWS      AWSConfig      `yaml:"aws"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name" env:"APP_NAME" env-default:"notifier"`
	Version     string `yaml:"version" env:"APP_VERSION" env-default:"dev"`
	Environment string `yaml:"environment" env:"APP_ENV" env-default:"development"`
}

// RabbitMQConfig holds RabbitMQ connection and queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"RABBITMQ_HOST" env-default:"localhost"`
	Port       int              `yaml:"port" env:"RABBITMQ_PORT" env-default:"5672"`
	User       string           `yaml:"user" env:"RABBITMQ_USER" env-default:"guest"`
	Password   string           `yaml:"password" env:"RABBITMQ_PASSWORD" env-default:"guest"`
	VHost      string           `yaml:"vhost" env:"RABBITMQ_VHOST" env-default:"/"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key" env:"RABBITMQ_ROUTING_KEY"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration. An empty name means
// the default exchange, routed by queue name.
type ExchangeConfig struct {
	Name       string `yaml:"name" env:"RABBITMQ_EXCHANGE"`
	Type       string `yaml:"type" env-default:"direct"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name" env:"RABBITMQ_QUEUE" env-default:"output"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env-default:"1"`
	RetryInterval     time.Duration `yaml:"retry_interval" env-default:"5s"`
	Heartbeat         time.Duration `yaml:"heartbeat" env-default:"10s"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout" env-default:"30s"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts" env-default:"3"`
	RetryInterval     time.Duration `yaml:"retry_interval" env-default:"100ms"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier" env-default:"2"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag" env:"RABBITMQ_CONSUMER_TAG"`
	PrefetchCount int    `yaml:"prefetch_count" env-default:"1"`
}

// StorageConfig holds object storage settings for evidence uploads
type StorageConfig struct {
	Backend      string        `yaml:"backend" env:"STORAGE_BACKEND" env-default:"s3"`
	Bucket       string        `yaml:"bucket" env:"S3_BUCKET" env-default:"jjhickman-iot-home"`
	Endpoint     string        `yaml:"endpoint" env:"STORAGE_ENDPOINT"`
	AccessKey    string        `yaml:"access_key" env:"STORAGE_ACCESS_KEY"`
	SecretKey    string        `yaml:"secret_key" env:"STORAGE_SECRET_KEY"`
	UseSSL       bool          `yaml:"use_ssl" env:"STORAGE_USE_SSL"`
	PathStyle    bool          `yaml:"path_style" env:"STORAGE_PATH_STYLE"`
	EnsureBucket bool          `yaml:"ensure_bucket" env:"STORAGE_ENSURE_BUCKET"`
	PresignTTL   time.Duration `yaml:"presign_ttl" env:"STORAGE_PRESIGN_TTL" env-default:"24h"`
}

// PubSubConfig holds the alert topic settings
type PubSubConfig struct {
	Backend  string      `yaml:"backend" env:"PUBSUB_BACKEND" env-default:"sns"`
	TopicARN string      `yaml:"topic_arn" env:"SNS_TOPIC_ARN" env-default:"arn:aws:sns:us-east-1:498707537134:iot-home"`
	Endpoint string      `yaml:"endpoint" env:"SNS_ENDPOINT"`
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis pub/sub backend
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

// HubConfig holds the hub callback settings
type HubConfig struct {
	Endpoint string        `yaml:"endpoint" env:"HUB_REST_ENDPOINT" env-default:"localhost:8881"`
	Timeout  time.Duration `yaml:"timeout" env:"HUB_TIMEOUT" env-default:"10s"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL" env-default:"debug"`
	Format       string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
	Output       string `yaml:"output" env:"LOG_OUTPUT" env-default:"stdout"`
	Directory    string `yaml:"directory" env:"LOG_DIR" env-default:"./log"`
	EnableCaller bool   `yaml:"enable_caller"`
	MaxSizeMB    int    `yaml:"max_size_mb" env-default:"20"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days" env-default:"14"`
	Compress     bool   `yaml:"compress"`
}

// WorkerConfig holds notifier worker configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency" env:"WORKER_CONCURRENCY" env-default:"8"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"30s"`
}

// MetricsConfig holds the notifier ops endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
	Address string `yaml:"address" env:"METRICS_ADDR" env-default:":9100"`
}

// AWSConfig holds shared AWS settings
type AWSConfig struct {
	Region string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
}

// ServerConfig holds hub HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"HUB_PORT" env-default:"8881"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the hub
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port            int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User            string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" env:"DB_NAME" env-default:"hub"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env-default:"5m"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"5s"`
	HealthTimeout   time.Duration `yaml:"health_timeout" env:"DB_HEALTH_TIMEOUT" env-default:"2s"`
}

// defaults seeds the values that cleanenv cannot express as defaults
// because their zero value is meaningful.
func defaults() Config {
	return Config{
		RabbitMQ: RabbitMQConfig{
			Queue: QueueConfig{Durable: true},
		},
	}
}

// Load reads the configuration file, then applies environment overrides and
// defaults. An empty path skips the file and uses the environment only.
func Load(configPath string) (*Config, error) {
	config := defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	return &config, nil
}

// ValidateNotifier checks the settings the notifier pipeline needs
func (c *Config) ValidateNotifier() error {
	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	switch c.Storage.Backend {
	case StorageBackendS3, StorageBackendMinio:
	default:
		return fmt.Errorf("unsupported storage backend: %q", c.Storage.Backend)
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}

	if c.Storage.Backend == StorageBackendMinio && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage endpoint is required for the minio backend")
	}

	if c.Storage.PresignTTL <= 0 {
		return fmt.Errorf("storage presign_ttl must be greater than 0")
	}

	switch c.PubSub.Backend {
	case PubSubBackendSNS, PubSubBackendRedis:
	default:
		return fmt.Errorf("unsupported pubsub backend: %q", c.PubSub.Backend)
	}

	if c.PubSub.TopicARN == "" {
		return fmt.Errorf("pubsub topic is required")
	}

	if c.Hub.Endpoint == "" {
		return fmt.Errorf("hub endpoint is required")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	return nil
}

// ValidateHub checks the settings the hub service needs
func (c *Config) ValidateHub() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return c.validateRabbitMQ()
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
