// Package config loads and validates the file indexer configuration from
// YAML files with environment-variable overrides. It provides typed structs
// for the indexing core and for every optional log sink backend.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/file-indexer/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Indexer  IndexerConfig  `yaml:"indexer"`
	Logging  LoggingConfig  `yaml:"logging"`
	LogFile  LogFileConfig  `yaml:"logFile"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// IndexerConfig controls chunked reads, the worker pool and ranking.
type IndexerConfig struct {
	ChunkSize int `yaml:"chunkSize"`
	Workers   int `yaml:"workers"`
	// TopK has no upper bound; ranking memory follows the distinct word
	// count, not TopK.
	TopK int `yaml:"topK"`
	// ProgressEvery emits a per-chunk progress message every N chunks.
	ProgressEvery int `yaml:"progressEvery"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LogFileConfig controls the lifecycle log file written by the file sink.
type LogFileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	BufferSize int    `yaml:"bufferSize"`
}

// SinksConfig toggles the remote log sinks and their batching behaviour.
type SinksConfig struct {
	Kafka         bool          `yaml:"kafka"`
	Redis         bool          `yaml:"redis"`
	Postgres      bool          `yaml:"postgres"`
	BufferSize    int           `yaml:"bufferSize"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumerGroup"`
	LogTopic      string   `yaml:"logTopic"`
}

// RedisConfig holds Redis connection parameters and the pub/sub channel.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"poolSize"`
	Channel  string `yaml:"channel"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	LogTable        string        `yaml:"logTable"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// TracingConfig controls span logging for indexing runs.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	return defaultConfig()
}

// Validate reports settings the indexer cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Indexer.ChunkSize <= 0:
		return fmt.Errorf("indexer.chunkSize must be positive, got %d: %w", c.Indexer.ChunkSize, apperrors.ErrInvalidConfig)
	case c.Indexer.Workers <= 0:
		return fmt.Errorf("indexer.workers must be positive, got %d: %w", c.Indexer.Workers, apperrors.ErrInvalidConfig)
	case c.Indexer.TopK <= 0:
		return fmt.Errorf("indexer.topK must be positive, got %d: %w", c.Indexer.TopK, apperrors.ErrInvalidConfig)
	case c.LogFile.Enabled && c.LogFile.Path == "":
		return fmt.Errorf("logFile.path is required when the log file is enabled: %w", apperrors.ErrInvalidConfig)
	case c.Sinks.Kafka && len(c.Kafka.Brokers) == 0:
		return fmt.Errorf("kafka sink enabled without brokers: %w", apperrors.ErrInvalidConfig)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Indexer: IndexerConfig{
			ChunkSize:     32 * 1024,
			Workers:       runtime.NumCPU(),
			TopK:          10,
			ProgressEvery: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		LogFile: LogFileConfig{
			Enabled:    true,
			Path:       ".fileIndexer.log",
			BufferSize: 1024,
		},
		Sinks: SinksConfig{
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: time.Second,
			WriteTimeout:  5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "file-indexer-logtail",
			LogTopic:      "file-indexer.log",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 4,
			Channel:  "file-indexer:log",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "fileindexer",
			User:            "fileindexer",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			LogTable:        "indexer_log",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads FI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FI_INDEXER_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.ChunkSize = n
		}
	}
	if v := os.Getenv("FI_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("FI_INDEXER_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.TopK = n
		}
	}
	if v := os.Getenv("FI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FI_LOG_FILE"); v != "" {
		cfg.LogFile.Path = v
	}
	if v := os.Getenv("FI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
