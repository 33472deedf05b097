// Package config loads and validates application configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// every subsystem (Server, Engine, Recommend, Catalog, Postgres, Redis,
// Kafka, Suggest, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Engine    EngineConfig    `yaml:"engine"`
	Recommend RecommendConfig `yaml:"recommend"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Suggest   SuggestConfig   `yaml:"suggest"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CatalogConfig selects the book and rating data source. Source is one of
// "postgres", "csv", or "sample".
type CatalogConfig struct {
	Source      string `yaml:"source"`
	BooksPath   string `yaml:"booksPath"`
	RatingsPath string `yaml:"ratingsPath"`
	SnapshotDir string `yaml:"snapshotDir"`
}

// EngineConfig controls vocabulary construction, dimensionality reduction,
// and clustering for the recommendation engine.
type EngineConfig struct {
	MaxFeatures    int     `yaml:"maxFeatures"`
	MinDocCount    int     `yaml:"minDocCount"`
	MaxDocFraction float64 `yaml:"maxDocFraction"`
	EmbeddingDims  int     `yaml:"embeddingDims"`
	ClusterSeed    int64   `yaml:"clusterSeed"`
	RatingFeatures bool    `yaml:"ratingFeatures"`
}

// RecommendConfig controls query-time limits and collaborative-filtering
// thresholds.
type RecommendConfig struct {
	DefaultLimit   int `yaml:"defaultLimit"`
	MaxResults     int `yaml:"maxResults"`
	MinCommonItems int `yaml:"minCommonItems"`
	MinRatings     int `yaml:"minRatings"`
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
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and query-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// SuggestConfig holds the generative similar-titles service endpoint. An
// empty endpoint disables outbound calls and keeps the static fallback.
type SuggestConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment
// variable overrides. It returns a Config populated with sensible defaults
// for any missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			Source:      "sample",
			BooksPath:   "data/books.csv",
			RatingsPath: "data/ratings.csv",
			SnapshotDir: "models",
		},
		Engine: EngineConfig{
			MaxFeatures:    5000,
			MinDocCount:    2,
			MaxDocFraction: 0.95,
			EmbeddingDims:  100,
			ClusterSeed:    42,
			RatingFeatures: true,
		},
		Recommend: RecommendConfig{
			DefaultLimit:   5,
			MaxResults:     50,
			MinCommonItems: 5,
			MinRatings:     10,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "bookshelf",
			User:            "bookshelf",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "bookshelf-group",
			Topics: KafkaTopics{
				AnalyticsEvents: "recommendation-events",
			},
		},
		Suggest: SuggestConfig{
			Endpoint: "",
			APIKey:   "",
			Timeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

func validate(cfg *Config) error {
	switch cfg.Catalog.Source {
	case "postgres", "csv", "sample":
	default:
		return fmt.Errorf("invalid catalog source %q (want postgres, csv, or sample)", cfg.Catalog.Source)
	}
	if cfg.Engine.MinDocCount < 1 {
		return fmt.Errorf("engine.minDocCount must be at least 1, got %d", cfg.Engine.MinDocCount)
	}
	if cfg.Engine.MaxDocFraction <= 0 || cfg.Engine.MaxDocFraction > 1 {
		return fmt.Errorf("engine.maxDocFraction must be in (0, 1], got %g", cfg.Engine.MaxDocFraction)
	}
	if cfg.Recommend.DefaultLimit < 1 || cfg.Recommend.DefaultLimit > cfg.Recommend.MaxResults {
		return fmt.Errorf("recommend.defaultLimit must be in [1, %d], got %d", cfg.Recommend.MaxResults, cfg.Recommend.DefaultLimit)
	}
	return nil
}

// applyEnvOverrides reads BR_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BR_CATALOG_SOURCE"); v != "" {
		cfg.Catalog.Source = v
	}
	if v := os.Getenv("BR_CATALOG_BOOKS_PATH"); v != "" {
		cfg.Catalog.BooksPath = v
	}
	if v := os.Getenv("BR_CATALOG_RATINGS_PATH"); v != "" {
		cfg.Catalog.RatingsPath = v
	}
	if v := os.Getenv("BR_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("BR_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("BR_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("BR_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("BR_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("BR_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("BR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("BR_SUGGEST_ENDPOINT"); v != "" {
		cfg.Suggest.Endpoint = v
	}
	if v := os.Getenv("BR_SUGGEST_API_KEY"); v != "" {
		cfg.Suggest.APIKey = v
	}
	if v := os.Getenv("BR_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BR_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("BR_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
