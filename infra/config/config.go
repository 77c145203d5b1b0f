package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Reorder     ReorderConfig
	Observation ObservationConfig
}

type ServerConfig struct {
	Port           string
	ServiceName    string
	RequestTimeout time.Duration
}

type StoreConfig struct {
	Driver        string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
}

// RedisConfig enables Redis-backed idempotency when Addr is set.
type RedisConfig struct {
	Addr string
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ReorderConfig drives the background reorder scan; an empty Schedule disables it.
type ReorderConfig struct {
	Schedule string
}

type ObservationConfig struct {
	LokiURL      string
	OTLPEndpoint string
}

// Load reads environment variables, optionally seeded from envFile.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	timeoutSec, err := strconv.Atoi(getenvWithDefault("REQUEST_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getenvWithDefault("APP_PORT", "3133"),
			ServiceName:    getenvWithDefault("SERVICE_NAME", "stock"),
			RequestTimeout: time.Duration(timeoutSec) * time.Second,
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getenvWithDefault("STOCK_STORE", StoreMemory)),
			PostgresDSN:   os.Getenv("POSTGRES_DSN"),
			MongoURI:      os.Getenv("MONGODB_URI"),
			MongoDatabase: getenvWithDefault("MONGODB_DB_NAME", "stock"),
		},
		Redis: RedisConfig{
			Addr: os.Getenv("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvWithDefault("KAFKA_TOPIC", "stock-events"),
		},
		Reorder: ReorderConfig{
			Schedule: lookupWithDefault("REORDER_SCAN_SCHEDULE", "@every 5m"),
		},
		Observation: ObservationConfig{
			LokiURL:      os.Getenv("LOKI_URL"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be positive")
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN must be provided for the postgres store")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided for the mongo store")
		}
		if c.Store.MongoDatabase == "" {
			return errors.New("MONGODB_DB_NAME must not be empty")
		}
	default:
		return fmt.Errorf("STOCK_STORE %q is not supported", c.Store.Driver)
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// lookupWithDefault keeps an explicitly empty value, unlike getenvWithDefault.
func lookupWithDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
