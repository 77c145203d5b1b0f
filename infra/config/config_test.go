package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"APP_PORT", "SERVICE_NAME", "REQUEST_TIMEOUT_SECONDS", "STOCK_STORE", "POSTGRES_DSN",
	"MONGODB_URI", "MONGODB_DB_NAME", "REDIS_ADDR", "KAFKA_BROKERS", "KAFKA_TOPIC",
	"REORDER_SCAN_SCHEDULE", "LOKI_URL", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// clearEnv blanks every key for the test and unsets the ones that must be absent.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "3133", cfg.Server.Port)
	assert.Equal(t, "stock", cfg.Server.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "stock-events", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "@every 5m", cfg.Reorder.Schedule)
}

func TestLoad_FromEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9000\nSTOCK_STORE=Postgres\nPOSTGRES_DSN=postgres://localhost/stock\nKAFKA_BROKERS=k1:9092, k2:9092,\nREORDER_SCAN_SCHEDULE=\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "", cfg.Reorder.Schedule)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "soon")

	_, err := Load(missingFile(t))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "3133", RequestTimeout: time.Second},
			Store:  StoreConfig{Driver: StoreMemory, MongoDatabase: "stock"},
			Kafka:  KafkaConfig{Topic: "stock-events"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing port", func(c *Config) { c.Server.Port = "" }, false},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, false},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = StorePostgres }, false},
		{"postgres with dsn", func(c *Config) { c.Store.Driver = StorePostgres; c.Store.PostgresDSN = "dsn" }, true},
		{"mongo without uri", func(c *Config) { c.Store.Driver = StoreMongo }, false},
		{"mongo with uri", func(c *Config) { c.Store.Driver = StoreMongo; c.Store.MongoURI = "mongodb://x" }, true},
		{"unknown store", func(c *Config) { c.Store.Driver = "sqlite" }, false},
		{"brokers without topic", func(c *Config) { c.Kafka.Brokers = []string{"k1"}; c.Kafka.Topic = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	var nilConfig *Config
	assert.Error(t, nilConfig.Validate())
}
