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
	"SERVICE_NAME", "ENV", "HTTP_ADDR", "SHUTDOWN_TIMEOUT_SEC", "STORE", "POSTGRES_DSN",
	"BROKER", "KAFKA_BROKERS", "KAFKA_GROUP_ID", "CONSUMER_WORKERS", "MAX_REDELIVERIES",
	"RETRY_BACKOFF_MS", "LEDGER", "REDIS_ADDR", "LEDGER_TTL_SEC", "INVENTORY_URL",
	"USER_SERVICE_URL", "REMOTE_TIMEOUT_MS", "AUTH_STATIC_TOKENS", "ADMIN_EMAILS",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "LOG_LEVEL", "LOG_FILE",
}

// clearEnv blanks every key for the test; t.Setenv restores the previous values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("transaction-service")
	require.NoError(t, err)
	assert.Equal(t, "transaction-service", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, BrokerMemory, cfg.Broker)
	assert.Equal(t, LedgerMemory, cfg.Ledger)
	assert.Equal(t, 5, cfg.MaxRedeliveries)
	assert.Equal(t, 100*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 2*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 24*time.Hour, cfg.LedgerTTL)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("BROKER", "Kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LEDGER", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("RETRY_BACKOFF_MS", "250")
	t.Setenv("CONSUMER_WORKERS", "8")

	cfg, err := Load("inventory-service")
	require.NoError(t, err)
	assert.Equal(t, BrokerKafka, cfg.Broker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, LedgerRedis, cfg.Ledger)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 8, cfg.ConsumerWorkers)
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9090\nENV=staging\n"), 0o600))
	t.Setenv("ENV", "prod")

	cfg, err := Load("storefront", path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "prod", cfg.Env, "environment wins over the file")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "sqlite")
	t.Setenv("BROKER", "kafka")
	t.Setenv("CONSUMER_WORKERS", "many")

	_, err := Load("storefront")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE must be memory or postgres")
	assert.Contains(t, err.Error(), "KAFKA_BROKERS is required")
	assert.Contains(t, err.Error(), "CONSUMER_WORKERS")
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE", "postgres")

	_, err := Load("storefront")
	require.ErrorContains(t, err, "POSTGRES_DSN")
}
