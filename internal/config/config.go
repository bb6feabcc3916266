// Package config reads process settings from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	BrokerMemory = "memory"
	BrokerKafka  = "kafka"

	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

type Config struct {
	ServiceName     string
	Env             string
	LogLevel        string
	LogFile         string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	Store       string
	PostgresDSN string

	Broker          string
	KafkaBrokers    []string
	KafkaGroupID    string
	ConsumerWorkers int
	MaxRedeliveries int
	RetryBackoff    time.Duration

	Ledger    string
	RedisAddr string
	LedgerTTL time.Duration

	InventoryURL   string
	UserServiceURL string
	RemoteTimeout  time.Duration

	// AuthStaticTokens is "token:userId[:email],..."; used when UserServiceURL is empty.
	AuthStaticTokens string
	// AdminEmails is "username:email,..."; receivers of low-stock mail.
	AdminEmails string

	OTLPEndpoint string
}

// Load reads envFiles when present, then the environment. Missing files are ignored;
// variables already set in the environment win over file values.
func Load(defaultService string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	r := reader{}
	cfg := Config{
		ServiceName:     r.str("SERVICE_NAME", defaultService),
		Env:             r.str("ENV", "dev"),
		LogLevel:        r.str("LOG_LEVEL", "info"),
		LogFile:         r.str("LOG_FILE", ""),
		HTTPAddr:        r.str("HTTP_ADDR", ":8080"),
		ShutdownTimeout: r.seconds("SHUTDOWN_TIMEOUT_SEC", 10),

		Store:       strings.ToLower(r.str("STORE", StoreMemory)),
		PostgresDSN: r.str("POSTGRES_DSN", ""),

		Broker:          strings.ToLower(r.str("BROKER", BrokerMemory)),
		KafkaBrokers:    r.list("KAFKA_BROKERS"),
		KafkaGroupID:    r.str("KAFKA_GROUP_ID", ""),
		ConsumerWorkers: r.int("CONSUMER_WORKERS", 4),
		MaxRedeliveries: r.int("MAX_REDELIVERIES", 5),
		RetryBackoff:    r.millis("RETRY_BACKOFF_MS", 100),

		Ledger:    strings.ToLower(r.str("LEDGER", LedgerMemory)),
		RedisAddr: r.str("REDIS_ADDR", ""),
		LedgerTTL: r.seconds("LEDGER_TTL_SEC", 24*60*60),

		InventoryURL:   r.str("INVENTORY_URL", ""),
		UserServiceURL: r.str("USER_SERVICE_URL", ""),
		RemoteTimeout:  r.millis("REMOTE_TIMEOUT_MS", 2000),

		AuthStaticTokens: r.str("AUTH_STATIC_TOKENS", ""),
		AdminEmails:      r.str("ADMIN_EMAILS", ""),

		OTLPEndpoint: r.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
	if err := errors.Join(append(r.errs, cfg.validate())...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("config: POSTGRES_DSN is required when STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: STORE must be memory or postgres, got %q", c.Store))
	}
	switch c.Broker {
	case BrokerMemory:
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("config: KAFKA_BROKERS is required when BROKER=kafka"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: BROKER must be memory or kafka, got %q", c.Broker))
	}
	switch c.Ledger {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("config: REDIS_ADDR is required when LEDGER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: LEDGER must be memory or redis, got %q", c.Ledger))
	}
	if c.MaxRedeliveries < 0 {
		errs = append(errs, errors.New("config: MAX_REDELIVERIES must be zero or greater"))
	}
	return errors.Join(errs...)
}

type reader struct{ errs []error }

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("config: %s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *reader) seconds(key string, def int) time.Duration {
	return time.Duration(r.int(key, def)) * time.Second
}

func (r *reader) millis(key string, def int) time.Duration {
	return time.Duration(r.int(key, def)) * time.Millisecond
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
