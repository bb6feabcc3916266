package app

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/storefront/internal/config"
	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/broker"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/broker/kafka"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/broker/membroker"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/postgres"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/redisledger"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	"github.com/jmoiron/sqlx"
)

// Broker is the message transport both services share.
type Broker interface {
	messaging.Publisher
	messaging.Subscriber
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

func openBroker(cfg config.Config, tel observability.Observability) (Broker, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		b, err := kafka.New(kafka.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Workers: cfg.ConsumerWorkers,
			Policy: broker.Policy{
				MaxRedeliveries: cfg.MaxRedeliveries,
				Backoff:         cfg.RetryBackoff,
			},
		}, tel.Logger(), tel)
		if err != nil {
			return nil, fmt.Errorf("app: kafka: %w", err)
		}
		return b, nil
	default:
		return membroker.NewBus(membroker.Config{
			Workers:         cfg.ConsumerWorkers,
			MaxRedeliveries: cfg.MaxRedeliveries,
			Backoff:         cfg.RetryBackoff,
		}, tel.Logger(), tel), nil
	}
}

// openDB connects once per process; both schemas may live in the same database.
func openDB(ctx context.Context, cfg config.Config, schemas ...string) (*sqlx.DB, error) {
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	for _, s := range schemas {
		if err := postgres.Migrate(db.DB, s); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	return db, nil
}

func openLedger(ctx context.Context, cfg config.Config) (dominv.Ledger, func(context.Context) error, error) {
	if cfg.Ledger != config.LedgerRedis {
		return memory.NewLedger(cfg.LedgerTTL, 0), nil, nil
	}
	client, err := redisledger.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("app: %w", err)
	}
	return redisledger.New(client, cfg.LedgerTTL), func(context.Context) error { return client.Close() }, nil
}
