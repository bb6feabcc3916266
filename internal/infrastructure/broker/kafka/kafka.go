// Package kafka carries stock adjustments over Kafka topics with consumer groups.
// Each routing key is a topic. Dead letters go to "<topic>.dlq".
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/broker"
	"github.com/Zhima-Mochi/storefront/internal/observability"

	kafkago "github.com/segmentio/kafka-go"
)

const componentKafka = "kafka_broker"

type Config struct {
	Brokers []string
	GroupID string
	// Workers is the number of group members started per subscribed topic.
	Workers int
	Policy  broker.Policy
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type readerFactory func(topic string) reader

// Broker publishes through one writer and consumes through a reader per worker.
type Broker struct {
	cfg       Config
	writer    writer
	newReader readerFactory

	mu   sync.Mutex
	subs map[string][]messaging.Handler

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	readers []reader

	log         observability.Logger
	deadLetters observability.Counter
}

var (
	_ messaging.Publisher  = (*Broker)(nil)
	_ messaging.Subscriber = (*Broker)(nil)
)

func New(cfg Config, logger observability.Logger, tel observability.Observability) (*Broker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker address is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "inventory-service"
	}
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	newReader := func(topic string) reader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:        cfg.Brokers,
			GroupID:        cfg.GroupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0,
		})
	}
	return newBroker(cfg, w, newReader, logger, tel), nil
}

func newBroker(cfg Config, w writer, newReader readerFactory, logger observability.Logger, tel observability.Observability) *Broker {
	tel = observability.Or(tel)
	if logger == nil {
		logger = tel.Logger()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	cfg.Policy = cfg.Policy.WithDefaults()
	return &Broker{
		cfg:         cfg,
		writer:      w,
		newReader:   newReader,
		subs:        make(map[string][]messaging.Handler),
		log:         logger.With(observability.F("component", componentKafka)),
		deadLetters: tel.Metrics().Counter(observability.MDeadLetters),
	}
}

// Publish writes m keyed by m.Key so adjustments for one product stay on one partition.
func (b *Broker) Publish(ctx context.Context, m messaging.Message) error {
	if err := b.writer.WriteMessages(ctx, toKafka(m)); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", m.Topic, err)
	}
	return nil
}

// Subscribe must be called before Start.
func (b *Broker) Subscribe(topic string, h messaging.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *Broker) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	for topic, handlers := range b.subs {
		handlers := append([]messaging.Handler(nil), handlers...)
		for i := 0; i < b.cfg.Workers; i++ {
			r := b.newReader(topic)
			b.readers = append(b.readers, r)
			b.wg.Add(1)
			go b.consume(bg, topic, i, r, handlers)
		}
	}
	b.log.Info("broker_started",
		observability.F("group_id", b.cfg.GroupID),
		observability.F("topics", len(b.subs)),
		observability.F("workers", b.cfg.Workers),
	)
}

// Stop ends the consume loops, waits for them until ctx expires, then closes every client.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	cancel, readers := b.cancel, b.readers
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	var errs []error
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("kafka: stop: %w", ctx.Err()))
	}
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka: close reader: %w", err))
		}
	}
	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("kafka: close writer: %w", err))
	}
	b.log.Info("broker_stopped")
	return errors.Join(errs...)
}

func (b *Broker) consume(ctx context.Context, topic string, worker int, r reader, handlers []messaging.Handler) {
	defer b.wg.Done()
	logger := b.log.With(observability.F("topic", topic), observability.F("worker", worker))
	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("kafka_fetch_failed", observability.F("error", err.Error()))
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.cfg.Policy.Backoff):
			}
			continue
		}

		m := fromKafka(km)
		if !b.process(ctx, logger, handlers, m) {
			// Abandoned on shutdown: leave uncommitted so the group redelivers it.
			return
		}
		if err := r.CommitMessages(context.WithoutCancel(ctx), km); err != nil {
			logger.Error("kafka_commit_failed",
				observability.F("offset", km.Offset),
				observability.F("partition", km.Partition),
				observability.F("error", err.Error()),
			)
		}
	}
}

// process reports false when delivery was abandoned and the offset must not be committed.
func (b *Broker) process(ctx context.Context, logger observability.Logger, handlers []messaging.Handler, m messaging.Message) bool {
	for _, h := range handlers {
		final, verdict, reason := broker.Deliver(ctx, b.cfg.Policy, logger, h, m)
		switch verdict {
		case broker.Abandoned:
			return false
		case broker.DeadLettered:
			if err := b.deadLetter(ctx, logger, final, reason); err != nil {
				return false
			}
		}
	}
	return true
}

func (b *Broker) deadLetter(ctx context.Context, logger observability.Logger, m messaging.Message, reason string) error {
	dl := broker.DeadLetter(m, reason)
	for {
		err := b.writer.WriteMessages(context.WithoutCancel(ctx), toKafka(dl))
		if err == nil {
			break
		}
		logger.Error("dead_letter_publish_failed",
			observability.F("dead_letter_topic", dl.Topic),
			observability.F("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.cfg.Policy.Backoff):
		}
	}
	b.deadLetters.Add(1, observability.L("topic", m.Topic))
	logger.Error("message_dead_lettered",
		observability.F("dead_letter_topic", dl.Topic),
		observability.F("attempts", m.Attempt),
		observability.F("reason", reason),
	)
	return nil
}

func toKafka(m messaging.Message) kafkago.Message {
	km := kafkago.Message{Topic: m.Topic, Value: m.Payload}
	if m.Key != "" {
		km.Key = []byte(m.Key)
	}
	for k, v := range m.Headers {
		km.Headers = append(km.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return km
}

func fromKafka(km kafkago.Message) messaging.Message {
	m := messaging.Message{
		Topic:   km.Topic,
		Key:     string(km.Key),
		Payload: km.Value,
		Headers: make(map[string]string, len(km.Headers)),
	}
	for _, h := range km.Headers {
		m.Headers[h.Key] = string(h.Value)
	}
	return m
}
