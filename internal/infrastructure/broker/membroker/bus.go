// Package membroker is an in-process topic broker with bounded redelivery and dead-lettering.
// It is not durable: queued messages are lost when the process exits.
package membroker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/infrastructure/broker"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

const componentBroker = "memory_broker"

var ErrClosed = errors.New("membroker: bus is closed")

type Config struct {
	Workers         int
	QueueSize       int
	MaxRedeliveries int
	Backoff         time.Duration
	HandlerTimeout  time.Duration
	// DeadLetterCap bounds how many dead letters are kept for inspection.
	DeadLetterCap int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.MaxRedeliveries < 0 {
		c.MaxRedeliveries = 0
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	if c.DeadLetterCap <= 0 {
		c.DeadLetterCap = 1000
	}
	return c
}

type Bus struct {
	cfg Config

	mu   sync.RWMutex
	subs map[string][]messaging.Handler

	queue     chan messaging.Message
	pubMu     sync.RWMutex
	inflight  sync.WaitGroup
	workers   sync.WaitGroup
	closed    atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc

	deadMu sync.Mutex
	dead   []messaging.Message

	log         observability.Logger
	deadLetters observability.Counter
	depth       observability.Gauge
}

var (
	_ messaging.Publisher  = (*Bus)(nil)
	_ messaging.Subscriber = (*Bus)(nil)
)

func NewBus(cfg Config, logger observability.Logger, tel observability.Observability) *Bus {
	tel = observability.Or(tel)
	if logger == nil {
		logger = tel.Logger()
	}
	cfg = cfg.withDefaults()
	return &Bus{
		cfg:         cfg,
		subs:        make(map[string][]messaging.Handler),
		queue:       make(chan messaging.Message, cfg.QueueSize),
		log:         logger.With(observability.F("component", componentBroker)),
		deadLetters: tel.Metrics().Counter(observability.MDeadLetters),
		depth:       tel.Metrics().Gauge(observability.MBrokerQueueDepth),
	}
}

func (b *Bus) Subscribe(topic string, h messaging.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		for i := 0; i < b.cfg.Workers; i++ {
			b.workers.Add(1)
			go b.work(bg, i)
		}
		logctx.FromOr(ctx, b.log).Info("broker_started", observability.F("workers", b.cfg.Workers))
	})
}

// Stop refuses new messages, waits for queued ones until ctx expires, then stops the workers.
func (b *Bus) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.pubMu.Lock()
		b.closed.Store(true)
		b.pubMu.Unlock()
		done := make(chan struct{})
		go func() {
			b.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("membroker: stop: %w", ctx.Err())
		}
		if b.cancel != nil {
			b.cancel()
		}
		b.workers.Wait()
		logctx.FromOr(ctx, b.log).Info("broker_stopped", observability.F("pending", len(b.queue)))
	})
	return err
}

func (b *Bus) Publish(ctx context.Context, m messaging.Message) error {
	b.pubMu.RLock()
	if b.closed.Load() {
		b.pubMu.RUnlock()
		return ErrClosed
	}
	b.inflight.Add(1)
	b.pubMu.RUnlock()

	m.Headers = cloneHeaders(m.Headers)
	m.Attempt = 0
	b.depth.Add(1)
	select {
	case b.queue <- m:
		logctx.FromOr(ctx, b.log).Debug("message_enqueued", observability.F("topic", m.Topic))
		return nil
	case <-ctx.Done():
		b.depth.Add(-1)
		b.inflight.Done()
		logctx.FromOr(ctx, b.log).Warn("message_enqueue_aborted",
			observability.F("topic", m.Topic),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

// DeadLetters returns the most recent dead-lettered messages, oldest first.
func (b *Bus) DeadLetters() []messaging.Message {
	b.deadMu.Lock()
	defer b.deadMu.Unlock()
	return append([]messaging.Message(nil), b.dead...)
}

func (b *Bus) work(ctx context.Context, worker int) {
	defer b.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-b.queue:
			b.dispatch(ctx, worker, m)
			b.depth.Add(-1)
			b.inflight.Done()
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, worker int, m messaging.Message) {
	b.mu.RLock()
	handlers := append([]messaging.Handler(nil), b.subs[m.Topic]...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("topic", m.Topic), observability.F("worker", worker))
	if len(handlers) == 0 {
		logger.Debug("message_dropped_no_subscriber")
		return
	}
	for _, h := range handlers {
		b.deliver(ctx, logger, h, m)
	}
}

func (b *Bus) deliver(ctx context.Context, logger observability.Logger, h messaging.Handler, m messaging.Message) {
	final, verdict, reason := broker.Deliver(ctx, b.policy(), logger, h, m)
	if verdict == broker.DeadLettered {
		b.deadLetter(logger, final, reason)
	}
}

func (b *Bus) policy() broker.Policy {
	return broker.Policy{
		MaxRedeliveries: b.cfg.MaxRedeliveries,
		Backoff:         b.cfg.Backoff,
		HandlerTimeout:  b.cfg.HandlerTimeout,
	}
}

func (b *Bus) deadLetter(logger observability.Logger, m messaging.Message, reason string) {
	dl := broker.DeadLetter(m, reason)

	b.deadMu.Lock()
	b.dead = append(b.dead, dl)
	if over := len(b.dead) - b.cfg.DeadLetterCap; over > 0 {
		b.dead = append([]messaging.Message(nil), b.dead[over:]...)
	}
	b.deadMu.Unlock()

	b.deadLetters.Add(1, observability.L("topic", m.Topic))
	logger.Error("message_dead_lettered",
		observability.F("dead_letter_topic", dl.Topic),
		observability.F("attempts", m.Attempt),
		observability.F("reason", reason),
	)

	b.mu.RLock()
	handlers := append([]messaging.Handler(nil), b.subs[dl.Topic]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		if err := broker.Invoke(context.Background(), b.cfg.HandlerTimeout, logger, h, dl); err != nil {
			logger.Warn("dead_letter_handler_error", observability.F("error", err.Error()))
		}
	}
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h)+3)
	for k, v := range h {
		out[k] = v
	}
	return out
}
