package inventory

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	dominv "github.com/Zhima-Mochi/storefront/internal/domain/inventory"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
)

const (
	defaultListenerTimeout = 10 * time.Second
	defaultConcurrency     = 4
	defaultMaxPending      = 1024
)

// LowStockListener reacts to a product at or below its threshold.
type LowStockListener interface {
	OnLowStock(ctx context.Context, p *dominv.Product, current, threshold int) error
}

type ListenerFunc func(ctx context.Context, p *dominv.Product, current, threshold int) error

func (f ListenerFunc) OnLowStock(ctx context.Context, p *dominv.Product, current, threshold int) error {
	return f(ctx, p, current, threshold)
}

// Notifier fans low-stock events out to listeners in the background.
// Listener errors and panics are logged and never reach the caller.
type Notifier struct {
	mu        sync.RWMutex
	listeners []LowStockListener

	sem        chan struct{}
	timeout    time.Duration
	maxPending int64
	pending    atomic.Int64
	wg         sync.WaitGroup

	log     observability.Logger
	counter observability.Counter // low_stock_notifications_total{outcome}
	queued  observability.Gauge   // low_stock_pending_notifications
}

type NotifierOption func(*Notifier)

func WithListenerTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

func WithNotifierConcurrency(c int) NotifierOption {
	return func(n *Notifier) {
		if c > 0 {
			n.sem = make(chan struct{}, c)
		}
	}
}

// WithMaxPending caps queued notifications; extra ones are dropped and counted.
func WithMaxPending(limit int) NotifierOption {
	return func(n *Notifier) {
		if limit > 0 {
			n.maxPending = int64(limit)
		}
	}
}

func NewNotifier(tel observability.Observability, opts ...NotifierOption) *Notifier {
	tel = observability.Or(tel)
	n := &Notifier{
		sem:        make(chan struct{}, defaultConcurrency),
		timeout:    defaultListenerTimeout,
		maxPending: defaultMaxPending,
		log:        tel.Logger().With(observability.F("component", "low_stock_notifier")),
		counter:    tel.Metrics().Counter(observability.MLowStockNotifications),
		queued:     tel.Metrics().Gauge(observability.MLowStockPending),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Notifier) Register(l LowStockListener) {
	if l == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, l)
}

// Notify schedules every listener and returns immediately.
func (n *Notifier) Notify(ctx context.Context, p *dominv.Product, current, threshold int) {
	n.mu.RLock()
	listeners := append([]LowStockListener(nil), n.listeners...)
	n.mu.RUnlock()
	if len(listeners) == 0 || p == nil {
		return
	}

	base := context.WithoutCancel(ctx)
	logger := logctx.FromOr(ctx, n.log).With(
		observability.F("product_id", p.ID.String()),
		observability.F("current", current),
		observability.F("threshold", threshold),
	)
	snapshot := p.Clone()

	for _, l := range listeners {
		if n.pending.Add(1) > n.maxPending {
			n.pending.Add(-1)
			n.counter.Add(1, observability.L("outcome", "dropped"))
			logger.Warn("low_stock_notification_dropped")
			continue
		}
		n.queued.Add(1)
		n.wg.Add(1)
		go n.deliver(base, logger, l, snapshot, current, threshold)
	}
}

func (n *Notifier) deliver(ctx context.Context, logger observability.Logger, l LowStockListener, p *dominv.Product, current, threshold int) {
	n.sem <- struct{}{}
	outcome := "success"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			logger.Error("low_stock_listener_panic",
				observability.F("panic", fmt.Sprint(r)),
				observability.F("stack", string(debug.Stack())),
			)
		}
		n.counter.Add(1, observability.L("outcome", outcome))
		<-n.sem
		n.pending.Add(-1)
		n.queued.Add(-1)
		n.wg.Done()
	}()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := l.OnLowStock(ctx, p, current, threshold); err != nil {
		outcome = "error"
		logger.Warn("low_stock_listener_error", observability.F("error", err))
		return
	}
	logger.Info("low_stock_notified")
}

// Wait blocks until every scheduled notification has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
