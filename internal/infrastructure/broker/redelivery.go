// Package broker holds the delivery policy shared by the broker adapters.
package broker

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/storefront/internal/domain/messaging"
	"github.com/Zhima-Mochi/storefront/internal/observability"
	"github.com/Zhima-Mochi/storefront/internal/observability/logctx"
	"github.com/Zhima-Mochi/storefront/internal/pkg/apperr"
)

type Policy struct {
	MaxRedeliveries int
	Backoff         time.Duration
	HandlerTimeout  time.Duration
}

func (p Policy) WithDefaults() Policy {
	if p.MaxRedeliveries < 0 {
		p.MaxRedeliveries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = 100 * time.Millisecond
	}
	if p.HandlerTimeout <= 0 {
		p.HandlerTimeout = 30 * time.Second
	}
	return p
}

type Verdict int

const (
	Acked Verdict = iota
	DeadLettered
	// Abandoned means ctx ended between attempts; the message must not be acknowledged.
	Abandoned
)

// Deliver runs h until it acknowledges, fails permanently or exhausts its redeliveries.
// The returned message carries the final attempt count and reason is set for DeadLettered.
func Deliver(ctx context.Context, p Policy, logger observability.Logger, h messaging.Handler, m messaging.Message) (messaging.Message, Verdict, string) {
	limit := p.MaxRedeliveries + 1
	for attempt := 1; ; attempt++ {
		m.Attempt = attempt
		err := Invoke(ctx, p.HandlerTimeout, logger, h, m)
		if err == nil {
			return m, Acked, ""
		}
		if apperr.IsPermanent(err) {
			return m, DeadLettered, err.Error()
		}
		if attempt >= limit {
			return m, DeadLettered, "max redeliveries exceeded: " + err.Error()
		}
		logger.Warn("message_redelivery_scheduled",
			observability.F("attempt", attempt),
			observability.F("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			logger.Warn("message_abandoned", observability.F("attempt", attempt))
			return m, Abandoned, ""
		case <-time.After(p.Backoff * time.Duration(attempt)):
		}
	}
}

// Invoke calls h once with a bounded, uncancelled context and turns a panic into an error.
func Invoke(ctx context.Context, timeout time.Duration, logger observability.Logger, h messaging.Handler, m messaging.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("message_handler_panic",
				observability.F("panic", r),
				observability.F("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("broker: handler panic: %v", r)
		}
	}()
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return h(logctx.With(hctx, logger), Clone(m))
}

// DeadLetter builds the dead-letter copy of m.
func DeadLetter(m messaging.Message, reason string) messaging.Message {
	dl := Clone(m)
	dl.Topic = messaging.DeadLetterTopic(m.Topic)
	dl.Headers[messaging.HeaderDeadLetterReason] = reason
	dl.Headers[messaging.HeaderOriginalTopic] = m.Topic
	dl.Headers[messaging.HeaderAttempts] = strconv.Itoa(m.Attempt)
	return dl
}

func Clone(m messaging.Message) messaging.Message {
	h := make(map[string]string, len(m.Headers)+3)
	for k, v := range m.Headers {
		h[k] = v
	}
	m.Headers = h
	m.Payload = append([]byte(nil), m.Payload...)
	return m
}
