package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultLedgerTTL      = 24 * time.Hour
	defaultLedgerCapacity = 100_000
)

// Ledger is a bounded, expiring set of claimed keys.
// When full, the oldest claim is evicted.
type Ledger struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	entries  map[string]*list.Element
	order    *list.List
}

type ledgerEntry struct {
	key     string
	expires time.Time
}

func NewLedger(ttl time.Duration, capacity int) *Ledger {
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &Ledger{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (l *Ledger) Claim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.expire(now)
	if _, ok := l.entries[key]; ok {
		return false, nil
	}
	for l.order.Len() >= l.capacity {
		l.remove(l.order.Front())
	}
	l.entries[key] = l.order.PushBack(&ledgerEntry{key: key, expires: now.Add(l.ttl)})
	return true, nil
}

func (l *Ledger) Release(ctx context.Context, key string) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.entries[key]; ok {
		l.remove(el)
	}
	return nil
}

// Len reports the number of live claims.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.now())
	return l.order.Len()
}

// expire drops claims from the front; entries are ordered by expiry since the ttl is fixed.
func (l *Ledger) expire(now time.Time) {
	for el := l.order.Front(); el != nil; el = l.order.Front() {
		if el.Value.(*ledgerEntry).expires.After(now) {
			return
		}
		l.remove(el)
	}
}

func (l *Ledger) remove(el *list.Element) {
	delete(l.entries, el.Value.(*ledgerEntry).key)
	l.order.Remove(el)
}
