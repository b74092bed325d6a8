package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Counter{}
)

// NewCounter registers a process-wide counter under name. Registering the
// same name twice returns the existing counter.
func NewCounter(name string) *Counter {
	registryMu.Lock()
	defer registryMu.Unlock()

	if c, ok := registry[name]; ok {
		return c
	}
	c := &Counter{}
	registry[name] = c
	return c
}

// Snapshot returns the current value of every registered counter.
func Snapshot() map[string]uint64 {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make(map[string]uint64, len(registry))
	for name, c := range registry {
		out[name] = c.Load()
	}
	return out
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	TxRetries             = NewCounter("db_tx_retries_total")
	OrdersCreated         = NewCounter("orders_created_total")
	OrdersCancelled       = NewCounter("orders_cancelled_total")
	VouchersRedeemed      = NewCounter("vouchers_redeemed_total")
	NotificationsSent     = NewCounter("notifications_delivered_total")
	NotificationsDropped  = NewCounter("notifications_dropped_total")
	NotificationsFailed   = NewCounter("notifications_publish_failed_total")
	HTTPRequests          = NewCounter("http_requests_total")
	HTTPRequestsThrottled = NewCounter("http_requests_throttled_total")
)
