package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"

	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

var ErrNotifierClosed = errors.New("notifier closed")

type delivery struct {
	ctx     context.Context
	topic   string
	event   string
	payload OrderEvent
}

// Notifier turns committed order changes into topic events. Deliveries run
// on a single background worker so callers never wait on the transport.
type Notifier struct {
	pub   Publisher
	queue chan delivery
	done  chan struct{}
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
}

var _ order.Events = (*Notifier)(nil)

func NewNotifier(pub Publisher, queueSize int) *Notifier {
	if queueSize <= 0 {
		queueSize = 256
	}
	n := &Notifier{
		pub:   pub,
		queue: make(chan delivery, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go n.run()
	return n
}

func (n *Notifier) OrderCreated(ctx context.Context, o *order.Order) {
	total := o.TotalAmount
	ev := OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		TotalAmount: &total,
		NewStatus:   string(o.Status),
		Message:     fmt.Sprintf("New order #%d created with total $%s", o.ID, total.StringFixed(2)),
		Timestamp:   n.now().UTC(),
	}

	n.enqueue(ctx,
		delivery{topic: UserTopic(o.UserID), event: EventNewOrderCreated, payload: ev},
		delivery{topic: AdminTopic, event: EventNewOrderReceived, payload: ev},
	)
}

func (n *Notifier) StatusChanged(ctx context.Context, o *order.Order, previous order.Status) {
	ev := OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		OldStatus:   string(previous),
		NewStatus:   string(o.Status),
		Message:     fmt.Sprintf("Your order is now %s.", o.Status.Message()),
		Timestamp:   n.now().UTC(),
	}

	admin := ev
	admin.Message = fmt.Sprintf("Order %s changed from %s to %s", o.OrderNumber, previous, o.Status)

	n.enqueue(ctx,
		delivery{topic: UserTopic(o.UserID), event: EventOrderStatusChanged, payload: ev},
		delivery{topic: OrderTopic(o.ID), event: EventOrderStatusChanged, payload: ev},
		delivery{topic: AdminTopic, event: EventOrderStatusChanged, payload: admin},
	)
}

func (n *Notifier) OrderCancelled(ctx context.Context, o *order.Order, reason string) {
	msg := fmt.Sprintf("Order #%d has been cancelled", o.ID)
	if reason != "" {
		msg += ": " + reason
	}

	ev := OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		NewStatus:   string(order.StatusCancelled),
		Reason:      reason,
		Message:     msg,
		Timestamp:   n.now().UTC(),
	}

	n.enqueue(ctx,
		delivery{topic: UserTopic(o.UserID), event: EventOrderCancelled, payload: ev},
		delivery{topic: OrderTopic(o.ID), event: EventOrderCancelled, payload: ev},
		delivery{topic: AdminTopic, event: EventOrderCancelled, payload: ev},
	)
}

// enqueue never blocks. A full queue drops the delivery.
func (n *Notifier) enqueue(ctx context.Context, ds ...delivery) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "notify"))

	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		log.Warn("notifier closed, events discarded", zap.Int("count", len(ds)))
		metrics.NotificationsDropped.Add(uint64(len(ds)))
		return
	}

	// The request context is cancelled once the response is written.
	detached := context.WithoutCancel(ctx)
	for _, d := range ds {
		d.ctx = detached
		select {
		case n.queue <- d:
		default:
			metrics.NotificationsDropped.Inc()
			log.Warn("notification queue full, event dropped",
				zap.String("topic", d.topic),
				zap.String("event", d.event),
			)
		}
	}
}

func (n *Notifier) run() {
	defer close(n.done)

	for d := range n.queue {
		n.deliver(d)
	}
}

func (n *Notifier) deliver(d delivery) {
	ctx, cancel := context.WithTimeout(d.ctx, publishTimeout)
	defer cancel()

	if err := n.pub.Publish(ctx, d.topic, d.event, d.payload); err != nil {
		metrics.NotificationsFailed.Inc()
		logger.FromCtx(ctx).Warn("failed to publish notification",
			zap.String("layer", "notify"),
			zap.String("topic", d.topic),
			zap.String("event", d.event),
			zap.Int64("order_id", d.payload.OrderID),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsSent.Inc()
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to end.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotifierClosed, ctx.Err())
	}
}
