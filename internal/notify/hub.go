package notify

import (
	"context"
	"sync"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Publisher delivers one event to every subscriber of topic.
type Publisher interface {
	Publish(ctx context.Context, topic, event string, payload any) error
}

type Subscriber struct {
	ID string
	ch chan Message
}

func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	return &Subscriber{
		ID: uuid.NewString(),
		ch: make(chan Message, buffer),
	}
}

func (s *Subscriber) Messages() <-chan Message {
	return s.ch
}

// Hub is the in-process topic registry. Slow subscribers lose messages
// instead of stalling the publisher.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*Subscriber
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[string]*Subscriber)}
}

func (h *Hub) Subscribe(topic string, s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]*Subscriber)
		h.topics[topic] = subs
	}
	subs[s.ID] = s
}

func (h *Hub) Unsubscribe(topic string, s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(topic, s)
}

// UnsubscribeAll drops s from every topic, typically on disconnect.
func (h *Hub) UnsubscribeAll(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for topic := range h.topics {
		h.remove(topic, s)
	}
}

func (h *Hub) remove(topic string, s *Subscriber) {
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, s.ID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) Publish(ctx context.Context, topic, event string, payload any) error {
	msg := Message{Topic: topic, Event: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, s := range h.topics[topic] {
		select {
		case s.ch <- msg:
		default:
			metrics.NotificationsDropped.Inc()
			logger.FromCtx(ctx).Warn("subscriber buffer full, message dropped",
				zap.String("layer", "notify"),
				zap.String("topic", topic),
				zap.String("event", event),
				zap.String("subscriber", s.ID),
			)
		}
	}
	return nil
}
