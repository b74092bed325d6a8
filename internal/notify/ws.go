package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 1024
	subscriberSize = 32
)

const (
	ActionJoin  = "join"
	ActionLeave = "leave"

	EventJoined = "Joined"
	EventLeft   = "Left"
	EventError  = "Error"
)

var ErrTopicForbidden = errors.New("not allowed to join topic")

// OrderAccess decides who may observe a single order.
type OrderAccess interface {
	CanObserve(ctx context.Context, orderID, userID int64, isAdmin bool) (bool, error)
}

type clientFrame struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

type ackPayload struct {
	Message string `json:"message"`
}

// WSHandler upgrades authenticated requests to a WebSocket bound to the hub.
// Every connection starts subscribed to its owner's user topic.
type WSHandler struct {
	hub      *Hub
	orders   OrderAccess
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *Hub, orders OrderAccess, allowedOrigin string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		orders: orders,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		utils.WriteError(ctx, w, utils.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "ws"),
		zap.Int64("user_id", userID),
	)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := NewSubscriber(subscriberSize)
	h.hub.Subscribe(UserTopic(userID), sub)
	log.Info("websocket connected", zap.String("subscriber", sub.ID))

	replies := make(chan Message, 8)
	done := make(chan struct{})
	go h.writeLoop(conn, sub, replies, done)

	h.readLoop(ctx, conn, sub, replies, userID, utils.IsAdmin(ctx))

	close(done)
	h.hub.UnsubscribeAll(sub)
	conn.Close()
	log.Info("websocket disconnected", zap.String("subscriber", sub.ID))
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, sub *Subscriber, replies chan<- Message, userID int64, isAdmin bool) {
	log := logger.FromCtx(ctx).With(zap.String("layer", "ws"), zap.String("subscriber", sub.ID))

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		reply := h.handleFrame(ctx, sub, frame, userID, isAdmin)
		select {
		case replies <- reply:
		default:
			log.Warn("reply dropped", zap.String("event", reply.Event))
		}
	}
}

func (h *WSHandler) handleFrame(ctx context.Context, sub *Subscriber, f clientFrame, userID int64, isAdmin bool) Message {
	fail := func(msg string) Message {
		return Message{Topic: f.Topic, Event: EventError, Payload: ackPayload{Message: msg}}
	}

	switch f.Action {
	case ActionJoin:
		if err := h.authorize(ctx, f.Topic, userID, isAdmin); err != nil {
			return fail(err.Error())
		}
		h.hub.Subscribe(f.Topic, sub)
		return Message{Topic: f.Topic, Event: EventJoined, Payload: ackPayload{Message: "joined " + f.Topic}}
	case ActionLeave:
		h.hub.Unsubscribe(f.Topic, sub)
		return Message{Topic: f.Topic, Event: EventLeft, Payload: ackPayload{Message: "left " + f.Topic}}
	default:
		return fail("unknown action")
	}
}

func (h *WSHandler) authorize(ctx context.Context, topic string, userID int64, isAdmin bool) error {
	kind, id, err := ParseTopic(topic)
	if err != nil {
		return err
	}

	switch kind {
	case TopicAdmin:
		if !isAdmin {
			return ErrTopicForbidden
		}
	case TopicUser:
		if id != userID && !isAdmin {
			return ErrTopicForbidden
		}
	case TopicOrder:
		ok, err := h.orders.CanObserve(ctx, id, userID, isAdmin)
		if err != nil {
			logger.FromCtx(ctx).Error("order access check failed",
				zap.String("layer", "ws"),
				zap.Int64("order_id", id),
				zap.Error(err),
			)
			return errors.New("order access check failed")
		}
		if !ok {
			return ErrTopicForbidden
		}
	}
	return nil
}

// writeLoop is the only goroutine that writes to conn.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *Subscriber, replies <-chan Message, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg Message) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	for {
		var err error
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-sub.Messages():
			err = write(msg)
		case msg := <-replies:
			err = write(msg)
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			// Unblocks the read loop.
			conn.Close()
			return
		}
	}
}
