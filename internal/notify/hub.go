package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

const (
	defaultHistorySize = 50
	subscriberBuffer   = 16
	writeTimeout       = 5 * time.Second
)

var (
	_ interfaces.Notifier            = (*Hub)(nil)
	_ interfaces.ControllerPublisher = (*Hub)(nil)
)

// Hub displays notifications to connected pages and relays controller changes
type Hub struct {
	logger      *zap.Logger
	historySize int
	now         func() time.Time

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	recent      []models.Notification
}

type subscriber struct {
	msgs chan models.Message
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.msgs) })
}

// NewHub creates a hub keeping up to historySize recent notifications
func NewHub(historySize int, logger *zap.Logger) *Hub {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	return &Hub{
		logger:      logger,
		historySize: historySize,
		now:         time.Now,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// ShowNotification records the notification and broadcasts it to every subscriber
func (h *Hub) ShowNotification(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Title == "" {
		return errors.New("notification title is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now()
	}

	h.mu.Lock()
	h.recent = append(h.recent, n)
	if over := len(h.recent) - h.historySize; over > 0 {
		h.recent = append([]models.Notification(nil), h.recent[over:]...)
	}
	h.mu.Unlock()

	h.logger.Info("Notification shown",
		zap.String("id", n.ID),
		zap.String("title", n.Title),
		zap.String("body", n.Body))

	h.broadcast(models.Message{Type: models.MessageNotification, Notification: &n})
	return nil
}

// PublishControllerChange tells pages that a new cache generation took control
func (h *Hub) PublishControllerChange(namespace string) {
	h.logger.Info("Publishing controller change", zap.String("namespace", namespace))
	h.broadcast(models.Message{Type: models.MessageControllerChange, Namespace: namespace})
}

// Recent returns the most recent notifications, oldest first
func (h *Hub) Recent() []models.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.Notification, len(h.recent))
	copy(out, h.recent)
	return out
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Subscribe registers a message receiver. The channel is closed when the
// subscriber falls behind or cancel is called.
func (h *Hub) Subscribe() (<-chan models.Message, func()) {
	s := &subscriber{msgs: make(chan models.Message, subscriberBuffer)}

	h.mu.Lock()
	h.subscribers[s] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subscribers, s)
		h.mu.Unlock()
		s.close()
	}
	return s.msgs, cancel
}

func (h *Hub) broadcast(msg models.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subscribers {
		select {
		case s.msgs <- msg:
		default:
			h.logger.Warn("Dropping slow subscriber", zap.String("type", string(msg.Type)))
			delete(h.subscribers, s)
			s.close()
		}
	}
}

// ServeHTTP streams hub messages to a page over a websocket
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket accept failed", zap.Error(err))
		return
	}
	status, reason := websocket.StatusInternalError, ""
	defer func() { _ = conn.Close(status, reason) }()

	msgs, cancel := h.Subscribe()
	defer cancel()

	// Pages never send; CloseRead handles control frames and reports disconnects
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			status, reason = websocket.StatusNormalClosure, ""
			return
		case msg, ok := <-msgs:
			if !ok {
				status, reason = websocket.StatusPolicyViolation, "subscriber too slow"
				return
			}
			if err := writeMessage(ctx, conn, msg); err != nil {
				h.logger.Debug("Websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
