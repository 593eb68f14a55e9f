package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"go-offline-cache/internal/models"
)

// Reloader follows the events stream of a page and reloads it when a new
// cache generation takes control. A page reloads at most once.
type Reloader struct {
	eventsURL string
	reload    func()
	logger    *zap.Logger

	mu             sync.RWMutex
	onNotification func(models.Notification)

	refreshing atomic.Bool
}

// NewReloader creates a reloader for the events stream at eventsURL
func NewReloader(eventsURL string, reload func(), logger *zap.Logger) *Reloader {
	return &Reloader{
		eventsURL: eventsURL,
		reload:    reload,
		logger:    logger,
	}
}

// OnNotification sets a callback for notification frames
func (r *Reloader) OnNotification(fn func(models.Notification)) {
	r.mu.Lock()
	r.onNotification = fn
	r.mu.Unlock()
}

// Reloaded reports whether the reload has been triggered
func (r *Reloader) Reloaded() bool {
	return r.refreshing.Load()
}

// HandleMessage reacts to one events stream frame
func (r *Reloader) HandleMessage(msg models.Message) {
	switch msg.Type {
	case models.MessageControllerChange:
		if !r.refreshing.CompareAndSwap(false, true) {
			return
		}
		r.logger.Info("Controller changed, reloading", zap.String("namespace", msg.Namespace))
		if r.reload != nil {
			r.reload()
		}
	case models.MessageNotification:
		r.mu.RLock()
		fn := r.onNotification
		r.mu.RUnlock()
		if fn != nil && msg.Notification != nil {
			fn(*msg.Notification)
		}
	default:
		r.logger.Debug("Ignoring unknown message", zap.String("type", string(msg.Type)))
	}
}

// Run reads the events stream until ctx is done or the connection closes
func (r *Reloader) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, r.eventsURL, nil)
	if err != nil {
		return fmt.Errorf("dial events stream: %w", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "closing") }()

	for {
		var msg models.Message
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read events stream: %w", err)
		}
		r.HandleMessage(msg)
	}
}
