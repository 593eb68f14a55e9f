package offline

import (
	"context"
	"fmt"

	"go-offline-cache/internal/models"
)

// Handler reacts to one event on behalf of a manager. Only fetch handlers produce a response.
type Handler func(ctx context.Context, m *Manager, ev models.Event) (*models.Response, error)

var handlers = map[models.EventKind]Handler{
	models.EventInstall: func(ctx context.Context, m *Manager, _ models.Event) (*models.Response, error) {
		return nil, m.Install(ctx)
	},
	models.EventActivate: func(ctx context.Context, m *Manager, _ models.Event) (*models.Response, error) {
		return nil, m.Activate(ctx)
	},
	models.EventFetch: func(ctx context.Context, m *Manager, ev models.Event) (*models.Response, error) {
		return m.HandleFetch(ctx, ev.Request)
	},
	models.EventSync: func(ctx context.Context, m *Manager, ev models.Event) (*models.Response, error) {
		return nil, m.Sync(ctx, ev.Tag)
	},
	models.EventPush: func(ctx context.Context, m *Manager, ev models.Event) (*models.Response, error) {
		return nil, m.Push(ctx, ev.Payload)
	},
}

// Dispatch routes an event to its handler
func (m *Manager) Dispatch(ctx context.Context, ev models.Event) (*models.Response, error) {
	handler, ok := handlers[ev.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	return handler(ctx, m, ev)
}
