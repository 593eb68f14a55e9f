package offline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// ManagerFactory builds the manager for a generation
type ManagerFactory func(gen models.Generation) *Manager

// Status describes the active generation
type Status struct {
	State        models.WorkerState `json:"state"`
	Namespace    string             `json:"namespace,omitempty"`
	ManifestSize int                `json:"manifest_size"`
	Restored     bool               `json:"restored,omitempty"`
}

// Registration holds the manager currently in control and swaps in new
// generations when they install successfully.
type Registration struct {
	factory   ManagerFactory
	fetcher   interfaces.Fetcher
	publisher interfaces.ControllerPublisher
	logger    *zap.Logger

	mu         sync.Mutex
	controller atomic.Pointer[Manager]
}

// NewRegistration creates an empty registration. Until a generation is
// registered requests go straight to fetcher.
func NewRegistration(factory ManagerFactory, fetcher interfaces.Fetcher, publisher interfaces.ControllerPublisher, logger *zap.Logger) *Registration {
	return &Registration{
		factory:   factory,
		fetcher:   fetcher,
		publisher: publisher,
		logger:    logger,
	}
}

// Controller returns the manager in control, or nil
func (r *Registration) Controller() *Manager {
	return r.controller.Load()
}

// PrecachesHost reports whether the controlling generation precaches from host
func (r *Registration) PrecachesHost(host string) bool {
	m := r.controller.Load()
	return m != nil && m.PrecachesHost(host)
}

// Status reports the controlling generation
func (r *Registration) Status() Status {
	m := r.controller.Load()
	if m == nil {
		return Status{State: models.StateParsed}
	}
	return Status{
		State:        m.State(),
		Namespace:    m.Namespace(),
		ManifestSize: len(m.generation.Manifest),
		Restored:     m.Restored(),
	}
}

// Register installs and activates the first generation. When the install
// fails but an earlier run persisted the complete namespace, that namespace
// takes control and the next Update retries the install.
func (r *Registration) Register(ctx context.Context, gen models.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.controller.Load() != nil {
		return fmt.Errorf("%w: already registered", ErrInvalidTransition)
	}

	m, err := r.installAndActivate(ctx, gen)
	if err != nil {
		restored := r.factory(gen)
		if restoreErr := restored.Restore(); restoreErr != nil {
			r.logger.Debug("Nothing to restore", zap.String("namespace", gen.Namespace()), zap.Error(restoreErr))
			return err
		}
		r.controller.Store(restored)
		r.logger.Warn("Install failed, serving persisted cache generation",
			zap.String("namespace", restored.Namespace()),
			zap.Error(err))
		return nil
	}
	r.controller.Store(m)
	r.logger.Info("Registered cache generation", zap.String("namespace", m.Namespace()))
	return nil
}

// Update installs gen when it differs from the controlling generation. On
// failure the current generation keeps control. It reports whether control changed.
func (r *Registration) Update(ctx context.Context, gen models.Generation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.controller.Load()
	sameGeneration := current != nil && current.Namespace() == gen.Namespace() && current.generation.SameManifest(gen)
	if sameGeneration && !current.Restored() {
		r.logger.Debug("Cache generation unchanged", zap.String("namespace", gen.Namespace()))
		return false, nil
	}

	m, err := r.installAndActivate(ctx, gen)
	if err != nil {
		if current != nil {
			r.logger.Warn("Update failed, keeping current generation",
				zap.String("current", current.Namespace()),
				zap.String("candidate", gen.Namespace()),
				zap.Error(err))
		}
		return false, err
	}

	r.controller.Store(m)
	if current != nil {
		current.retire()
	}
	if sameGeneration {
		// Reinstalled over the restored copy; pages already run this generation
		r.logger.Info("Restored cache generation reinstalled", zap.String("namespace", m.Namespace()))
		return true, nil
	}
	metrics.RecordLifecycleEvent("controllerchange", "success")
	r.publisher.PublishControllerChange(m.Namespace())
	r.logger.Info("Cache generation took control", zap.String("namespace", m.Namespace()))
	return true, nil
}

func (r *Registration) installAndActivate(ctx context.Context, gen models.Generation) (*Manager, error) {
	m := r.factory(gen)
	if err := m.Install(ctx); err != nil {
		return nil, err
	}
	if err := m.Activate(ctx); err != nil {
		m.retire()
		return nil, err
	}
	return m, nil
}

// HandleFetch routes a request through the controlling manager
func (r *Registration) HandleFetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	m := r.controller.Load()
	if m == nil {
		resp, err := r.fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
		}
		return resp, nil
	}
	return m.HandleFetch(ctx, req)
}

// Dispatch delivers a functional event to the controlling manager
func (r *Registration) Dispatch(ctx context.Context, ev models.Event) (*models.Response, error) {
	if ev.Kind == models.EventFetch {
		return r.HandleFetch(ctx, ev.Request)
	}
	m := r.controller.Load()
	if m == nil {
		return nil, ErrNoController
	}
	return m.Dispatch(ctx, ev)
}
