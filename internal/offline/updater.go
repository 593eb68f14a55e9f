package offline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/models"
	"go-offline-cache/internal/scheduler"
)

// GenerationSource returns the generation that should be in control
type GenerationSource func() (models.Generation, error)

// Updater periodically checks for a new generation
type Updater struct {
	registration *Registration
	source       GenerationSource
	scheduler    *scheduler.Scheduler
	logger       *zap.Logger
}

// NewUpdater creates an updater checking every interval; a non-positive interval disables periodic checks
func NewUpdater(registration *Registration, source GenerationSource, interval time.Duration, logger *zap.Logger) *Updater {
	u := &Updater{
		registration: registration,
		source:       source,
		logger:       logger,
	}
	u.scheduler = scheduler.New(interval, func(ctx context.Context) {
		if _, err := u.Check(ctx); err != nil {
			u.logger.Warn("Update check failed", zap.Error(err))
		}
	})
	return u
}

// Start begins periodic checks
func (u *Updater) Start() {
	u.scheduler.Start()
}

// Stop ends periodic checks
func (u *Updater) Stop() {
	u.scheduler.Stop()
}

// Check loads the current generation and updates the registration.
// It reports whether control changed.
func (u *Updater) Check(ctx context.Context) (bool, error) {
	gen, err := u.source()
	if err != nil {
		return false, err
	}
	return u.registration.Update(ctx, gen)
}
