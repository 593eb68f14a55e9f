package interfaces

import (
	"context"

	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=notifier.go -destination=mock/notifier.go

// Notifier surfaces user-visible notifications
type Notifier interface {
	ShowNotification(ctx context.Context, n models.Notification) error
}

// ControllerPublisher tells connected pages that a new cache generation took control
type ControllerPublisher interface {
	PublishControllerChange(namespace string)
}
