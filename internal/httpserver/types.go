package httpserver

import (
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/offline"
)

// SyncRequest triggers a background sync
type SyncRequest struct {
	Tag string `json:"tag"`
}

// StatusResponse describes the controlling cache generation
type StatusResponse struct {
	Success       bool                  `json:"success"`
	Status        offline.Status        `json:"status"`
	Notifications []models.Notification `json:"notifications"`
}

// NamespacesResponse lists enumerable cache namespaces
type NamespacesResponse struct {
	Success    bool     `json:"success"`
	Namespaces []string `json:"namespaces"`
}

// UpdateResponse reports the result of an update check
type UpdateResponse struct {
	Success   bool   `json:"success"`
	Changed   bool   `json:"changed"`
	Namespace string `json:"namespace,omitempty"`
}

// EventResponse acknowledges a dispatched event
type EventResponse struct {
	Success bool   `json:"success"`
	Event   string `json:"event"`
}
