package interfaces

import (
	"context"

	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=fetcher.go -destination=mock/fetcher.go

// Fetcher performs network fetches. An error means the network was
// unreachable; HTTP error statuses come back as responses.
type Fetcher interface {
	Fetch(ctx context.Context, req *models.Request) (*models.Response, error)
}
