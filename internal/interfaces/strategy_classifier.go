package interfaces

import (
	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=strategy_classifier.go -destination=mock/strategy_classifier.go

// StrategyClassifier decides how a request is mediated between network and cache
type StrategyClassifier interface {
	// Classify returns the fetch strategy for the request
	Classify(req *models.Request) models.Strategy
	// IsCrossOrigin reports whether the request targets a different origin than the site
	IsCrossOrigin(req *models.Request) bool
}
