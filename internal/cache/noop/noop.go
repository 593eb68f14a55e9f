package noop

import (
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

// Ensure NoOpStore implements interfaces.Store
var _ interfaces.Store = (*NoOpStore)(nil)

// NoOpStore is a store that keeps nothing, used when every cache level is disabled
type NoOpStore struct{}

// NewNoOpStore creates a new no-operation store instance
func NewNoOpStore() interfaces.Store {
	return &NoOpStore{}
}

// Get always returns cache miss
func (n *NoOpStore) Get(namespace, key string) (*models.CacheEntry, bool) {
	return nil, false
}

// Set discards the entry
func (n *NoOpStore) Set(namespace, key string, entry *models.CacheEntry) error {
	return nil
}

// Delete does nothing
func (n *NoOpStore) Delete(namespace, key string) {}

// Keys always returns an empty list
func (n *NoOpStore) Keys(namespace string) ([]string, error) {
	return nil, nil
}

// CreateNamespace does nothing
func (n *NoOpStore) CreateNamespace(namespace string) error {
	return nil
}

// Namespaces always returns an empty list
func (n *NoOpStore) Namespaces() ([]string, error) {
	return nil, nil
}

// DropNamespace reports that nothing was dropped
func (n *NoOpStore) DropNamespace(namespace string) (bool, error) {
	return false, nil
}
