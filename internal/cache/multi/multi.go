package multi

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
)

// Ensure MultiStore implements interfaces.Store
var _ interfaces.Store = (*MultiStore)(nil)

// MultiStore layers several stores, fastest first.
// Reads stop at the first level holding the key; writes go to every level.
type MultiStore struct {
	stores            []interfaces.Store
	logger            *zap.Logger
	enablePropagation bool
}

// NewMultiStore creates a new MultiStore over the given levels
func NewMultiStore(stores []interfaces.Store, logger *zap.Logger, enablePropagation bool) interfaces.Store {
	return &MultiStore{
		stores:            stores,
		logger:            logger,
		enablePropagation: enablePropagation,
	}
}

// Get retrieves the entry from the first level that has it.
// With propagation enabled, a hit on a slower level is copied into the faster ones.
func (ms *MultiStore) Get(namespace, key string) (*models.CacheEntry, bool) {
	if len(ms.stores) == 0 {
		ms.logger.Warn("No stores available for get operation", zap.String("key", key))
		return nil, false
	}

	for i, store := range ms.stores {
		entry, found := store.Get(namespace, key)
		if !found {
			continue
		}
		if ms.enablePropagation && i > 0 {
			ms.propagate(namespace, key, entry, i)
		}
		return entry, true
	}
	return nil, false
}

func (ms *MultiStore) propagate(namespace, key string, entry *models.CacheEntry, hitLevel int) {
	for j := 0; j < hitLevel; j++ {
		if err := ms.stores[j].Set(namespace, key, entry); err != nil {
			ms.logger.Debug("Failed to propagate entry to faster level",
				zap.String("key", key),
				zap.Int("level", j),
				zap.Error(err))
		}
	}
}

// Set stores the entry in every level. It fails only when no level accepted it.
func (ms *MultiStore) Set(namespace, key string, entry *models.CacheEntry) error {
	if len(ms.stores) == 0 {
		ms.logger.Warn("No stores available for set operation", zap.String("key", key))
		return nil
	}

	var errs []error
	for i, store := range ms.stores {
		if err := store.Set(namespace, key, entry); err != nil {
			ms.logger.Warn("Failed to store entry",
				zap.String("key", key),
				zap.Int("level", i),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(ms.stores) {
		return fmt.Errorf("all cache levels rejected entry: %w", errors.Join(errs...))
	}
	return nil
}

// Delete removes the entry from every level
func (ms *MultiStore) Delete(namespace, key string) {
	for _, store := range ms.stores {
		store.Delete(namespace, key)
	}
}

// Keys returns the union of keys across levels
func (ms *MultiStore) Keys(namespace string) ([]string, error) {
	return ms.union(func(s interfaces.Store) ([]string, error) { return s.Keys(namespace) })
}

// CreateNamespace registers the namespace on every level
func (ms *MultiStore) CreateNamespace(namespace string) error {
	var errs []error
	for _, store := range ms.stores {
		if err := store.CreateNamespace(namespace); err != nil {
			errs = append(errs, err)
		}
	}
	if len(ms.stores) > 0 && len(errs) == len(ms.stores) {
		return fmt.Errorf("create namespace %s: %w", namespace, errors.Join(errs...))
	}
	return nil
}

// Namespaces returns the union of namespaces across levels
func (ms *MultiStore) Namespaces() ([]string, error) {
	return ms.union(func(s interfaces.Store) ([]string, error) { return s.Namespaces() })
}

// DropNamespace drops the namespace from every level.
// It reports true when at least one level held it.
func (ms *MultiStore) DropNamespace(namespace string) (bool, error) {
	var dropped bool
	var errs []error
	for _, store := range ms.stores {
		ok, err := store.DropNamespace(namespace)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dropped = dropped || ok
	}
	return dropped, errors.Join(errs...)
}

// GetStoreCount returns the number of levels
func (ms *MultiStore) GetStoreCount() int {
	return len(ms.stores)
}

func (ms *MultiStore) union(list func(interfaces.Store) ([]string, error)) ([]string, error) {
	seen := make(map[string]struct{})
	var errs []error
	for _, store := range ms.stores {
		items, err := list(store)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, item := range items {
			seen[item] = struct{}{}
		}
	}
	if len(ms.stores) > 0 && len(errs) == len(ms.stores) {
		return nil, errors.Join(errs...)
	}

	out := make([]string, 0, len(seen))
	for item := range seen {
		out = append(out, item)
	}
	sort.Strings(out)
	return out, nil
}
