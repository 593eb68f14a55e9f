package l1

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/scheduler"
)

// Ensure BigCache implements interfaces.Store
var _ interfaces.Store = (*BigCache)(nil)

const keySeparator = "\x00"

// BigCache implements the L1 store using BigCache. BigCache is a flat
// key space, so namespace membership is tracked alongside it.
type BigCache struct {
	cache            *bigcache.BigCache
	logger           *zap.Logger
	metricsScheduler *scheduler.Scheduler

	mu         sync.RWMutex
	namespaces map[string]map[string]struct{}
}

// NewBigCache creates a new BigCache instance
func NewBigCache(bigcacheCfg *config.BigCacheConfig, logger *zap.Logger) (interfaces.Store, error) {
	cfg := bigcache.DefaultConfig(bigcacheCfg.LifeWindow)
	cfg.HardMaxCacheSize = bigcacheCfg.Size // Size in MB
	cfg.MaxEntrySize = bigcacheCfg.MaxEntrySize
	// No background sweep; entries older than life_window are evicted as new ones arrive
	cfg.CleanWindow = 0
	cfg.Shards = 16 // keeps each shard large enough for page assets
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	bc := &BigCache{
		cache:      cache,
		logger:     logger,
		namespaces: make(map[string]map[string]struct{}),
	}

	// Start periodic metrics collection
	bc.startMetricsCollection()

	return bc, nil
}

func entryKey(namespace, key string) string {
	return namespace + keySeparator + key
}

// Get retrieves an entry from the namespace
func (bc *BigCache) Get(namespace, key string) (*models.CacheEntry, bool) {
	bc.mu.RLock()
	_, ok := bc.namespaces[namespace]
	bc.mu.RUnlock()
	if !ok {
		return nil, false
	}

	data, err := bc.cache.Get(entryKey(namespace, key))
	if err != nil {
		if !errors.Is(err, bigcache.ErrEntryNotFound) {
			metrics.RecordCacheError("l1", "upstream")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "decode")
		bc.Delete(namespace, key) // Remove corrupted entry
		return nil, false
	}

	return &entry, true
}

// Set stores an entry in the namespace, creating the namespace if needed
func (bc *BigCache) Set(namespace, key string, entry *models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to marshal cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "encode")
		return err
	}

	if err := bc.cache.Set(entryKey(namespace, key), data); err != nil {
		bc.logger.Error("Failed to set cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "upstream")
		return err
	}

	bc.mu.Lock()
	keys, ok := bc.namespaces[namespace]
	if !ok {
		keys = make(map[string]struct{})
		bc.namespaces[namespace] = keys
	}
	keys[key] = struct{}{}
	bc.mu.Unlock()

	return nil
}

// Delete removes an entry from the namespace
func (bc *BigCache) Delete(namespace, key string) {
	_ = bc.cache.Delete(entryKey(namespace, key))

	bc.mu.Lock()
	if keys, ok := bc.namespaces[namespace]; ok {
		delete(keys, key)
	}
	bc.mu.Unlock()
}

// Keys lists the keys held in the namespace. Entries BigCache evicted on
// its own are pruned from the registry on the way.
func (bc *BigCache) Keys(namespace string) ([]string, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	registered, ok := bc.namespaces[namespace]
	if !ok {
		return nil, nil
	}

	keys := make([]string, 0, len(registered))
	for key := range registered {
		if _, err := bc.cache.Get(entryKey(namespace, key)); err != nil {
			delete(registered, key)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// CreateNamespace registers an empty namespace
func (bc *BigCache) CreateNamespace(namespace string) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	if _, ok := bc.namespaces[namespace]; !ok {
		bc.namespaces[namespace] = make(map[string]struct{})
	}
	return nil
}

// Namespaces lists registered namespaces
func (bc *BigCache) Namespaces() ([]string, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()

	names := make([]string, 0, len(bc.namespaces))
	for name := range bc.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DropNamespace removes the namespace and every entry in it
func (bc *BigCache) DropNamespace(namespace string) (bool, error) {
	bc.mu.Lock()
	keys, ok := bc.namespaces[namespace]
	delete(bc.namespaces, namespace)
	bc.mu.Unlock()

	if !ok {
		return false, nil
	}

	for key := range keys {
		_ = bc.cache.Delete(entryKey(namespace, key))
	}
	return true, nil
}

// Close closes the cache
func (bc *BigCache) Close() error {
	// Stop metrics collection
	bc.stopMetricsCollection()

	return bc.cache.Close()
}

// GetStats returns cache statistics for metrics
func (bc *BigCache) GetStats() (capacity, entries int64) {
	return int64(bc.cache.Capacity()), int64(bc.cache.Len())
}

// startMetricsCollection starts periodic metrics collection
func (bc *BigCache) startMetricsCollection() {
	bc.metricsScheduler = scheduler.New(30*time.Second, func(context.Context) {
		bc.updateMetrics()
	})
	bc.metricsScheduler.Start()

	// Initial collection
	bc.updateMetrics()

	bc.logger.Debug("Started L1 cache metrics collection")
}

// stopMetricsCollection stops periodic metrics collection
func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsScheduler != nil {
		bc.metricsScheduler.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

// updateMetrics updates cache metrics
func (bc *BigCache) updateMetrics() {
	capacity, entries := bc.GetStats()
	metrics.UpdateL1CacheCapacity(capacity)
	metrics.UpdateCacheKeys("l1", entries)
}
