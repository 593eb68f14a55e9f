package l2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// Ensure KeyDBCache implements interfaces.Store
var _ interfaces.Store = (*KeyDBCache)(nil)

// KeyDBCache implements the L2 store using Redis/KeyDB. Each namespace is
// a hash keyed by cache key; a set records which namespaces exist.
type KeyDBCache struct {
	client interfaces.KeyDbClient
	config *config.KeyDBConfig
	logger *zap.Logger
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *config.KeyDBConfig, client interfaces.KeyDbClient, logger *zap.Logger) interfaces.Store {
	return &KeyDBCache{
		client: client,
		config: cfg,
		logger: logger,
	}
}

func (kc *KeyDBCache) registryKey() string {
	return fmt.Sprintf("%s:namespaces", kc.config.Prefix)
}

func (kc *KeyDBCache) namespaceKey(namespace string) string {
	return fmt.Sprintf("%s:ns:%s", kc.config.Prefix, namespace)
}

// Get retrieves an entry from the namespace hash
func (kc *KeyDBCache) Get(namespace, key string) (*models.CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	data, err := kc.client.HGet(ctx, kc.namespaceKey(namespace), key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			kc.logger.Error("L2 cache get error", zap.String("namespace", namespace), zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("l2", "upstream")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		kc.logger.Error("Failed to unmarshal L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "decode")
		kc.Delete(namespace, key)
		return nil, false
	}

	return &entry, true
}

// Set stores an entry in the namespace hash and registers the namespace
func (kc *KeyDBCache) Set(namespace, key string, entry *models.CacheEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		kc.logger.Error("Failed to marshal L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "encode")
		return err
	}

	if err := kc.client.SAdd(ctx, kc.registryKey(), namespace).Err(); err != nil {
		kc.logger.Error("Failed to register L2 namespace", zap.String("namespace", namespace), zap.Error(err))
		metrics.RecordCacheError("l2", "upstream")
		return err
	}

	if err := kc.client.HSet(ctx, kc.namespaceKey(namespace), key, data).Err(); err != nil {
		kc.logger.Error("Failed to set L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "upstream")
		return err
	}

	return nil
}

// Delete removes an entry from the namespace hash
func (kc *KeyDBCache) Delete(namespace, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.HDel(ctx, kc.namespaceKey(namespace), key).Err(); err != nil {
		kc.logger.Error("Failed to delete L2 cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Keys lists the keys held in the namespace hash
func (kc *KeyDBCache) Keys(namespace string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	keys, err := kc.client.HKeys(ctx, kc.namespaceKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list L2 keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// CreateNamespace registers an empty namespace
func (kc *KeyDBCache) CreateNamespace(namespace string) error {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	if err := kc.client.SAdd(ctx, kc.registryKey(), namespace).Err(); err != nil {
		return fmt.Errorf("failed to register L2 namespace: %w", err)
	}
	return nil
}

// Namespaces lists registered namespaces
func (kc *KeyDBCache) Namespaces() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetReadTimeout())
	defer cancel()

	names, err := kc.client.SMembers(ctx, kc.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list L2 namespaces: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// DropNamespace deletes the namespace hash and unregisters it
func (kc *KeyDBCache) DropNamespace(namespace string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.GetSendTimeout())
	defer cancel()

	removed, err := kc.client.SRem(ctx, kc.registryKey(), namespace).Result()
	if err != nil {
		return false, fmt.Errorf("failed to unregister L2 namespace: %w", err)
	}

	if err := kc.client.Del(ctx, kc.namespaceKey(namespace)).Err(); err != nil {
		return removed > 0, fmt.Errorf("failed to delete L2 namespace: %w", err)
	}

	return removed > 0, nil
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}
