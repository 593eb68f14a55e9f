package storage

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
)

// ErrUnsupportedMethod is returned when storing a response for a non-GET request
var ErrUnsupportedMethod = errors.New("only GET requests can be cached")

const metricsLevel = "storage"

// Ensure CacheStorage implements interfaces.CacheStorage
var _ interfaces.CacheStorage = (*CacheStorage)(nil)

// CacheStorage exposes the namespaces of a store as named request/response caches
type CacheStorage struct {
	store      interfaces.Store
	keyBuilder interfaces.KeyBuilder
	logger     *zap.Logger
	now        func() time.Time
}

// NewCacheStorage creates a new cache storage over store
func NewCacheStorage(store interfaces.Store, keyBuilder interfaces.KeyBuilder, logger *zap.Logger) *CacheStorage {
	return &CacheStorage{
		store:      store,
		keyBuilder: keyBuilder,
		logger:     logger,
		now:        time.Now,
	}
}

// Open returns the named cache, creating it if it does not exist
func (s *CacheStorage) Open(name string) (interfaces.Cache, error) {
	if name == "" {
		return nil, fmt.Errorf("cache name is empty")
	}
	if err := s.store.CreateNamespace(name); err != nil {
		return nil, fmt.Errorf("open cache %s: %w", name, err)
	}
	return &namespaceCache{name: name, storage: s}, nil
}

// Lookup returns the named cache only if it already exists
func (s *CacheStorage) Lookup(name string) (interfaces.Cache, bool) {
	if name == "" || !s.Has(name) {
		return nil, false
	}
	return &namespaceCache{name: name, storage: s}, true
}

// Has reports whether the named cache exists
func (s *CacheStorage) Has(name string) bool {
	names, err := s.store.Namespaces()
	if err != nil {
		s.logger.Warn("Failed to list cache namespaces", zap.Error(err))
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Delete removes the named cache and everything in it
func (s *CacheStorage) Delete(name string) (bool, error) {
	defer metrics.TimeCacheOperation("drop_namespace", metricsLevel)()
	return s.store.DropNamespace(name)
}

// Keys lists existing cache names
func (s *CacheStorage) Keys() ([]string, error) {
	names, err := s.store.Namespaces()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Match looks the request up in every cache, returning the first hit
func (s *CacheStorage) Match(req *models.Request) (*models.Response, bool) {
	names, err := s.Keys()
	if err != nil {
		s.logger.Warn("Failed to list cache namespaces", zap.Error(err))
		return nil, false
	}
	for _, name := range names {
		if resp, ok := s.match(name, req); ok {
			return resp, true
		}
	}
	return nil, false
}

func (s *CacheStorage) match(namespace string, req *models.Request) (*models.Response, bool) {
	key, err := s.keyBuilder.Build(req)
	if err != nil {
		s.logger.Debug("Cannot build cache key", zap.String("url", req.URL), zap.Error(err))
		return nil, false
	}

	defer metrics.TimeCacheOperation("match", metricsLevel)()

	entry, found := s.store.Get(namespace, key)
	if !found {
		metrics.RecordCacheMiss(metricsLevel)
		return nil, false
	}
	metrics.RecordCacheHit(metricsLevel)
	return entry.Response(), true
}

func (s *CacheStorage) put(namespace string, req *models.Request, resp *models.Response) error {
	if req.Method != http.MethodGet {
		return ErrUnsupportedMethod
	}

	key, err := s.keyBuilder.Build(req)
	if err != nil {
		return fmt.Errorf("build cache key: %w", err)
	}

	entry, err := resp.Entry(req.Method, s.now().Unix())
	if err != nil {
		return err
	}
	// Stored entries are keyed by the request, which may differ from the final response URL
	entry.URL = req.URL

	defer metrics.TimeCacheOperation("put", metricsLevel)()

	if err := s.store.Set(namespace, key, entry); err != nil {
		return fmt.Errorf("store %s: %w", req.URL, err)
	}
	return nil
}

// namespaceCache is one opened cache
type namespaceCache struct {
	name    string
	storage *CacheStorage
}

func (c *namespaceCache) Name() string {
	return c.name
}

func (c *namespaceCache) Match(req *models.Request) (*models.Response, bool) {
	return c.storage.match(c.name, req)
}

func (c *namespaceCache) Put(req *models.Request, resp *models.Response) error {
	return c.storage.put(c.name, req, resp)
}

func (c *namespaceCache) Delete(req *models.Request) bool {
	key, err := c.storage.keyBuilder.Build(req)
	if err != nil {
		return false
	}
	if _, found := c.storage.store.Get(c.name, key); !found {
		return false
	}
	c.storage.store.Delete(c.name, key)
	return true
}

// Keys lists the request URLs stored in the cache
func (c *namespaceCache) Keys() ([]string, error) {
	keys, err := c.storage.store.Keys(c.name)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		entry, found := c.storage.store.Get(c.name, key)
		if !found {
			continue
		}
		urls = append(urls, entry.URL)
	}
	sort.Strings(urls)
	return urls, nil
}
