package l1

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/models"
)

func newTestBigCache(t *testing.T) *BigCache {
	t.Helper()

	store, err := NewBigCache(&config.BigCacheConfig{
		Size:         10,
		LifeWindow:   time.Hour,
		MaxEntrySize: 1024,
	}, zap.NewNop())
	require.NoError(t, err)

	bc := store.(*BigCache)
	t.Cleanup(func() { _ = bc.Close() })
	return bc
}

func testEntry(url string) *models.CacheEntry {
	return &models.CacheEntry{
		Method:   "GET",
		URL:      url,
		Status:   http.StatusOK,
		Type:     models.ResponseTypeBasic,
		Header:   http.Header{"Content-Type": []string{"text/html"}},
		Body:     []byte("<html></html>"),
		StoredAt: time.Now().Unix(),
	}
}

func TestNewBigCache(t *testing.T) {
	logger := zap.NewNop()

	store, err := NewBigCache(&config.BigCacheConfig{Size: 10, LifeWindow: time.Hour, MaxEntrySize: 1024}, logger)

	assert.NoError(t, err)
	assert.NotNil(t, store)

	bigCache, ok := store.(*BigCache)
	assert.True(t, ok)
	assert.NotNil(t, bigCache.cache)
	assert.Equal(t, logger, bigCache.logger)
	assert.True(t, bigCache.metricsScheduler.IsRunning())
	assert.NoError(t, bigCache.Close())
	assert.False(t, bigCache.metricsScheduler.IsRunning())
}

func TestBigCache_Set_And_Get(t *testing.T) {
	cache := newTestBigCache(t)

	entry := testEntry("https://ppcloudmedia.example/index.html")
	require.NoError(t, cache.Set("v1", "GET:abc", entry))

	result, found := cache.Get("v1", "GET:abc")

	assert.True(t, found)
	require.NotNil(t, result)
	assert.Equal(t, entry.URL, result.URL)
	assert.Equal(t, entry.Body, result.Body)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, "text/html", result.Header.Get("Content-Type"))
}

func TestBigCache_Get_NotFound(t *testing.T) {
	cache := newTestBigCache(t)

	result, found := cache.Get("v1", "non-existent-key")

	assert.False(t, found)
	assert.Nil(t, result)
}

func TestBigCache_NamespacesAreIsolated(t *testing.T) {
	cache := newTestBigCache(t)

	require.NoError(t, cache.Set("v1", "GET:abc", testEntry("https://ppcloudmedia.example/")))

	_, found := cache.Get("v2", "GET:abc")
	assert.False(t, found)
}

func TestBigCache_Delete(t *testing.T) {
	cache := newTestBigCache(t)

	require.NoError(t, cache.Set("v1", "GET:abc", testEntry("https://ppcloudmedia.example/")))
	cache.Delete("v1", "GET:abc")

	_, found := cache.Get("v1", "GET:abc")
	assert.False(t, found)

	keys, err := cache.Keys("v1")
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBigCache_Delete_NonExistent(t *testing.T) {
	cache := newTestBigCache(t)

	// Should not panic
	cache.Delete("v1", "non-existent-key")
	cache.Delete("missing-namespace", "non-existent-key")
}

func TestBigCache_Keys(t *testing.T) {
	cache := newTestBigCache(t)

	for i := 3; i > 0; i-- {
		require.NoError(t, cache.Set("v1", fmt.Sprintf("GET:%d", i), testEntry(fmt.Sprintf("https://ppcloudmedia.example/%d", i))))
	}

	keys, err := cache.Keys("v1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"GET:1", "GET:2", "GET:3"}, keys)

	keys, err = cache.Keys("unknown")
	assert.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBigCache_NamespaceLifecycle(t *testing.T) {
	cache := newTestBigCache(t)

	require.NoError(t, cache.CreateNamespace("pp-cloud-media-v1.0.9"))
	require.NoError(t, cache.Set("pp-cloud-media-v1.0.10", "GET:abc", testEntry("https://ppcloudmedia.example/")))

	names, err := cache.Namespaces()
	assert.NoError(t, err)
	assert.Equal(t, []string{"pp-cloud-media-v1.0.10", "pp-cloud-media-v1.0.9"}, names)

	existed, err := cache.DropNamespace("pp-cloud-media-v1.0.10")
	assert.NoError(t, err)
	assert.True(t, existed)

	_, found := cache.Get("pp-cloud-media-v1.0.10", "GET:abc")
	assert.False(t, found)

	existed, err = cache.DropNamespace("pp-cloud-media-v1.0.10")
	assert.NoError(t, err)
	assert.False(t, existed)

	names, err = cache.Namespaces()
	assert.NoError(t, err)
	assert.Equal(t, []string{"pp-cloud-media-v1.0.9"}, names)
}

func TestBigCache_Set_EntryTooLarge(t *testing.T) {
	store, err := NewBigCache(&config.BigCacheConfig{Size: 1, LifeWindow: time.Hour, MaxEntrySize: 64}, zap.NewNop())
	require.NoError(t, err)
	defer store.(*BigCache).Close()

	entry := testEntry("https://ppcloudmedia.example/big")
	entry.Body = make([]byte, 2*1024*1024)

	assert.Error(t, store.Set("v1", "GET:big", entry))

	_, found := store.Get("v1", "GET:big")
	assert.False(t, found)
}

func TestBigCache_Concurrent_Access(t *testing.T) {
	cache := newTestBigCache(t)

	var wg sync.WaitGroup
	numGoroutines := 10
	numOperations := 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("GET:%d-%d", id, j)
				_ = cache.Set("v1", key, testEntry("https://ppcloudmedia.example/"+key))
				cache.Get("v1", key)
			}
		}(i)
	}

	wg.Wait()

	keys, err := cache.Keys("v1")
	assert.NoError(t, err)
	assert.Len(t, keys, numGoroutines*numOperations)
}
