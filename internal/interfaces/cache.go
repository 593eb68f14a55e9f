package interfaces

import (
	"go-offline-cache/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Store is one storage level holding namespaced cache entries
type Store interface {
	Get(namespace, key string) (*models.CacheEntry, bool) // returns entry and found flag
	Set(namespace, key string, entry *models.CacheEntry) error
	Delete(namespace, key string)
	Keys(namespace string) ([]string, error)

	CreateNamespace(namespace string) error
	Namespaces() ([]string, error)
	DropNamespace(namespace string) (bool, error) // returns whether the namespace existed
}

// Cache is a single opened cache namespace
type Cache interface {
	Name() string
	Match(req *models.Request) (*models.Response, bool)
	// Put stores the response under req. It consumes resp, so callers that
	// still need the response must pass a clone.
	Put(req *models.Request, resp *models.Response) error
	Delete(req *models.Request) bool
	Keys() ([]string, error) // request URLs
}

// CacheStorage manages the set of cache namespaces
type CacheStorage interface {
	Open(name string) (Cache, error)  // creates the namespace when missing
	Lookup(name string) (Cache, bool) // never creates
	Has(name string) bool
	Delete(name string) (bool, error)
	Keys() ([]string, error)
	Match(req *models.Request) (*models.Response, bool) // searches every namespace
}
