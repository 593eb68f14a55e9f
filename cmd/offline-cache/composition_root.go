package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/cache/durable"
	"go-offline-cache/internal/cache/l1"
	"go-offline-cache/internal/cache/l2"
	"go-offline-cache/internal/cache/multi"
	"go-offline-cache/internal/cache/noop"
	"go-offline-cache/internal/cache/storage"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/fetch"
	"go-offline-cache/internal/httpserver"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/notify"
	"go-offline-cache/internal/offline"
	"go-offline-cache/internal/strategy"
)

// CompositionRoot holds all application dependencies and wires them
// together in one place.
type CompositionRoot struct {
	// Configuration
	Env        *config.EnvOverrides
	ConfigPath string
	Config     *config.Config
	Logger     *zap.Logger
	Origin     *url.URL
	Classifier interfaces.StrategyClassifier

	// Cache components
	Stores     []interfaces.Store
	Store      interfaces.Store
	KeyBuilder interfaces.KeyBuilder
	Storage    *storage.CacheStorage

	// Services
	Fetcher      *fetch.HTTPFetcher
	Hub          *notify.Hub
	Registration *offline.Registration
	Updater      *offline.Updater
	HTTPServer   *httpserver.Server
}

// NewCompositionRoot creates and initializes all application dependencies.
//
// Initialization order:
// 1. Logger (needed by all other components)
// 2. Environment and configuration
// 3. Strategy rules
// 4. Stores (L1, L2, durable) and cache storage
// 5. Services (fetcher, notification hub, registration, updater)
// 6. HTTP Server (uses all above components)
func NewCompositionRoot(configPath string, logger *zap.Logger) (*CompositionRoot, error) {
	root := &CompositionRoot{Logger: logger}

	if err := root.loadConfig(configPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := root.loadRules(); err != nil {
		return nil, fmt.Errorf("failed to load strategy rules: %w", err)
	}

	if err := root.initCacheComponents(); err != nil {
		_ = root.Cleanup()
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	if err := root.initServices(); err != nil {
		_ = root.Cleanup()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := root.initHTTPServer(); err != nil {
		_ = root.Cleanup()
		return nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return root, nil
}

// newLogger builds the production logger, or a development one when verbose
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig loads the application configuration. An empty path falls
// back to OFFLINE_CACHE_CONFIG_FILE.
func (r *CompositionRoot) loadConfig(configPath string) error {
	overrides, err := config.LoadEnv()
	if err != nil {
		return err
	}
	r.Env = overrides

	if configPath == "" {
		configPath = overrides.ConfigFile
	}
	r.ConfigPath = configPath

	cfg, err := config.LoadConfig(configPath, overrides, r.Logger)
	if err != nil {
		return err
	}
	r.Config = cfg

	origin, err := url.Parse(cfg.Site.Origin)
	if err != nil {
		return fmt.Errorf("invalid site origin: %w", err)
	}
	r.Origin = origin
	return nil
}

// loadRules loads strategy rules and builds the classifier
func (r *CompositionRoot) loadRules() error {
	rules, err := strategy.LoadRules(r.Env.RulesFile, r.Logger)
	if err != nil {
		return err
	}
	r.Classifier = strategy.NewClassifier(r.Logger, rules, r.Origin)
	return nil
}

// initCacheComponents initializes the store chain, fastest level first
func (r *CompositionRoot) initCacheComponents() error {
	if err := r.initL1Store(); err != nil {
		return fmt.Errorf("failed to initialize L1 store: %w", err)
	}

	r.initL2Store()

	if err := r.initDurableStore(); err != nil {
		return fmt.Errorf("failed to initialize durable store: %w", err)
	}

	r.KeyBuilder = cache.NewKeyBuilder()

	switch len(r.Stores) {
	case 0:
		r.Store = noop.NewNoOpStore()
		r.Logger.Warn("No cache store enabled, responses will not be kept")
	case 1:
		r.Store = r.Stores[0]
	default:
		r.Store = multi.NewMultiStore(r.Stores, r.Logger, r.Config.MultiCache.EnablePropagation)
	}

	r.Storage = storage.NewCacheStorage(r.Store, r.KeyBuilder, r.Logger)
	return nil
}

// initL1Store initializes the in-memory store (BigCache)
func (r *CompositionRoot) initL1Store() error {
	if !r.Config.BigCache.Enabled {
		r.Logger.Info("BigCache (L1) disabled")
		return nil
	}

	store, err := l1.NewBigCache(&r.Config.BigCache, r.Logger)
	if err != nil {
		return err
	}
	r.Stores = append(r.Stores, store)
	r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.BigCache.Size))
	return nil
}

// initL2Store initializes the shared store (KeyDB). Connection failures
// leave the level out instead of failing startup.
func (r *CompositionRoot) initL2Store() {
	if !r.Config.KeyDB.Enabled {
		r.Logger.Info("KeyDB (L2) disabled")
		return
	}

	redis.SetLogger(newRedisLogger(r.Logger))

	keydbURL := GetKeyDBURL(r.Env, r.Logger)
	client, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
	if err != nil {
		r.Logger.Warn("Failed to connect to KeyDB, continuing without L2 store",
			zap.String("keydb_url", redactURL(keydbURL)),
			zap.Error(err))
		return
	}

	r.Stores = append(r.Stores, l2.NewKeyDBCache(&r.Config.KeyDB, client, r.Logger))
	r.Logger.Info("KeyDB (L2) initialized", zap.String("keydb_url", redactURL(keydbURL)))
}

// initDurableStore initializes the on-disk store (SQLite)
func (r *CompositionRoot) initDurableStore() error {
	if !r.Config.SQLite.Enabled {
		r.Logger.Info("SQLite (durable) disabled")
		return nil
	}

	store, err := durable.NewSQLiteStore(&r.Config.SQLite, r.Logger)
	if err != nil {
		return err
	}
	r.Stores = append(r.Stores, store)
	r.Logger.Info("SQLite (durable) initialized", zap.String("path", r.Config.SQLite.Path))
	return nil
}

// initServices initializes application services
func (r *CompositionRoot) initServices() error {
	fetcher, err := fetch.NewHTTPFetcher(&r.Config.Site, &r.Config.Fetch, r.Logger)
	if err != nil {
		return err
	}
	r.Fetcher = fetcher

	r.Hub = notify.NewHub(0, r.Logger)

	deps := offline.Dependencies{
		Storage:    r.Storage,
		Fetcher:    r.Fetcher,
		Classifier: r.Classifier,
		Notifier:   r.Hub,
	}
	notifications := r.Config.Notifications
	factory := func(gen models.Generation) *offline.Manager {
		return offline.NewManager(gen, r.Origin, notifications, deps, r.Logger)
	}
	r.Registration = offline.NewRegistration(factory, r.Fetcher, r.Hub, r.Logger)
	r.Updater = offline.NewUpdater(r.Registration, r.reloadGeneration, r.Config.Update.Interval, r.Logger)
	return nil
}

// reloadGeneration re-reads the configuration file and returns the
// generation it describes
func (r *CompositionRoot) reloadGeneration() (models.Generation, error) {
	cfg, err := config.LoadConfig(r.ConfigPath, r.Env, r.Logger)
	if err != nil {
		return models.Generation{}, err
	}
	return cfg.Generation(), nil
}

// initHTTPServer initializes the HTTP server
func (r *CompositionRoot) initHTTPServer() error {
	server, err := httpserver.NewServer(r.Registration, r.Updater, r.Storage, r.Hub, r.Config, r.Logger)
	if err != nil {
		return err
	}
	r.HTTPServer = server
	return nil
}

// Cleanup releases every store. The logger is synced by the caller.
func (r *CompositionRoot) Cleanup() error {
	var errs []error
	for _, store := range r.Stores {
		closer, ok := store.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close store: %w", err))
		}
	}
	r.Stores = nil
	return errors.Join(errs...)
}
