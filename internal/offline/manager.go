package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/metrics"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

const precacheConcurrency = 8

// Dependencies are the collaborators a Manager mediates between
type Dependencies struct {
	Storage    interfaces.CacheStorage
	Fetcher    interfaces.Fetcher
	Classifier interfaces.StrategyClassifier
	Notifier   interfaces.Notifier
}

// Manager owns one cache generation: it precaches the manifest on install,
// removes every other namespace on activate, and serves fetches afterwards.
type Manager struct {
	generation    models.Generation
	origin        *url.URL
	notifications config.NotificationConfig
	deps          Dependencies
	logger        *zap.Logger
	now           func() time.Time
	hosts         map[string]struct{}

	lifecycle sync.Mutex
	state     atomic.Int32
	restored  atomic.Bool
}

// NewManager creates a manager for gen. Relative manifest entries resolve against origin.
func NewManager(gen models.Generation, origin *url.URL, notifications config.NotificationConfig, deps Dependencies, logger *zap.Logger) *Manager {
	hosts := make(map[string]struct{})
	for _, host := range utils.ManifestHosts(gen.Manifest) {
		hosts[host] = struct{}{}
	}
	return &Manager{
		generation:    gen,
		origin:        origin,
		notifications: notifications,
		deps:          deps,
		logger:        logger.With(zap.String("namespace", gen.Namespace())),
		now:           time.Now,
		hosts:         hosts,
	}
}

// Namespace returns the identifier of the managed cache namespace
func (m *Manager) Namespace() string {
	return m.generation.Namespace()
}

// Generation returns the managed generation
func (m *Manager) Generation() models.Generation {
	return m.generation
}

// PrecachesHost reports whether an absolute manifest entry lives on host
func (m *Manager) PrecachesHost(host string) bool {
	_, ok := m.hosts[strings.ToLower(host)]
	return ok
}

// State returns the current lifecycle state
func (m *Manager) State() models.WorkerState {
	return models.WorkerState(m.state.Load())
}

func (m *Manager) transition(from, to models.WorkerState) error {
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s -> %s while %s", ErrInvalidTransition, from, to, m.State())
	}
	return nil
}

// Restored reports whether the manager took control from persisted storage
// instead of a completed install
func (m *Manager) Restored() bool {
	return m.restored.Load()
}

func (m *Manager) retire() {
	m.state.Store(int32(models.StateRedundant))
}

// Install precaches every manifest URL into the namespace. Either all of them
// are stored or, on any failure, none are and the manager becomes redundant.
func (m *Manager) Install(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if err := m.transition(models.StateParsed, models.StateInstalling); err != nil {
		return err
	}

	start := m.now()
	stored, err := m.precache(ctx)
	if err != nil {
		m.retire()
		metrics.RecordLifecycleEvent("install", "failure")
		m.logger.Error("Install failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrInstallFailed, m.Namespace(), err)
	}

	m.state.Store(int32(models.StateInstalled))
	metrics.RecordLifecycleEvent("install", "success")
	metrics.SetPrecacheEntries(stored)
	m.logger.Info("Installed",
		zap.Int("entries", stored),
		zap.Duration("duration", m.now().Sub(start)))
	return nil
}

func (m *Manager) precache(ctx context.Context) (int, error) {
	requests := make([]*models.Request, len(m.generation.Manifest))
	for i, entry := range m.generation.Manifest {
		target, err := m.resolve(entry)
		if err != nil {
			return 0, err
		}
		requests[i] = models.NewRequest(http.MethodGet, target, nil, nil)
	}

	// Everything is fetched before anything is stored
	responses := make([]*models.Response, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(precacheConcurrency)
	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			fetchReq, err := req.Clone()
			if err != nil {
				return err
			}
			resp, err := m.deps.Fetcher.Fetch(gctx, fetchReq)
			if err != nil {
				return fmt.Errorf("precache %s: %w", req.URL, err)
			}
			if !resp.Successful() {
				return fmt.Errorf("precache %s: unexpected status %d", req.URL, resp.Status)
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	existed := m.deps.Storage.Has(m.Namespace())
	cache, err := m.deps.Storage.Open(m.Namespace())
	if err != nil {
		return 0, fmt.Errorf("open namespace: %w", err)
	}

	var added []*models.Request
	for i, req := range requests {
		_, present := cache.Match(req)
		if err := cache.Put(req, responses[i]); err != nil {
			m.rollback(cache, added, existed)
			return 0, fmt.Errorf("store %s: %w", req.URL, err)
		}
		if !present {
			added = append(added, req)
		}
	}
	return len(requests), nil
}

// rollback removes what a failed install stored
func (m *Manager) rollback(cache interfaces.Cache, added []*models.Request, existed bool) {
	if !existed {
		if _, err := m.deps.Storage.Delete(cache.Name()); err != nil {
			m.logger.Warn("Failed to drop namespace after failed install", zap.Error(err))
		}
		return
	}
	for _, req := range added {
		cache.Delete(req)
	}
}

func (m *Manager) resolve(entry string) (string, error) {
	ref, err := url.Parse(entry)
	if err != nil {
		return "", fmt.Errorf("invalid manifest entry %q: %w", entry, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if m.origin == nil {
		return "", fmt.Errorf("relative manifest entry %q without origin", entry)
	}
	return m.origin.ResolveReference(ref).String(), nil
}

// Activate deletes every namespace other than the managed one. Deletion
// failures are logged and do not prevent activation.
func (m *Manager) Activate(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if err := m.transition(models.StateInstalled, models.StateActivating); err != nil {
		return err
	}

	names, err := m.deps.Storage.Keys()
	if err != nil {
		m.logger.Warn("Failed to enumerate namespaces", zap.Error(err))
		metrics.RecordCacheError("storage", "keys")
	}

	for _, name := range names {
		if name == m.Namespace() {
			continue
		}
		if ctx.Err() != nil {
			m.logger.Warn("Activation cleanup interrupted", zap.Error(ctx.Err()))
			break
		}
		deleted, err := m.deps.Storage.Delete(name)
		if err != nil {
			m.logger.Warn("Failed to delete old namespace", zap.String("old_namespace", name), zap.Error(err))
			metrics.RecordCacheError("storage", "delete")
			continue
		}
		if deleted {
			m.logger.Info("Deleted old namespace", zap.String("old_namespace", name))
			metrics.RecordNamespaceDeleted()
		}
	}

	m.state.Store(int32(models.StateActivated))
	metrics.RecordLifecycleEvent("activate", "success")
	return nil
}

// Restore takes control of a namespace persisted by an earlier run without
// touching the network. Every manifest entry must already be stored.
func (m *Manager) Restore() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if err := m.transition(models.StateParsed, models.StateActivating); err != nil {
		return err
	}

	if err := m.verifyPersisted(); err != nil {
		m.retire()
		metrics.RecordLifecycleEvent("restore", "failure")
		return fmt.Errorf("%w: %s: %w", ErrNotPersisted, m.Namespace(), err)
	}

	m.restored.Store(true)
	m.state.Store(int32(models.StateActivated))
	metrics.RecordLifecycleEvent("restore", "success")
	m.logger.Info("Restored from storage", zap.Int("entries", len(m.generation.Manifest)))
	return nil
}

func (m *Manager) verifyPersisted() error {
	cache, ok := m.deps.Storage.Lookup(m.Namespace())
	if !ok {
		return errors.New("namespace not found")
	}
	for _, entry := range m.generation.Manifest {
		target, err := m.resolve(entry)
		if err != nil {
			return err
		}
		if _, ok := cache.Match(models.NewRequest(http.MethodGet, target, nil, nil)); !ok {
			return fmt.Errorf("missing %s", target)
		}
	}
	return nil
}

// HandleFetch answers a request according to its strategy. The request is
// consumed; network failures without a cached fallback wrap ErrNoResponse.
func (m *Manager) HandleFetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}

	strategy := m.deps.Classifier.Classify(req)
	switch strategy {
	case models.StrategyCacheFirst:
		return m.cacheFirst(ctx, req)
	case models.StrategyNetworkFirst:
		return m.networkFirst(ctx, req)
	default:
		return m.networkOnly(ctx, req)
	}
}

func (m *Manager) cacheFirst(ctx context.Context, req *models.Request) (*models.Response, error) {
	cache := m.lookupCache()
	if cache != nil {
		if cached, ok := cache.Match(req); ok {
			metrics.RecordFetch(string(models.StrategyCacheFirst), "cache")
			return cached, nil
		}
	}

	fetchReq, err := req.Clone()
	if err != nil {
		return nil, err
	}
	resp, err := m.deps.Fetcher.Fetch(ctx, fetchReq)
	if err != nil {
		metrics.RecordFetch(string(models.StrategyCacheFirst), "error")
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	metrics.RecordFetch(string(models.StrategyCacheFirst), "network")

	if resp.OK() && resp.Type == models.ResponseTypeBasic {
		m.store(cache, req, resp)
	}
	return resp, nil
}

func (m *Manager) networkFirst(ctx context.Context, req *models.Request) (*models.Response, error) {
	fetchReq, err := req.Clone()
	if err != nil {
		return nil, err
	}

	resp, fetchErr := m.deps.Fetcher.Fetch(ctx, fetchReq)
	if fetchErr == nil {
		metrics.RecordFetch(string(models.StrategyNetworkFirst), "network")
		if resp.OK() {
			m.store(m.lookupCache(), req, resp)
		}
		return resp, nil
	}

	if cache := m.lookupCache(); cache != nil {
		if cached, ok := cache.Match(req); ok {
			m.logger.Debug("Network failed, serving cached copy", zap.String("url", req.URL), zap.Error(fetchErr))
			metrics.RecordFetch(string(models.StrategyNetworkFirst), "fallback")
			return cached, nil
		}
	}

	metrics.RecordFetch(string(models.StrategyNetworkFirst), "error")
	return nil, fmt.Errorf("%w: %w", ErrNoResponse, fetchErr)
}

func (m *Manager) networkOnly(ctx context.Context, req *models.Request) (*models.Response, error) {
	resp, err := m.deps.Fetcher.Fetch(ctx, req)
	if err != nil {
		metrics.RecordFetch(string(models.StrategyNetworkOnly), "error")
		return nil, fmt.Errorf("%w: %w", ErrNoResponse, err)
	}
	metrics.RecordFetch(string(models.StrategyNetworkOnly), "network")
	return resp, nil
}

// lookupCache returns the managed namespace without creating it, so a
// retired manager never brings back a namespace activation removed
func (m *Manager) lookupCache() interfaces.Cache {
	cache, ok := m.deps.Storage.Lookup(m.Namespace())
	if !ok {
		return nil
	}
	return cache
}

// store puts a copy of resp, leaving the original unread for the caller.
// Only the manager in control writes.
func (m *Manager) store(cache interfaces.Cache, req *models.Request, resp *models.Response) {
	if cache == nil || m.State() != models.StateActivated {
		return
	}
	clone, err := resp.Clone()
	if err != nil {
		m.logger.Warn("Failed to clone response", zap.String("url", req.URL), zap.Error(err))
		return
	}
	if err := cache.Put(req, clone); err != nil {
		m.logger.Warn("Failed to cache response", zap.String("url", req.URL), zap.Error(err))
		metrics.RecordCacheError("storage", "put")
	}
}

// Sync handles a background-sync trigger. Only the contact form tag is known;
// it confirms the submission without replaying any payload.
func (m *Manager) Sync(ctx context.Context, tag string) error {
	if tag != m.notifications.SyncTag {
		m.logger.Debug("Ignoring sync tag", zap.String("tag", tag))
		return nil
	}
	metrics.RecordNotification("sync")
	return m.deps.Notifier.ShowNotification(ctx, models.Notification{
		Title: m.notifications.Title,
		Body:  m.notifications.SyncBody,
		Icon:  m.notifications.Icon,
		Tag:   tag,
	})
}

// Push shows a notification for an inbound push. A nil payload uses the default body.
func (m *Manager) Push(ctx context.Context, payload []byte) error {
	body := m.notifications.DefaultPushBody
	if payload != nil {
		body = string(payload)
	}

	vibrate := make([]int, len(m.notifications.Vibrate))
	copy(vibrate, m.notifications.Vibrate)

	metrics.RecordNotification("push")
	return m.deps.Notifier.ShowNotification(ctx, models.Notification{
		Title:   m.notifications.Title,
		Body:    body,
		Icon:    m.notifications.Icon,
		Badge:   m.notifications.Badge,
		Vibrate: vibrate,
		Data: map[string]interface{}{
			"dateOfArrival": m.now().UnixMilli(),
			"primaryKey":    1,
		},
	})
}
