package offline

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"go-offline-cache/internal/cache"
	"go-offline-cache/internal/cache/l1"
	"go-offline-cache/internal/cache/storage"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/strategy"
)

const testOrigin = "https://ppcloud.media"

var errNetworkDown = errors.New("dial tcp: connection refused")

var testNotifications = config.NotificationConfig{
	Title:           "PP Cloud Media",
	Icon:            "/favicon.ico",
	Badge:           "/favicon.ico",
	Vibrate:         []int{100, 50, 100},
	DefaultPushBody: "New update from PP Cloud Media",
	SyncTag:         "contact-form-sync",
	SyncBody:        "Your contact form submission has been synced!",
}

// fakeNetwork serves canned responses and counts fetches per URL
type fakeNetwork struct {
	mu      sync.Mutex
	routes  map[string]route
	calls   map[string]int
	offline bool
}

type route struct {
	status int
	body   string
	err    error
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{routes: make(map[string]route), calls: make(map[string]int)}
}

func (n *fakeNetwork) serve(url string, status int, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[url] = route{status: status, body: body}
}

func (n *fakeNetwork) fail(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes[url] = route{err: errNetworkDown}
}

func (n *fakeNetwork) setOffline(offline bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offline = offline
}

func (n *fakeNetwork) count(url string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[url]
}

func (n *fakeNetwork) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	if _, err := req.Body(); err != nil {
		return nil, err
	}

	n.mu.Lock()
	n.calls[req.URL]++
	r, ok := n.routes[req.URL]
	offline := n.offline
	n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offline {
		return nil, errNetworkDown
	}
	if !ok {
		r = route{status: http.StatusNotFound, body: "not found"}
	}
	if r.err != nil {
		return nil, r.err
	}

	typ := models.ResponseTypeCORS
	if u, err := url.Parse(req.URL); err == nil && u.Scheme+"://"+u.Host == testOrigin {
		typ = models.ResponseTypeBasic
	}
	return models.NewResponse(req.URL, r.status, typ,
		http.Header{"Content-Type": []string{"text/plain"}}, []byte(r.body)), nil
}

// fakeNotifier records shown notifications
type fakeNotifier struct {
	mu    sync.Mutex
	shown []models.Notification
}

func (f *fakeNotifier) ShowNotification(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakeNotifier) all() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.shown...)
}

// fakePublisher records controller changes
type fakePublisher struct {
	mu      sync.Mutex
	changes []string
}

func (f *fakePublisher) PublishControllerChange(namespace string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, namespace)
}

func (f *fakePublisher) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.changes...)
}

type fixture struct {
	origin   *url.URL
	storage  *storage.CacheStorage
	network  *fakeNetwork
	notifier *fakeNotifier
	deps     Dependencies
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := l1.NewBigCache(&config.BigCacheConfig{
		Size:         8,
		LifeWindow:   time.Hour,
		MaxEntrySize: 4096,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.(*l1.BigCache).Close() })

	origin, err := url.Parse(testOrigin)
	require.NoError(t, err)

	f := &fixture{
		origin:   origin,
		storage:  storage.NewCacheStorage(store, cache.NewKeyBuilder(), logger),
		network:  newFakeNetwork(),
		notifier: &fakeNotifier{},
	}
	f.deps = Dependencies{
		Storage:    f.storage,
		Fetcher:    f.network,
		Classifier: strategy.NewClassifier(logger, nil, origin),
		Notifier:   f.notifier,
	}
	return f
}

func (f *fixture) manager(t *testing.T, version string, manifest ...string) *Manager {
	t.Helper()
	gen := models.Generation{Name: "pp-cloud-media", Version: version, Manifest: manifest}
	return NewManager(gen, f.origin, testNotifications, f.deps, zaptest.NewLogger(t))
}

func (f *fixture) activeManager(t *testing.T, version string, manifest ...string) *Manager {
	t.Helper()
	m := f.manager(t, version, manifest...)
	require.NoError(t, m.Install(context.Background()))
	require.NoError(t, m.Activate(context.Background()))
	return m
}

func get(url string) *models.Request {
	return models.NewRequest(http.MethodGet, url, nil, nil)
}

func readBody(t *testing.T, resp *models.Response) string {
	t.Helper()
	body, err := resp.Body()
	require.NoError(t, err)
	return string(body)
}
