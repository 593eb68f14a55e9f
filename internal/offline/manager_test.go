package offline

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"go-offline-cache/internal/interfaces/mock"
	"go-offline-cache/internal/models"
)

const (
	cdnCSS = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.0/dist/css/bootstrap.min.css"
	tileJS = "https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"
)

func TestManager_InstallPrecachesManifest(t *testing.T) {
	f := newFixture(t)
	manifest := []string{"/", "/index.html", "/style.css?v=1.0.10", cdnCSS}
	for _, entry := range []string{testOrigin + "/", testOrigin + "/index.html", testOrigin + "/style.css?v=1.0.10", cdnCSS} {
		f.network.serve(entry, http.StatusOK, "content of "+entry)
	}

	m := f.manager(t, "1.0.10", manifest...)
	require.NoError(t, m.Install(context.Background()))
	assert.Equal(t, models.StateInstalled, m.State())

	c, err := f.storage.Open("pp-cloud-media-v1.0.10")
	require.NoError(t, err)
	for _, entry := range []string{testOrigin + "/", testOrigin + "/index.html", testOrigin + "/style.css?v=1.0.10", cdnCSS} {
		resp, ok := c.Match(get(entry))
		require.True(t, ok, "manifest entry %s must be cached", entry)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "content of "+entry, readBody(t, resp))
	}
}

func TestManager_InstallSingleEntryScenario(t *testing.T) {
	f := newFixture(t)
	f.network.serve(testOrigin+"/index.html", http.StatusOK, "<html></html>")

	m := f.manager(t, "1", "/index.html")
	require.NoError(t, m.Install(context.Background()))

	resp, ok := f.storage.Match(get(testOrigin + "/index.html"))
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestManager_InstallIsAtomic(t *testing.T) {
	tests := []struct {
		name  string
		setup func(n *fakeNetwork)
	}{
		{
			name: "network failure",
			setup: func(n *fakeNetwork) {
				n.serve(testOrigin+"/index.html", http.StatusOK, "ok")
				n.fail(tileJS)
			},
		},
		{
			name: "error status",
			setup: func(n *fakeNetwork) {
				n.serve(testOrigin+"/index.html", http.StatusOK, "ok")
				n.serve(tileJS, http.StatusInternalServerError, "boom")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f.network)

			m := f.manager(t, "2", "/index.html", tileJS)
			err := m.Install(context.Background())

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInstallFailed)
			assert.Equal(t, models.StateRedundant, m.State())
			assert.False(t, f.storage.Has("pp-cloud-media-v2"), "failed install must leave nothing behind")
			_, ok := f.storage.Match(get(testOrigin + "/index.html"))
			assert.False(t, ok)
		})
	}
}

func TestManager_InstallInvalidManifestEntry(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, "1", "https://{s}.tile.openstreetmap.org/%zz")

	err := m.Install(context.Background())
	assert.ErrorIs(t, err, ErrInstallFailed)
}

func TestManager_LifecycleOrder(t *testing.T) {
	f := newFixture(t)
	m := f.manager(t, "1")

	assert.ErrorIs(t, m.Activate(context.Background()), ErrInvalidTransition)
	assert.Equal(t, models.StateParsed, m.State())

	require.NoError(t, m.Install(context.Background()))
	assert.ErrorIs(t, m.Install(context.Background()), ErrInvalidTransition)

	require.NoError(t, m.Activate(context.Background()))
	assert.Equal(t, models.StateActivated, m.State())
	assert.ErrorIs(t, m.Activate(context.Background()), ErrInvalidTransition)
}

func TestManager_ActivateDeletesOtherNamespaces(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"pp-cloud-media-v1", "unrelated-cache"} {
		_, err := f.storage.Open(name)
		require.NoError(t, err)
	}

	m := f.activeManager(t, "2")

	names, err := f.storage.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"pp-cloud-media-v2"}, names)
	assert.Equal(t, models.StateActivated, m.State())
}

func TestManager_ActivateToleratesDeleteFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	cacheStorage := mock.NewMockCacheStorage(ctrl)
	f := newFixture(t)
	f.deps.Storage = cacheStorage

	m := f.manager(t, "2")

	cacheStorage.EXPECT().Has("pp-cloud-media-v2").Return(false)
	cacheStorage.EXPECT().Open("pp-cloud-media-v2").Return(mock.NewMockCache(ctrl), nil)
	require.NoError(t, m.Install(context.Background()))

	cacheStorage.EXPECT().Keys().Return([]string{"a", "pp-cloud-media-v2", "b"}, nil)
	cacheStorage.EXPECT().Delete("a").Return(false, errors.New("permission denied"))
	cacheStorage.EXPECT().Delete("b").Return(true, nil)

	require.NoError(t, m.Activate(context.Background()))
	assert.Equal(t, models.StateActivated, m.State())
}

func TestManager_SameOriginCacheHitSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	url := testOrigin + "/index.html"
	f.network.serve(url, http.StatusOK, "precached")

	m := f.activeManager(t, "1", "/index.html")
	require.Equal(t, 1, f.network.count(url))

	f.network.setOffline(true)
	resp, err := m.HandleFetch(context.Background(), get(url))
	require.NoError(t, err)
	assert.Equal(t, "precached", readBody(t, resp))
	assert.Equal(t, 1, f.network.count(url), "cache hit must not reach the network")
}

func TestManager_SameOriginMissThenCached(t *testing.T) {
	f := newFixture(t)
	url := testOrigin + "/locations.html"
	f.network.serve(url, http.StatusOK, "locations")

	m := f.activeManager(t, "1")

	resp, err := m.HandleFetch(context.Background(), get(url))
	require.NoError(t, err)
	assert.Equal(t, "locations", readBody(t, resp), "caller gets an unread response")

	resp, err = m.HandleFetch(context.Background(), get(url))
	require.NoError(t, err)
	assert.Equal(t, "locations", readBody(t, resp))
	assert.Equal(t, 1, f.network.count(url))
}

func TestManager_SameOriginNonQualifyingNotCached(t *testing.T) {
	f := newFixture(t)
	url := testOrigin + "/missing.html"
	f.network.serve(url, http.StatusNotFound, "nope")

	m := f.activeManager(t, "1")

	for i := 0; i < 2; i++ {
		resp, err := m.HandleFetch(context.Background(), get(url))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.Status)
	}
	assert.Equal(t, 2, f.network.count(url))
}

func TestManager_SameOriginNonBasicNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mock.NewMockFetcher(ctrl)
	f := newFixture(t)
	f.deps.Fetcher = fetcher
	m := f.activeManager(t, "1")

	url := testOrigin + "/opaque"
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *models.Request) (*models.Response, error) {
			return models.NewResponse(req.URL, http.StatusOK, models.ResponseTypeOpaque, nil, []byte("x")), nil
		}).Times(2)

	for i := 0; i < 2; i++ {
		_, err := m.HandleFetch(context.Background(), get(url))
		require.NoError(t, err)
	}
}

func TestManager_SameOriginMissNetworkFailure(t *testing.T) {
	f := newFixture(t)
	m := f.activeManager(t, "1")
	f.network.setOffline(true)

	_, err := m.HandleFetch(context.Background(), get(testOrigin+"/new.html"))
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestManager_CrossOriginNetworkFirst(t *testing.T) {
	f := newFixture(t)
	f.network.serve(cdnCSS, http.StatusOK, "bootstrap")
	m := f.activeManager(t, "1")

	resp, err := m.HandleFetch(context.Background(), get(cdnCSS))
	require.NoError(t, err)
	assert.Equal(t, models.ResponseTypeCORS, resp.Type)
	assert.Equal(t, "bootstrap", readBody(t, resp))

	cached, ok := f.storage.Match(get(cdnCSS))
	require.True(t, ok, "successful cross-origin response must be cached")
	assert.Equal(t, "bootstrap", readBody(t, cached))

	// Still network-first while online
	f.network.serve(cdnCSS, http.StatusOK, "bootstrap v2")
	resp, err = m.HandleFetch(context.Background(), get(cdnCSS))
	require.NoError(t, err)
	assert.Equal(t, "bootstrap v2", readBody(t, resp))
	assert.Equal(t, 2, f.network.count(cdnCSS))

	f.network.setOffline(true)
	resp, err = m.HandleFetch(context.Background(), get(cdnCSS))
	require.NoError(t, err)
	assert.Equal(t, "bootstrap v2", readBody(t, resp), "offline falls back to the cached copy")
}

func TestManager_CrossOriginErrorStatusNotCached(t *testing.T) {
	f := newFixture(t)
	f.network.serve(tileJS, http.StatusServiceUnavailable, "busy")
	m := f.activeManager(t, "1")

	resp, err := m.HandleFetch(context.Background(), get(tileJS))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)

	_, ok := f.storage.Match(get(tileJS))
	assert.False(t, ok)
}

func TestManager_CrossOriginUnreachableWithoutCacheFails(t *testing.T) {
	f := newFixture(t)
	f.network.fail("https://unreachable.example/app.js")
	m := f.activeManager(t, "1")

	done := make(chan error, 1)
	go func() {
		_, err := m.HandleFetch(context.Background(), get("https://unreachable.example/app.js"))
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNoResponse)
		assert.ErrorIs(t, err, errNetworkDown)
	case <-time.After(2 * time.Second):
		t.Fatal("fetch handling must not hang")
	}
}

func TestManager_NonGETIsNetworkOnly(t *testing.T) {
	f := newFixture(t)
	url := testOrigin + "/contact"
	f.network.serve(url, http.StatusOK, "thanks")
	m := f.activeManager(t, "1")

	for i := 0; i < 2; i++ {
		req := models.NewRequest(http.MethodPost, url, nil, []byte("name=a"))
		resp, err := m.HandleFetch(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "thanks", readBody(t, resp))
	}
	assert.Equal(t, 2, f.network.count(url))
}

func TestManager_MissingNamespaceDoesNotBlockResponses(t *testing.T) {
	ctrl := gomock.NewController(t)
	cacheStorage := mock.NewMockCacheStorage(ctrl)
	f := newFixture(t)
	url := testOrigin + "/index.html"
	f.network.serve(url, http.StatusOK, "fresh")

	m := f.activeManager(t, "1")
	m.deps.Storage = cacheStorage

	cacheStorage.EXPECT().Lookup("pp-cloud-media-v1").Return(nil, false).AnyTimes()

	resp, err := m.HandleFetch(context.Background(), get(url))
	require.NoError(t, err)
	assert.Equal(t, "fresh", readBody(t, resp))

	resp, err = m.HandleFetch(context.Background(), get(cdnCSS))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestManager_PutFailureDoesNotBlockResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	cacheStorage := mock.NewMockCacheStorage(ctrl)
	c := mock.NewMockCache(ctrl)
	f := newFixture(t)
	url := testOrigin + "/index.html"
	f.network.serve(url, http.StatusOK, "fresh")

	m := f.activeManager(t, "1")
	m.deps.Storage = cacheStorage

	cacheStorage.EXPECT().Lookup("pp-cloud-media-v1").Return(c, true)
	c.EXPECT().Match(gomock.Any()).Return(nil, false)
	c.EXPECT().Put(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	resp, err := m.HandleFetch(context.Background(), get(url))
	require.NoError(t, err)
	assert.Equal(t, "fresh", readBody(t, resp))
}

func TestManager_Sync(t *testing.T) {
	f := newFixture(t)
	m := f.activeManager(t, "1")

	require.NoError(t, m.Sync(context.Background(), "other-tag"))
	assert.Empty(t, f.notifier.all())

	require.NoError(t, m.Sync(context.Background(), "contact-form-sync"))
	shown := f.notifier.all()
	require.Len(t, shown, 1)
	assert.Equal(t, "PP Cloud Media", shown[0].Title)
	assert.Equal(t, "Your contact form submission has been synced!", shown[0].Body)
	assert.Equal(t, "/favicon.ico", shown[0].Icon)
}

func TestManager_Push(t *testing.T) {
	f := newFixture(t)
	m := f.activeManager(t, "1")
	arrival := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return arrival }

	require.NoError(t, m.Push(context.Background(), []byte("New locations added")))
	require.NoError(t, m.Push(context.Background(), nil))

	shown := f.notifier.all()
	require.Len(t, shown, 2)

	assert.Equal(t, "New locations added", shown[0].Body)
	assert.Equal(t, "New update from PP Cloud Media", shown[1].Body)

	n := shown[0]
	assert.Equal(t, "PP Cloud Media", n.Title)
	assert.Equal(t, "/favicon.ico", n.Icon)
	assert.Equal(t, "/favicon.ico", n.Badge)
	assert.Equal(t, []int{100, 50, 100}, n.Vibrate)
	assert.Equal(t, arrival.UnixMilli(), n.Data["dateOfArrival"])
	assert.Equal(t, 1, n.Data["primaryKey"])
}

func TestManager_NotifierErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	f := newFixture(t)
	f.deps.Notifier = notifier
	m := f.activeManager(t, "1")

	notifier.EXPECT().ShowNotification(gomock.Any(), gomock.Any()).Return(errors.New("display unavailable"))
	assert.Error(t, m.Push(context.Background(), []byte("x")))
}

func TestNewManager_Namespace(t *testing.T) {
	f := newFixture(t)
	gen := models.Generation{Name: "pp-cloud-media", Version: "1.0.10"}
	m := NewManager(gen, f.origin, testNotifications, f.deps, zaptest.NewLogger(t))

	assert.Equal(t, "pp-cloud-media-v1.0.10", m.Namespace())
	assert.Equal(t, gen, m.Generation())
	assert.Equal(t, models.StateParsed, m.State())
}

func TestManager_RetiredManagerNeverRecreatesNamespace(t *testing.T) {
	f := newFixture(t)
	page := testOrigin + "/index.html"
	f.network.serve(page, http.StatusOK, "page")
	f.network.serve(cdnCSS, http.StatusOK, "bootstrap")

	old := f.activeManager(t, "1", "/index.html")
	f.activeManager(t, "2", "/index.html")
	old.retire()

	keys, err := f.storage.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"pp-cloud-media-v2"}, keys)

	for _, url := range []string{page, cdnCSS, testOrigin + "/fresh.html"} {
		resp, err := old.HandleFetch(context.Background(), get(url))
		require.NoError(t, err)
		assert.NotNil(t, resp)
	}

	keys, err = f.storage.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"pp-cloud-media-v2"}, keys, "requests still on the retired generation must not recreate its namespace")
}

func TestManager_OnlyActivatedManagerWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	cacheStorage := mock.NewMockCacheStorage(ctrl)
	c := mock.NewMockCache(ctrl)
	f := newFixture(t)
	f.network.serve(cdnCSS, http.StatusOK, "bootstrap")

	m := f.activeManager(t, "1")
	m.deps.Storage = cacheStorage
	m.retire()

	// No Open and no Put may happen
	cacheStorage.EXPECT().Lookup("pp-cloud-media-v1").Return(c, true)

	resp, err := m.HandleFetch(context.Background(), get(cdnCSS))
	require.NoError(t, err)
	assert.Equal(t, "bootstrap", readBody(t, resp))
}

func TestManager_Restore(t *testing.T) {
	f := newFixture(t)
	page := testOrigin + "/index.html"
	f.network.serve(page, http.StatusOK, "persisted")
	f.activeManager(t, "1", "/index.html")

	f.network.setOffline(true)
	m := f.manager(t, "1", "/index.html")
	require.NoError(t, m.Restore())
	assert.Equal(t, models.StateActivated, m.State())
	assert.True(t, m.Restored())

	resp, err := m.HandleFetch(context.Background(), get(page))
	require.NoError(t, err)
	assert.Equal(t, "persisted", readBody(t, resp))
	assert.Equal(t, 1, f.network.count(page), "only the original install touched the network")

	assert.ErrorIs(t, m.Restore(), ErrInvalidTransition)
}

func TestManager_RestoreRequiresCompleteNamespace(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		manifest []string
	}{
		{name: "namespace missing", version: "2", manifest: []string{"/index.html"}},
		{name: "manifest entry missing", version: "1", manifest: []string{"/index.html", "/locations.html"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.network.serve(testOrigin+"/index.html", http.StatusOK, "persisted")
			f.activeManager(t, "1", "/index.html")

			m := f.manager(t, tt.version, tt.manifest...)
			err := m.Restore()
			assert.ErrorIs(t, err, ErrNotPersisted)
			assert.Equal(t, models.StateRedundant, m.State())
			assert.False(t, m.Restored())
		})
	}
}

func TestManager_FollowsClassifierStrategy(t *testing.T) {
	ctrl := gomock.NewController(t)
	classifier := mock.NewMockStrategyClassifier(ctrl)
	f := newFixture(t)
	f.deps.Classifier = classifier
	f.network.serve(testOrigin+"/api/photos", http.StatusOK, "v1")

	m := f.activeManager(t, "1")

	gomock.InOrder(
		classifier.EXPECT().Classify(gomock.Any()).Return(models.StrategyNetworkOnly),
		classifier.EXPECT().Classify(gomock.Any()).Return(models.StrategyCacheFirst).Times(2),
	)

	resp, err := m.HandleFetch(context.Background(), get(testOrigin+"/api/photos"))
	require.NoError(t, err)
	assert.Equal(t, "v1", readBody(t, resp))
	_, ok := f.storage.Match(get(testOrigin + "/api/photos"))
	assert.False(t, ok, "network-only responses are never cached")

	resp, err = m.HandleFetch(context.Background(), get(testOrigin+"/api/photos"))
	require.NoError(t, err)
	assert.Equal(t, "v1", readBody(t, resp))

	f.network.serve(testOrigin+"/api/photos", http.StatusOK, "v2")
	resp, err = m.HandleFetch(context.Background(), get(testOrigin+"/api/photos"))
	require.NoError(t, err)
	assert.Equal(t, "v1", readBody(t, resp), "cache-first serves the stored copy")
	assert.Equal(t, 2, f.network.count(testOrigin+"/api/photos"))
}
