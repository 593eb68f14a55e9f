package multi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/interfaces/mock"
	"go-offline-cache/internal/models"
)

const ns = "pp-cloud-media-v1.0.10"

func testEntry() *models.CacheEntry {
	return &models.CacheEntry{Method: "GET", URL: "https://example.com/", Status: 200, Body: []byte("x")}
}

func TestNewMultiStore(t *testing.T) {
	ctrl := gomock.NewController(t)

	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)

	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false).(*MultiStore)

	assert.Equal(t, 2, ms.GetStoreCount())
	assert.Equal(t, store1, ms.stores[0])
	assert.Equal(t, store2, ms.stores[1])
}

func TestMultiStore_Get_FirstLevelHit(t *testing.T) {
	ctrl := gomock.NewController(t)

	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), true)

	entry := testEntry()
	store1.EXPECT().Get(ns, "k").Return(entry, true).Times(1)
	// store2.Get should not be called since store1 has the entry

	got, found := ms.Get(ns, "k")

	assert.True(t, found)
	assert.Equal(t, entry, got)
}

func TestMultiStore_Get_SecondLevelHitPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)

	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), true)

	entry := testEntry()
	store1.EXPECT().Get(ns, "k").Return(nil, false)
	store2.EXPECT().Get(ns, "k").Return(entry, true)
	store1.EXPECT().Set(ns, "k", entry).Return(nil)

	got, found := ms.Get(ns, "k")

	assert.True(t, found)
	assert.Equal(t, entry, got)
}

func TestMultiStore_Get_SecondLevelHitWithoutPropagation(t *testing.T) {
	ctrl := gomock.NewController(t)

	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	entry := testEntry()
	store1.EXPECT().Get(ns, "k").Return(nil, false)
	store2.EXPECT().Get(ns, "k").Return(entry, true)

	_, found := ms.Get(ns, "k")
	assert.True(t, found)
}

func TestMultiStore_Get_AllMiss(t *testing.T) {
	ctrl := gomock.NewController(t)

	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), true)

	store1.EXPECT().Get(ns, "k").Return(nil, false)
	store2.EXPECT().Get(ns, "k").Return(nil, false)

	got, found := ms.Get(ns, "k")
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestMultiStore_Set(t *testing.T) {
	entry := testEntry()

	t.Run("partial failure succeeds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store1 := mock.NewMockStore(ctrl)
		store2 := mock.NewMockStore(ctrl)
		ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

		store1.EXPECT().Set(ns, "k", entry).Return(errors.New("too large"))
		store2.EXPECT().Set(ns, "k", entry).Return(nil)

		assert.NoError(t, ms.Set(ns, "k", entry))
	})

	t.Run("total failure errors", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store1 := mock.NewMockStore(ctrl)
		store2 := mock.NewMockStore(ctrl)
		ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

		store1.EXPECT().Set(ns, "k", entry).Return(errors.New("too large"))
		store2.EXPECT().Set(ns, "k", entry).Return(errors.New("connection refused"))

		err := ms.Set(ns, "k", entry)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestMultiStore_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	store1.EXPECT().Delete(ns, "k")
	store2.EXPECT().Delete(ns, "k")

	ms.Delete(ns, "k")
}

func TestMultiStore_NamespacesUnion(t *testing.T) {
	ctrl := gomock.NewController(t)
	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	store1.EXPECT().Namespaces().Return([]string{"app-v2"}, nil)
	store2.EXPECT().Namespaces().Return([]string{"app-v1", "app-v2"}, nil)

	names, err := ms.Namespaces()
	require.NoError(t, err)
	assert.Equal(t, []string{"app-v1", "app-v2"}, names)
}

func TestMultiStore_KeysToleratesOneFailingLevel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	store1.EXPECT().Keys(ns).Return([]string{"b", "a"}, nil)
	store2.EXPECT().Keys(ns).Return(nil, errors.New("down"))

	keys, err := ms.Keys(ns)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestMultiStore_DropNamespace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	store1.EXPECT().DropNamespace("app-v1").Return(false, nil)
	store2.EXPECT().DropNamespace("app-v1").Return(true, nil)

	dropped, err := ms.DropNamespace("app-v1")
	require.NoError(t, err)
	assert.True(t, dropped)
}

func TestMultiStore_CreateNamespace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store1 := mock.NewMockStore(ctrl)
	store2 := mock.NewMockStore(ctrl)
	ms := NewMultiStore([]interfaces.Store{store1, store2}, zap.NewNop(), false)

	store1.EXPECT().CreateNamespace("app-v1").Return(nil)
	store2.EXPECT().CreateNamespace("app-v1").Return(errors.New("down"))

	assert.NoError(t, ms.CreateNamespace("app-v1"))
}

func TestMultiStore_Empty(t *testing.T) {
	ms := NewMultiStore(nil, zap.NewNop(), false)

	_, found := ms.Get(ns, "k")
	assert.False(t, found)
	assert.NoError(t, ms.Set(ns, "k", testEntry()))

	names, err := ms.Namespaces()
	require.NoError(t, err)
	assert.Empty(t, names)
}
