package store

import (
	"testing"

	"github.com/fjod/go_cart/restock-service/internal/catalog"
	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, interval int) *MemoryStore {
	store, err := NewMemoryStore(catalog.Default(), interval)
	require.NoError(t, err)
	return store
}

func TestNewMemoryStore_InvalidInterval(t *testing.T) {
	_, err := NewMemoryStore(catalog.Default(), 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMemoryStore_Snapshot_BeforeFirstRestock(t *testing.T) {
	store := setupStore(t, 300)

	snap := store.Snapshot()
	assert.Nil(t, snap.Stock)
	assert.True(t, snap.Epoch.IsZero())
	assert.Equal(t, 300, snap.RestockIntervalSeconds)
}

func TestMemoryStore_Replace(t *testing.T) {
	store := setupStore(t, 120)

	stock := map[string]int{"Smart Remote": 9, "Slap hand": 0}
	store.Replace(stock, domain.Epoch{ID: "epoch-1", Sequence: 1})

	// caller's map must not alias the stored one
	stock["Smart Remote"] = 1000

	snap := store.Snapshot()
	assert.Equal(t, 9, snap.Stock["Smart Remote"])
	assert.Equal(t, "epoch-1", snap.Epoch.ID)
	assert.Equal(t, 120, snap.SecondsUntilRestock)
	assert.Equal(t, "epoch-1", store.Epoch().ID)
}

func TestMemoryStore_Snapshot_ReturnsCopy(t *testing.T) {
	store := setupStore(t, 120)
	store.Replace(map[string]int{"Smart Remote": 9}, domain.Epoch{ID: "e", Sequence: 1})

	snap := store.Snapshot()
	snap.Stock["Smart Remote"] = 0

	assert.Equal(t, 9, store.Snapshot().Stock["Smart Remote"])
}

func TestMemoryStore_SetItemStock(t *testing.T) {
	store := setupStore(t, 300)
	store.Replace(map[string]int{"Smart Remote": 9, "Jade Clover": 0}, domain.Epoch{ID: "e1", Sequence: 1})

	require.NoError(t, store.SetItemStock("Jade Clover", 5))

	snap := store.Snapshot()
	assert.Equal(t, 5, snap.Stock["Jade Clover"])
	assert.Equal(t, 9, snap.Stock["Smart Remote"])
	assert.Equal(t, "e1", snap.Epoch.ID, "store edits never stamp epochs on their own")
}

func TestMemoryStore_SetItemStock_BeforeFirstRestock(t *testing.T) {
	store := setupStore(t, 300)

	require.NoError(t, store.SetItemStock("Slap hand", 2))

	snap := store.Snapshot()
	assert.Len(t, snap.Stock, 5)
	assert.Equal(t, 2, snap.Stock["Slap hand"])
	assert.Equal(t, 0, snap.Stock["Smart Remote"])
}

func TestMemoryStore_SetItemStock_NotFound(t *testing.T) {
	store := setupStore(t, 300)
	store.Replace(map[string]int{"Smart Remote": 9}, domain.Epoch{ID: "e1", Sequence: 1})

	err := store.SetItemStock("Unknown", 5)
	assert.ErrorIs(t, err, ErrItemNotFound)

	snap := store.Snapshot()
	assert.Equal(t, map[string]int{"Smart Remote": 9}, snap.Stock)
}

func TestMemoryStore_SetItemStock_Negative(t *testing.T) {
	store := setupStore(t, 300)

	err := store.SetItemStock("Smart Remote", -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Nil(t, store.Snapshot().Stock)
}

func TestMemoryStore_SetRestockInterval(t *testing.T) {
	store := setupStore(t, 300)
	store.Replace(map[string]int{}, domain.Epoch{ID: "e1", Sequence: 1})
	store.Tick()
	store.Tick()

	require.NoError(t, store.SetRestockInterval(10))

	snap := store.Snapshot()
	assert.Equal(t, 10, snap.RestockIntervalSeconds)
	assert.Equal(t, 10, snap.SecondsUntilRestock)
	assert.Equal(t, "e1", snap.Epoch.ID)
}

func TestMemoryStore_SetRestockInterval_Invalid(t *testing.T) {
	store := setupStore(t, 300)

	for _, seconds := range []int{0, -5} {
		err := store.SetRestockInterval(seconds)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}
	assert.Equal(t, 300, store.Snapshot().RestockIntervalSeconds)
}

func TestMemoryStore_Tick_Failsafe(t *testing.T) {
	store := setupStore(t, 3)

	res := store.Tick()
	assert.Equal(t, TickResult{Reset: true}, res)
	assert.Equal(t, 3, store.Snapshot().SecondsUntilRestock)
}

func TestMemoryStore_Tick_CountsDown(t *testing.T) {
	store := setupStore(t, 3)
	store.Replace(map[string]int{}, domain.Epoch{ID: "e1", Sequence: 1})

	assert.False(t, store.Tick().Due)
	assert.False(t, store.Tick().Due)
	assert.True(t, store.Tick().Due)
	assert.Equal(t, 0, store.Snapshot().SecondsUntilRestock)
}

func TestMemoryStore_StampEpoch(t *testing.T) {
	store := setupStore(t, 5)
	store.Replace(map[string]int{"Smart Remote": 1}, domain.Epoch{ID: "e1", Sequence: 1})
	store.Tick()

	store.StampEpoch(domain.Epoch{ID: "e2", Sequence: 2})

	snap := store.Snapshot()
	assert.Equal(t, "e2", snap.Epoch.ID)
	assert.Equal(t, 5, snap.SecondsUntilRestock)
	assert.Equal(t, 1, snap.Stock["Smart Remote"])
}
