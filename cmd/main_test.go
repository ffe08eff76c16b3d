package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_cart/restock-service/internal/cache"
	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMirror(t *testing.T) (*cache.RedisSnapshotCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewRedisSnapshotCache(client), mr
}

func TestReportMirror_PreviousRestock(t *testing.T) {
	mirror, _ := setupMirror(t)
	ctx := context.Background()
	require.NoError(t, mirror.Publish(ctx, domain.RestockEvent{
		Epoch:                  domain.Epoch{ID: "epoch-9", Sequence: 9},
		Stock:                  map[string]int{"Jade Clover": 3},
		Reason:                 domain.ReasonTimer,
		At:                     time.Now(),
		RestockIntervalSeconds: 300,
	}))

	var buf bytes.Buffer
	reportMirror(ctx, mirror, zerolog.New(&buf))

	assert.Contains(t, buf.String(), `"restock_id":"epoch-9"`)
	assert.Contains(t, buf.String(), `"sequence":9`)
	assert.Contains(t, buf.String(), "previous restock found in mirror")
}

func TestReportMirror_Empty(t *testing.T) {
	mirror, _ := setupMirror(t)

	var buf bytes.Buffer
	reportMirror(context.Background(), mirror, zerolog.New(&buf))

	assert.Contains(t, buf.String(), "no mirrored restock found")
}

func TestReportMirror_Unreadable(t *testing.T) {
	mirror, mr := setupMirror(t)
	require.NoError(t, mr.Set(cache.LatestKey, "not json"))

	var buf bytes.Buffer
	reportMirror(context.Background(), mirror, zerolog.New(&buf))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "failed to read mirrored restock")
}

func TestLoadCatalog(t *testing.T) {
	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, 5, c.Len())

	_, err = loadCatalog("does-not-exist.yaml")
	assert.Error(t, err)
}
