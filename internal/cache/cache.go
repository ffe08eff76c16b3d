package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/restock-service/internal/publisher"
)

// SnapshotCache mirrors the latest restock so other game servers can read it
// without calling this service
type SnapshotCache interface {
	Latest(ctx context.Context) (*publisher.EventPayload, error)
}

var ErrCacheMiss = errors.New("cache miss")
