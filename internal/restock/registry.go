package restock

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/rs/zerolog"
)

// Waiter is a single suspended "notify me on the next restock" request
type Waiter struct {
	id  uint64
	ctx context.Context
	ch  chan domain.Epoch
}

// C receives the new epoch exactly once if the waiter is notified
func (w *Waiter) C() <-chan domain.Epoch {
	return w.ch
}

// Registry holds pending waiters and releases all of them on each restock
type Registry struct {
	mu         sync.Mutex
	waiters    map[uint64]*Waiter
	nextID     uint64
	maxWaiters int // 0 means unbounded

	log zerolog.Logger
}

// NewRegistry creates an empty registry. maxWaiters <= 0 disables the limit.
func NewRegistry(maxWaiters int, log zerolog.Logger) *Registry {
	if maxWaiters < 0 {
		maxWaiters = 0
	}
	return &Registry{
		waiters:    make(map[uint64]*Waiter),
		maxWaiters: maxWaiters,
		log:        log,
	}
}

// Register adds a waiter bound to the caller's context
func (r *Registry) Register(ctx context.Context) (*Waiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxWaiters > 0 && len(r.waiters) >= r.maxWaiters {
		return nil, fmt.Errorf("%w: limit %d reached", ErrTooManyWaiters, r.maxWaiters)
	}

	r.nextID++
	w := &Waiter{
		id:  r.nextID,
		ctx: ctx,
		ch:  make(chan domain.Epoch, 1),
	}
	r.waiters[w.id] = w
	return w, nil
}

// NotifyAll delivers epoch to every registered waiter and empties the
// registry. It returns the number of waiters that received the epoch.
func (r *Registry) NotifyAll(epoch domain.Epoch) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.waiters) == 0 {
		return 0
	}

	delivered := 0
	for id, w := range r.waiters {
		delete(r.waiters, id)

		if err := w.ctx.Err(); err != nil {
			r.log.Debug().Err(ErrAlreadyClosed).Uint64("waiter_id", id).Msg("skipping waiter with closed transport")
			continue
		}

		// ch is buffered and only ever written here, once
		select {
		case w.ch <- epoch:
			delivered++
		default:
			r.log.Warn().Err(ErrAlreadyClosed).Uint64("waiter_id", id).Msg("waiter channel already full")
		}
	}
	return delivered
}

// Cancel removes a waiter without delivering anything. It returns
// ErrAlreadyClosed if the waiter was already released by NotifyAll.
func (r *Registry) Cancel(w *Waiter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.waiters[w.id]; !ok {
		return ErrAlreadyClosed
	}
	delete(r.waiters, w.id)
	return nil
}

// Len returns the number of pending waiters
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}
