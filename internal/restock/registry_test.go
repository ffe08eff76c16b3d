package restock

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_NotifyAll_DeliversOnceAndEmpties(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())

	w1, err := r.Register(context.Background())
	require.NoError(t, err)
	w2, err := r.Register(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	epoch := domain.Epoch{ID: "e2", Sequence: 2}
	assert.Equal(t, 2, r.NotifyAll(epoch))
	assert.Equal(t, 0, r.Len())

	assert.Equal(t, epoch, <-w1.C())
	assert.Equal(t, epoch, <-w2.C())

	// a second restock must not reach already released waiters
	assert.Equal(t, 0, r.NotifyAll(domain.Epoch{ID: "e3", Sequence: 3}))
	assert.Len(t, w1.C(), 0)
	assert.Len(t, w2.C(), 0)
}

func TestRegistry_NotifyAll_NoWaiters(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())
	assert.Equal(t, 0, r.NotifyAll(domain.Epoch{ID: "e1", Sequence: 1}))
}

func TestRegistry_NotifyAll_SkipsClosedTransport(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())

	gone, cancel := context.WithCancel(context.Background())
	closed, err := r.Register(gone)
	require.NoError(t, err)
	open, err := r.Register(context.Background())
	require.NoError(t, err)
	cancel()

	assert.Equal(t, 1, r.NotifyAll(domain.Epoch{ID: "e1", Sequence: 1}))
	assert.Equal(t, 0, r.Len())
	assert.Len(t, closed.C(), 0)
	assert.Len(t, open.C(), 1)
}

func TestRegistry_Cancel(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())

	w, err := r.Register(context.Background())
	require.NoError(t, err)

	require.NoError(t, r.Cancel(w))
	assert.Equal(t, 0, r.Len())

	assert.Equal(t, 0, r.NotifyAll(domain.Epoch{ID: "e1", Sequence: 1}))
	assert.Len(t, w.C(), 0)
}

func TestRegistry_Cancel_AfterNotify(t *testing.T) {
	r := NewRegistry(0, zerolog.Nop())

	w, err := r.Register(context.Background())
	require.NoError(t, err)
	r.NotifyAll(domain.Epoch{ID: "e1", Sequence: 1})

	assert.ErrorIs(t, r.Cancel(w), ErrAlreadyClosed)
	assert.ErrorIs(t, r.Cancel(w), ErrAlreadyClosed)
}

func TestRegistry_MaxWaiters(t *testing.T) {
	r := NewRegistry(2, zerolog.Nop())

	_, err := r.Register(context.Background())
	require.NoError(t, err)
	w, err := r.Register(context.Background())
	require.NoError(t, err)

	_, err = r.Register(context.Background())
	assert.ErrorIs(t, err, ErrTooManyWaiters)

	require.NoError(t, r.Cancel(w))
	_, err = r.Register(context.Background())
	assert.NoError(t, err)
}
