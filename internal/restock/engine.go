package restock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/catalog"
	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/fjod/go_cart/restock-service/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTickInterval is how often the restock countdown advances
const DefaultTickInterval = time.Second

// Config holds the engine's tunables
type Config struct {
	// TickInterval is the period of one countdown step. Defaults to one second.
	TickInterval time.Duration

	// MaxWaiters caps pending long-poll waiters. 0 disables the cap.
	MaxWaiters int

	// MaxWait bounds how long a single wait may be suspended. 0 disables it.
	MaxWait time.Duration

	// NotifyOnStockEdit makes admin stock edits stamp a new epoch and wake
	// waiters, the same as a restock
	NotifyOnStockEdit bool
}

// Listener is called with every stamped epoch, after the engine releases
// its lock. Listeners must not block.
type Listener func(domain.RestockEvent)

// IntervalListener is called with the new interval after it changes, outside
// the engine lock. Listeners must not block.
type IntervalListener func(seconds int)

// Option customises an Engine
type Option func(*Engine)

// WithRand sets the randomness source used for restocks
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithIDGenerator sets the epoch ID generator
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithClock sets the time source stamped on restock events
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine owns the inventory state and the waiter registry. Every mutation
// goes through mu, so there is a single logical writer.
type Engine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	store   store.InventoryStore
	waiters *Registry
	rng     *rand.Rand

	tickInterval      time.Duration
	maxWait           time.Duration
	notifyOnStockEdit bool

	newID func() string
	now   func() time.Time
	log   zerolog.Logger

	listenersMu       sync.RWMutex
	listeners         []Listener
	intervalListeners []IntervalListener
}

// NewEngine wires an engine over a catalog and its inventory store
func NewEngine(c *catalog.Catalog, s store.InventoryStore, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		catalog:           c,
		store:             s,
		rng:               rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		tickInterval:      cfg.TickInterval,
		maxWait:           cfg.MaxWait,
		notifyOnStockEdit: cfg.NotifyOnStockEdit,
		newID:             uuid.NewString,
		now:               time.Now,
		log:               zerolog.Nop(),
	}
	if e.tickInterval <= 0 {
		e.tickInterval = DefaultTickInterval
	}
	for _, opt := range opts {
		opt(e)
	}
	e.waiters = NewRegistry(cfg.MaxWaiters, e.log)
	return e
}

// OnRestock registers a listener for stamped epochs
func (e *Engine) OnRestock(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// OnIntervalChange registers a listener for restock interval changes
func (e *Engine) OnIntervalChange(l IntervalListener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.intervalListeners = append(e.intervalListeners, l)
}

// Start performs the initial restock so the inventory is populated before
// any traffic is served
func (e *Engine) Start() domain.RestockEvent {
	return e.Restock(domain.ReasonStartup)
}

// Snapshot returns the current stock, epoch and countdown
func (e *Engine) Snapshot() domain.Snapshot {
	return e.store.Snapshot()
}

// ForceRestock regenerates the whole inventory immediately
func (e *Engine) ForceRestock() domain.RestockEvent {
	return e.Restock(domain.ReasonForced)
}

// Restock regenerates the inventory from the catalog, stamps a new epoch and
// wakes every pending waiter
func (e *Engine) Restock(reason domain.RestockReason) domain.RestockEvent {
	e.mu.Lock()
	evt := e.restockLocked(reason)
	e.mu.Unlock()

	e.emit(evt)
	return evt
}

func (e *Engine) restockLocked(reason domain.RestockReason) domain.RestockEvent {
	items := e.catalog.Items()
	stock := make(map[string]int, len(items))
	for _, item := range items {
		stock[item.Name] = e.roll(item)
	}

	epoch := e.nextEpochLocked()
	e.store.Replace(stock, epoch)
	released := e.waiters.NotifyAll(epoch)

	e.log.Info().
		Str("restock_id", epoch.ID).
		Uint64("sequence", epoch.Sequence).
		Str("reason", string(reason)).
		Int("released_waiters", released).
		Msg("restock performed")

	return e.eventLocked(epoch, reason)
}

// roll draws the new count for one item: 0, or a uniform value in its range
func (e *Engine) roll(item domain.ItemDefinition) int {
	if e.rng.Float64() >= item.StockChance {
		return 0
	}
	span := item.Quantity.Max - item.Quantity.Min + 1
	return item.Quantity.Min + e.rng.IntN(span)
}

func (e *Engine) nextEpochLocked() domain.Epoch {
	return domain.Epoch{
		ID:       e.newID(),
		Sequence: e.store.Epoch().Sequence + 1,
	}
}

// SetItemStock overrides one item's count and returns the resulting state.
// Depending on policy the edit is published as a new epoch that wakes
// waiters like a restock; otherwise the returned event keeps the current
// epoch and is not emitted.
func (e *Engine) SetItemStock(name string, amount int) (domain.RestockEvent, error) {
	e.mu.Lock()
	if err := e.store.SetItemStock(name, amount); err != nil {
		e.mu.Unlock()
		return domain.RestockEvent{}, err
	}

	if !e.notifyOnStockEdit {
		evt := e.eventLocked(e.store.Epoch(), domain.ReasonStockEdit)
		e.mu.Unlock()
		e.log.Info().Str("item", name).Int("amount", amount).Msg("stock edited")
		return evt, nil
	}

	epoch := e.nextEpochLocked()
	e.store.StampEpoch(epoch)
	released := e.waiters.NotifyAll(epoch)
	evt := e.eventLocked(epoch, domain.ReasonStockEdit)
	e.mu.Unlock()

	e.log.Info().
		Str("item", name).
		Int("amount", amount).
		Str("restock_id", epoch.ID).
		Int("released_waiters", released).
		Msg("stock edited")
	e.emit(evt)
	return evt, nil
}

// eventLocked describes the stored state as of epoch
func (e *Engine) eventLocked(epoch domain.Epoch, reason domain.RestockReason) domain.RestockEvent {
	snap := e.store.Snapshot()
	return domain.RestockEvent{
		Epoch:                  epoch,
		Stock:                  snap.Stock,
		Reason:                 reason,
		At:                     e.now(),
		RestockIntervalSeconds: snap.RestockIntervalSeconds,
	}
}

// SetRestockInterval changes the restock interval and restarts the countdown
func (e *Engine) SetRestockInterval(seconds int) error {
	e.mu.Lock()
	err := e.store.SetRestockInterval(seconds)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.log.Info().Int("interval_seconds", seconds).Msg("restock interval updated")

	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	for _, l := range e.intervalListeners {
		l(seconds)
	}
	return nil
}

// WaitForNextRestock returns the current epoch straight away if knownEpochID
// is stale, otherwise it blocks until the next epoch is stamped, ctx is done
// or the configured maximum wait elapses.
func (e *Engine) WaitForNextRestock(ctx context.Context, knownEpochID string) (domain.Epoch, error) {
	e.mu.Lock()
	current := e.store.Epoch()
	if !current.IsZero() && knownEpochID != current.ID {
		e.mu.Unlock()
		return current, nil
	}
	w, err := e.waiters.Register(ctx)
	e.mu.Unlock()
	if err != nil {
		return domain.Epoch{}, err
	}

	var timeout <-chan time.Time
	if e.maxWait > 0 {
		timer := time.NewTimer(e.maxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case epoch := <-w.C():
		return epoch, nil
	case <-ctx.Done():
		return e.abandon(w, ctx.Err())
	case <-timeout:
		return e.abandon(w, ErrWaitTimeout)
	}
}

// abandon cancels w. If a restock released it first, that epoch wins.
func (e *Engine) abandon(w *Waiter, cause error) (domain.Epoch, error) {
	if err := e.waiters.Cancel(w); errors.Is(err, ErrAlreadyClosed) {
		select {
		case epoch := <-w.C():
			return epoch, nil
		default:
		}
	}
	return domain.Epoch{}, cause
}

// Waiting returns the number of suspended waiters
func (e *Engine) Waiting() int {
	return e.waiters.Len()
}

func (e *Engine) emit(evt domain.RestockEvent) {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()

	for _, l := range e.listeners {
		l(evt)
	}
}
