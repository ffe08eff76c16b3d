package store

import (
	"fmt"
	"sync"

	"github.com/fjod/go_cart/restock-service/internal/catalog"
	"github.com/fjod/go_cart/restock-service/internal/domain"
)

// DefaultRestockInterval is the restock interval in seconds when none is configured
const DefaultRestockInterval = 300

// MemoryStore implements InventoryStore with in-memory state
type MemoryStore struct {
	mu      sync.RWMutex
	catalog *catalog.Catalog

	stock map[string]int // item name -> count, nil until the first restock
	epoch domain.Epoch

	countdown      int
	countdownValid bool // false until the first restock or reset
	interval       int
}

// NewMemoryStore creates an empty inventory for the given catalog
func NewMemoryStore(c *catalog.Catalog, intervalSeconds int) (*MemoryStore, error) {
	if intervalSeconds <= 0 {
		return nil, fmt.Errorf("%w: restock interval must be positive, got %d", ErrInvalidAmount, intervalSeconds)
	}
	return &MemoryStore{
		catalog:  c,
		interval: intervalSeconds,
	}, nil
}

// Snapshot returns a consistent copy of the inventory
func (s *MemoryStore) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Snapshot{
		Stock:                  domain.CloneStock(s.stock),
		Epoch:                  s.epoch,
		SecondsUntilRestock:    s.countdown,
		RestockIntervalSeconds: s.interval,
	}
}

// Epoch returns the current restock epoch
func (s *MemoryStore) Epoch() domain.Epoch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Replace installs a full restock result
func (s *MemoryStore) Replace(stock map[string]int, epoch domain.Epoch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stock = domain.CloneStock(stock)
	s.epoch = epoch
	s.resetCountdownLocked()
}

// SetItemStock sets the count of a single item. The epoch is left alone.
func (s *MemoryStore) SetItemStock(name string, amount int) error {
	if _, ok := s.catalog.Lookup(name); !ok {
		return fmt.Errorf("%w: %q", ErrItemNotFound, name)
	}
	if amount < 0 {
		return fmt.Errorf("%w: stock amount must not be negative, got %d", ErrInvalidAmount, amount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stock == nil {
		s.stock = make(map[string]int, s.catalog.Len())
		for _, item := range s.catalog.Items() {
			s.stock[item.Name] = 0
		}
	}
	s.stock[name] = amount
	return nil
}

// StampEpoch marks the current stock as a new epoch and restarts the countdown
func (s *MemoryStore) StampEpoch(epoch domain.Epoch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = epoch
	s.resetCountdownLocked()
}

// SetRestockInterval updates the interval and resets the countdown to it.
// Remaining time of the running countdown is discarded, not pro-rated.
func (s *MemoryStore) SetRestockInterval(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w: restock interval must be positive, got %d", ErrInvalidAmount, seconds)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = seconds
	s.resetCountdownLocked()
	return nil
}

// Tick decrements the countdown by one second
func (s *MemoryStore) Tick() TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.countdownValid {
		s.resetCountdownLocked()
		return TickResult{Reset: true}
	}

	s.countdown--
	return TickResult{Due: s.countdown <= 0}
}

func (s *MemoryStore) resetCountdownLocked() {
	s.countdown = s.interval
	s.countdownValid = true
}
