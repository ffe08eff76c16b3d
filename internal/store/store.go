package store

import (
	"errors"

	"github.com/fjod/go_cart/restock-service/internal/domain"
)

// Common errors returned by the store
var (
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidAmount = errors.New("invalid amount")
)

// TickResult reports what a single countdown step did
type TickResult struct {
	// Due is set when the countdown reached zero and a restock should run
	Due bool
	// Reset is set when the countdown was uninitialised and got reset to the
	// interval instead of being decremented
	Reset bool
}

// InventoryStore defines the interface for inventory state operations.
// Mutating methods are expected to be called by a single writer.
type InventoryStore interface {
	// Snapshot returns a consistent copy of stock, epoch and countdown
	Snapshot() domain.Snapshot

	// Epoch returns the current restock epoch
	Epoch() domain.Epoch

	// Replace swaps the whole stock mapping and epoch together and resets the
	// countdown to the restock interval
	Replace(stock map[string]int, epoch domain.Epoch)

	// SetItemStock overrides the count of a single catalog item
	SetItemStock(name string, amount int) error

	// StampEpoch sets a new epoch for the current stock and resets the countdown
	StampEpoch(epoch domain.Epoch)

	// SetRestockInterval changes the interval and restarts the countdown from it
	SetRestockInterval(seconds int) error

	// Tick advances the countdown by one second
	Tick() TickResult
}
