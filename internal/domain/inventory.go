package domain

import (
	"maps"
	"time"
)

// RestockReason identifies what caused a new epoch to be stamped
type RestockReason string

const (
	ReasonStartup   RestockReason = "startup"
	ReasonTimer     RestockReason = "timer"
	ReasonForced    RestockReason = "forced"
	ReasonStockEdit RestockReason = "stock_edit"
)

// Epoch identifies the inventory as of the most recent restock.
// ID is opaque to clients; Sequence only ever grows and orders epochs.
type Epoch struct {
	ID       string
	Sequence uint64
}

// IsZero reports whether no restock has happened yet
func (e Epoch) IsZero() bool {
	return e.ID == ""
}

// Snapshot is a consistent copy of the inventory state
type Snapshot struct {
	Stock                  map[string]int // nil before the first restock
	Epoch                  Epoch
	SecondsUntilRestock    int
	RestockIntervalSeconds int
}

// RestockEvent is emitted every time a new epoch is stamped
type RestockEvent struct {
	Epoch  Epoch
	Stock  map[string]int
	Reason RestockReason
	At     time.Time

	// RestockIntervalSeconds is the interval in force when the event was built
	RestockIntervalSeconds int
}

// CloneStock copies a stock mapping, preserving nil
func CloneStock(stock map[string]int) map[string]int {
	if stock == nil {
		return nil
	}
	return maps.Clone(stock)
}
