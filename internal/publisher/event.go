package publisher

import (
	"encoding/json"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/domain"
)

// EventPayload is the wire shape of a restock event on every sink
type EventPayload struct {
	RestockID string         `json:"restockId"`
	Sequence  uint64         `json:"sequence"`
	Reason    string         `json:"reason"`
	GearStock map[string]int `json:"gearStock"`
	At        time.Time      `json:"at"`
}

// EncodeEvent serialises a restock event for publishing
func EncodeEvent(evt domain.RestockEvent) ([]byte, error) {
	return json.Marshal(EventPayload{
		RestockID: evt.Epoch.ID,
		Sequence:  evt.Epoch.Sequence,
		Reason:    string(evt.Reason),
		GearStock: evt.Stock,
		At:        evt.At.UTC(),
	})
}
