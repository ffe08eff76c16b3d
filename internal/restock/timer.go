package restock

import (
	"context"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/domain"
)

// Run drives the restock countdown until ctx is cancelled
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-ctx.Done():
			return
		}
	}
}

// tick advances the countdown by one step and restocks when it runs out
func (e *Engine) tick() {
	e.mu.Lock()
	res := e.store.Tick()
	if res.Reset {
		e.mu.Unlock()
		e.log.Warn().Msg("restock countdown was not initialised, reset to interval")
		return
	}
	if !res.Due {
		e.mu.Unlock()
		return
	}

	evt := e.restockLocked(domain.ReasonTimer)
	e.mu.Unlock()
	e.emit(evt)
}
