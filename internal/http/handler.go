package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/fjod/go_cart/restock-service/internal/restock"
	"github.com/rs/zerolog"
)

// RestockEngine is the subset of the restock engine the handlers use
type RestockEngine interface {
	Snapshot() domain.Snapshot
	ForceRestock() domain.RestockEvent
	SetItemStock(name string, amount int) (domain.RestockEvent, error)
	SetRestockInterval(seconds int) error
	WaitForNextRestock(ctx context.Context, knownEpochID string) (domain.Epoch, error)
}

type Handler struct {
	engine RestockEngine
	log    zerolog.Logger
}

func NewHandler(engine RestockEngine, log zerolog.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

type StockResponse struct {
	GearStock        map[string]int `json:"gearStock"`
	TimeUntilRestock int            `json:"timeUntilRestock"`
	RestockID        *string        `json:"restockId"`
}

type RestockResponse struct {
	Message   string         `json:"message"`
	RestockID string         `json:"restockId"`
	GearStock map[string]int `json:"gearStock"`
}

type ListenResponse struct {
	RestockID string `json:"restockId"`
}

type SetTimerRequest struct {
	NewInterval *float64 `json:"newInterval"`
}

type SetStockRequest struct {
	ItemName string   `json:"itemName"`
	Amount   *float64 `json:"amount"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondText(w, http.StatusOK, "Server is healthy and running.")
}

// GetStock handles GET /stock
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()

	resp := StockResponse{
		GearStock:        snap.Stock,
		TimeUntilRestock: snap.SecondsUntilRestock,
	}
	if !snap.Epoch.IsZero() {
		id := snap.Epoch.ID
		resp.RestockID = &id
	}
	respondJSON(w, http.StatusOK, resp)
}

// ForceRestock handles POST /force-restock
func (h *Handler) ForceRestock(w http.ResponseWriter, r *http.Request) {
	evt := h.engine.ForceRestock()
	respondJSON(w, http.StatusOK, RestockResponse{
		Message:   "Stock has been forcefully restocked!",
		RestockID: evt.Epoch.ID,
		GearStock: evt.Stock,
	})
}

// SetTimer handles POST /set-timer
func (h *Handler) SetTimer(w http.ResponseWriter, r *http.Request) {
	var req SetTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	seconds, ok := wholeNumber(req.NewInterval)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_amount", "newInterval must be a whole number of seconds")
		return
	}

	if err := h.engine.SetRestockInterval(seconds); err != nil {
		mapEngineError(w, err)
		return
	}
	respondText(w, http.StatusOK, fmt.Sprintf("Restock interval updated to %d seconds.", seconds))
}

// SetStock handles POST /set-stock
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ItemName == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "itemName is required")
		return
	}
	amount, ok := wholeNumber(req.Amount)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be a whole number")
		return
	}

	evt, err := h.engine.SetItemStock(req.ItemName, amount)
	if err != nil {
		mapEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RestockResponse{
		Message:   fmt.Sprintf("Stock for %s set to %d.", req.ItemName, amount),
		RestockID: evt.Epoch.ID,
		GearStock: evt.Stock,
	})
}

// ListenForRestock handles GET /listen-for-restock. The request is held
// open until the next restock unless currentId is already stale.
func (h *Handler) ListenForRestock(w http.ResponseWriter, r *http.Request) {
	known := r.URL.Query().Get("currentId")

	epoch, err := h.engine.WaitForNextRestock(r.Context(), known)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, ListenResponse{RestockID: epoch.ID})
	case errors.Is(err, restock.ErrWaitTimeout):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client gone or server shutting down; either way it should poll again
		h.log.Debug().Str("current_id", known).Msg("listener released without restock")
		w.WriteHeader(http.StatusNoContent)
	default:
		mapEngineError(w, err)
	}
}

func wholeNumber(v *float64) (int, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v != math.Trunc(*v) {
		return 0, false
	}
	if *v > math.MaxInt32 || *v < math.MinInt32 {
		return 0, false
	}
	return int(*v), true
}
