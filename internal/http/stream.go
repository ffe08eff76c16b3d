package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/restock"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send control frames
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamFrame is pushed to websocket clients on every restock
type StreamFrame struct {
	RestockID string         `json:"restockId"`
	GearStock map[string]int `json:"gearStock"`
}

// Stream handles GET /stream. The connection receives the current inventory
// unless currentId is up to date, then one frame per restock.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan StreamFrame)
	closeCode := make(chan int, 1)

	go h.readPump(ws, cancel)
	go h.waitLoop(ctx, r.URL.Query().Get("currentId"), frames, closeCode)

	h.writePump(ctx, ws, frames, closeCode)
}

// readPump discards client frames and cancels ctx once the peer goes away
func (h *Handler) readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

// waitLoop turns restocks into frames until ctx is done
func (h *Handler) waitLoop(ctx context.Context, known string, frames chan<- StreamFrame, closeCode chan<- int) {
	for {
		_, err := h.engine.WaitForNextRestock(ctx, known)
		if errors.Is(err, restock.ErrWaitTimeout) {
			continue
		}
		if err != nil {
			if errors.Is(err, restock.ErrTooManyWaiters) {
				closeCode <- websocket.CloseTryAgainLater
			} else {
				closeCode <- websocket.CloseGoingAway
			}
			return
		}

		// Read the snapshot so the frame's ID and stock always belong together
		snap := h.engine.Snapshot()
		known = snap.Epoch.ID

		select {
		case frames <- StreamFrame{RestockID: snap.Epoch.ID, GearStock: snap.Stock}:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handler) writePump(ctx context.Context, ws *websocket.Conn, frames <-chan StreamFrame, closeCode <-chan int) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-frames:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(frame); err != nil {
				h.log.Debug().Err(err).Msg("websocket write error")
				return
			}

		case code := <-closeCode:
			if ctx.Err() != nil {
				return
			}
			msg := websocket.FormatCloseMessage(code, "")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
