package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/tickertronix/hub/internal/domain"
)

// pushHub tracks connected /ws/prices clients and fans out pre-encoded
// frames whenever the scheduler commits changed prices or a device's
// settings watermark bumps, so a device can skip its own poll loop
// entirely.
type pushHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// clientBuffer bounds how many frames a slow client can fall behind by
// before new ones are dropped for it; the client's own next REST poll
// recovers any state it missed.
const clientBuffer = 16

func newPushHub() *pushHub {
	return &pushHub{clients: make(map[chan []byte]struct{})}
}

func (h *pushHub) register() chan []byte {
	ch := make(chan []byte, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *pushHub) unregister(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *pushHub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (h *pushHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

type settingsUpdateFrame struct {
	SettingsUpdatedAt time.Time `json:"settings_updated_at"`
}

// priceUpdateFrame marshals one domain.PriceUpdate as the flat
// {symbol, asset_class, last_updated} frame devices expect.
func priceUpdateFrame(u domain.PriceUpdate) []byte {
	b, _ := json.Marshal(u)
	return b
}

// settingsFrame marshals the {settings_updated_at} frame sent after a
// device's settings are written.
func settingsFrame(updatedAt time.Time) []byte {
	b, _ := json.Marshal(settingsUpdateFrame{SettingsUpdatedAt: updatedAt})
	return b
}

// handleWebSocketPrices serves GET /ws/prices: an additive push channel
// alongside the REST poll surface. Each message is either a price-update
// frame or a settings-update frame; the hub never pushes the full record,
// keeping one source of truth for the price/settings shape (the REST
// endpoints).
func (s *Server) handleWebSocketPrices(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ch := s.hub.register()
	defer s.hub.unregister(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case frame, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		}
	}
}
