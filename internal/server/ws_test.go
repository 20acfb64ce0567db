package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tickertronix/hub/internal/domain"
)

func TestPushHub_BroadcastNotifiesAllRegisteredClients(t *testing.T) {
	h := newPushHub()
	a := h.register()
	b := h.register()

	h.broadcast([]byte(`{"symbol":"AAPL"}`))

	select {
	case msg := <-a:
		assert.Equal(t, `{"symbol":"AAPL"}`, string(msg))
	default:
		t.Fatal("client a did not receive the broadcast")
	}
	select {
	case msg := <-b:
		assert.Equal(t, `{"symbol":"AAPL"}`, string(msg))
	default:
		t.Fatal("client b did not receive the broadcast")
	}
}

func TestPushHub_BroadcastIsNonBlockingForAFullBuffer(t *testing.T) {
	h := newPushHub()
	ch := h.register()

	for i := 0; i < clientBuffer+1; i++ {
		h.broadcast([]byte("x")) // must never block, even once ch's buffer is full
	}

	assert.Len(t, h.clients, 1)
}

func TestPushHub_UnregisterStopsFutureBroadcastsAndClosesChannel(t *testing.T) {
	h := newPushHub()
	ch := h.register()
	h.unregister(ch)

	_, ok := <-ch
	assert.False(t, ok, "unregister must close the channel")

	h.broadcast([]byte("x"))
	assert.Empty(t, h.clients)
}

func TestPushHub_CloseAllClosesEveryRegisteredChannel(t *testing.T) {
	h := newPushHub()
	a := h.register()
	b := h.register()

	h.closeAll()

	_, okA := <-a
	_, okB := <-b
	assert.False(t, okA)
	assert.False(t, okB)
	assert.Empty(t, h.clients)
}

func TestPriceUpdateFrame_MarshalsFlatShape(t *testing.T) {
	u := domain.PriceUpdate{Symbol: "AAPL", AssetClass: domain.AssetStocks, LastUpdated: time.Now()}
	assert.Contains(t, string(priceUpdateFrame(u)), `"symbol":"AAPL"`)
}

func TestSettingsFrame_MarshalsFlatShape(t *testing.T) {
	assert.Contains(t, string(settingsFrame(time.Now())), `"settings_updated_at"`)
}
