package equities

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertronix/hub/internal/domain"
)

func TestMergeSnapshotPair_LiveTradeWinsOverDailyBar(t *testing.T) {
	now := time.Now()
	live := snapshotPayload{
		LatestTrade: &tradePayload{Price: 101.5, Timestamp: now},
		LatestQuote: &quotePayload{BidPrice: 100, AskPrice: 102, Timestamp: now},
	}
	delayed := snapshotPayload{
		DailyBar:  &barPayload{Open: 95, Close: 98, Timestamp: now},
		PrevDaily: &barPayload{Open: 90, Close: 94, Timestamp: now},
	}

	snap := mergeSnapshotPair(live, delayed)
	require.NotNil(t, snap.Last)
	assert.Equal(t, 101.5, *snap.Last)
	require.NotNil(t, snap.DailyBarOpen)
	assert.Equal(t, 95.0, *snap.DailyBarOpen)
	require.NotNil(t, snap.PrevDailyClose)
	assert.Equal(t, 94.0, *snap.PrevDailyClose)
}

func TestSnapshotFromFallback_UsesMostRecentOfTwoBars(t *testing.T) {
	now := time.Now()
	bars := []barPayload{
		{Open: 90, Close: 94, Timestamp: now.Add(-24 * time.Hour)},
		{Open: 95, Close: 98, Timestamp: now},
	}
	snap := snapshotFromFallback(quotePayload{}, false, bars)
	require.NotNil(t, snap.DailyBarOpen)
	assert.Equal(t, 95.0, *snap.DailyBarOpen)
	require.NotNil(t, snap.PrevDailyOpen)
	assert.Equal(t, 90.0, *snap.PrevDailyOpen)
}

func TestSnapshotFromFallback_NoQuoteNoBarsProducesEmptySnapshot(t *testing.T) {
	snap := snapshotFromFallback(quotePayload{}, false, nil)
	assert.Nil(t, snap.Bid)
	assert.Nil(t, snap.DailyBarOpen)
}

func TestSnapshotFromFallback_SingleBarLeavesDailyBarCloseNil(t *testing.T) {
	now := time.Now()
	bars := []barPayload{
		{Open: 41500, Close: 42005, Timestamp: now},
	}
	snap := snapshotFromFallback(quotePayload{}, false, bars)
	require.NotNil(t, snap.DailyBarOpen)
	assert.Equal(t, 41500.0, *snap.DailyBarOpen)
	assert.Nil(t, snap.DailyBarClose, "a lone bar with no prior session bar is still in progress")
}

func TestAdapter_FetchSnapshots_FallsBackForMissingSymbols(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stocks/snapshots", func(w http.ResponseWriter, r *http.Request) {
		feed := r.URL.Query().Get("feed")
		w.Header().Set("Content-Type", "application/json")
		if feed == "sip" {
			_ = json.NewEncoder(w).Encode(snapshotEnvelope{
				Snapshots: map[string]snapshotPayload{
					"AAPL": {LatestTrade: &tradePayload{Price: 150, Timestamp: time.Now()}},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(snapshotEnvelope{Snapshots: map[string]snapshotPayload{}})
	})
	mux.HandleFunc("/v2/stocks/quotes/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteEnvelope{
			Quotes: map[string]quotePayload{"MSFT": {BidPrice: 300, AskPrice: 301, Timestamp: time.Now()}},
		})
	})
	mux.HandleFunc("/v2/stocks/bars", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(barsEnvelope{Bars: map[string][]barPayload{}})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "test"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{InterRequestDelay: time.Millisecond}, zerolog.Nop())

	snaps, err := adapter.FetchSnapshots(context.Background(), domain.AssetStocks, []string{"AAPL", "MSFT"})
	require.NoError(t, err)

	require.Contains(t, snaps, "AAPL")
	require.NotNil(t, snaps["AAPL"].Last)
	assert.Equal(t, 150.0, *snaps["AAPL"].Last)

	require.Contains(t, snaps, "MSFT")
	require.NotNil(t, snaps["MSFT"].Bid)
	assert.Equal(t, 300.0, *snaps["MSFT"].Bid)
}

func TestAdapter_FetchSnapshots_CryptoWeekendSingleBarStaysInProgress(t *testing.T) {
	now := time.Now()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1beta3/crypto/us/latest/quotes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cryptoQuoteEnvelope{
			Quotes: map[string]quotePayload{"BTCUSD": {BidPrice: 42000, AskPrice: 42010, Timestamp: now}},
		})
	})
	mux.HandleFunc("/v1beta3/crypto/us/bars", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cryptoBarEnvelope{
			Bars: map[string][]barPayload{
				"BTCUSD": {{Open: 41500, Close: 42005, Timestamp: now}},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "test"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{InterRequestDelay: time.Millisecond}, zerolog.Nop())

	snaps, err := adapter.FetchSnapshots(context.Background(), domain.AssetCrypto, []string{"BTCUSD"})
	require.NoError(t, err)

	snap := snaps["BTCUSD"]
	require.NotNil(t, snap.DailyBarOpen)
	assert.Equal(t, 41500.0, *snap.DailyBarOpen)
	assert.Nil(t, snap.DailyBarClose, "the only trailing bar returned is today's still-forming one")
	require.NotNil(t, snap.Bid)
	assert.Equal(t, 42000.0, *snap.Bid)
}
