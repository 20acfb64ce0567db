package forex

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
)

func TestToProviderSpelling_StripsSeparatorAndUppercases(t *testing.T) {
	assert.Equal(t, "EURUSD", toProviderSpelling("eur/usd"))
	assert.Equal(t, "GBPJPY", toProviderSpelling("GBP/JPY"))
}

func TestAdapter_FetchSnapshots_MapsProviderPairsBackToCanonicalSymbols(t *testing.T) {
	var gotPairs string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPairs = r.URL.Query().Get("pairs")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteResponse{
			Quotes: []pairQuote{
				{Pair: "EURUSD", Price: 1.0850, PreviousClose: 1.0800, Bid: 1.08, Ask: 1.081, Timestamp: time.Now()},
			},
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{BatchSize: 8, BatchDelay: time.Millisecond}, zerolog.Nop())

	snaps, err := adapter.FetchSnapshots(context.Background(), []string{"EUR/USD"})
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", gotPairs)

	require.Contains(t, snaps, "EUR/USD")
	snap := snaps["EUR/USD"]
	require.NotNil(t, snap.Bid)
	assert.Equal(t, 1.08, *snap.Bid)
	require.NotNil(t, snap.Last)
	assert.Equal(t, 1.0850, *snap.Last)
	require.NotNil(t, snap.PrevDailyClose)
	assert.Equal(t, 1.0800, *snap.PrevDailyClose)
}

func TestAdapter_FetchSnapshots_ProducesNonDegenerateChangeFigure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteResponse{
			Quotes: []pairQuote{
				{Pair: "EURUSD", Price: 1.0850, PreviousClose: 1.0800, Bid: 1.0849, Ask: 1.0851, Timestamp: time.Now()},
			},
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{BatchSize: 8, BatchDelay: time.Millisecond}, zerolog.Nop())

	snaps, err := adapter.FetchSnapshots(context.Background(), []string{"EUR/USD"})
	require.NoError(t, err)

	snap := snaps["EUR/USD"]
	require.NotNil(t, snap.Last)
	require.NotNil(t, snap.PrevDailyClose)
	assert.NotEqual(t, *snap.PrevDailyClose, *snap.Last, "last and prev close must differ so daily change is non-zero")
}

func TestAdapter_FetchSnapshots_SplitsIntoBatchesOfBatchSize(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteResponse{Quotes: nil})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{
		BatchSize: 2, BatchDelay: time.Millisecond, CreditsPerMin: 100, CreditsPerDay: 1000,
	}, zerolog.Nop())

	symbols := []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD", "USD/CAD"}
	_, err := adapter.FetchSnapshots(context.Background(), symbols)
	require.NoError(t, err)
	assert.Equal(t, 3, requests, "5 symbols at batch size 2 makes 3 requests")
}

func TestAdapter_FetchSnapshots_StopsEarlyWhenCreditBudgetExhausted(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(quoteResponse{Quotes: nil})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k"}, zerolog.Nop())
	adapter := NewAdapter(client, AdapterConfig{
		BatchSize: 2, BatchDelay: time.Millisecond, CreditsPerMin: 2, CreditsPerDay: 1000,
	}, zerolog.Nop())

	symbols := []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/USD"}
	snaps, err := adapter.FetchSnapshots(context.Background(), symbols)
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.Equal(t, 1, requests, "only the first batch fits the per-minute budget")
}

func TestReserveCredits_GrantsPartialWhenWindowNearlyExhausted(t *testing.T) {
	a := &Adapter{creditsPerMin: 5, creditsPerDay: 1000}
	got := a.reserveCredits(3)
	assert.Equal(t, 3, got)
	got = a.reserveCredits(4)
	assert.Equal(t, 2, got, "only 2 credits remain in the minute window")
	got = a.reserveCredits(1)
	assert.Equal(t, 0, got, "window is fully spent")
}

func TestClient_FetchBatch_EmptyPairsShortCircuits(t *testing.T) {
	client := New(Config{BaseURL: "http://unused.invalid", APIKey: "k"}, zerolog.Nop())
	quotes, err := client.fetchBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestClient_FetchBatch_NonOKStatusIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, APIKey: "k"}, zerolog.Nop())
	_, err := client.fetchBatch(context.Background(), []string{"EURUSD"})
	assert.Error(t, err)
}
