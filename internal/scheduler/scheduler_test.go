package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertronix/hub/internal/clients/equities"
	"github.com/tickertronix/hub/internal/clients/forex"
	"github.com/tickertronix/hub/internal/database"
	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	db, err := database.New(database.Config{Path: filepath.Join(dir, "hub.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.New(db, zerolog.Nop())
}

func newStockSnapshotServer(t *testing.T, symbol string, price float64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stocks/snapshots", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("feed") == "sip" {
			_, _ = w.Write([]byte(`{"snapshots":{"` + symbol + `":{"latestTrade":{"p":` + floatStr(price) + `,"t":"2026-03-10T15:00:00Z"}}}}`))
			return
		}
		_, _ = w.Write([]byte(`{"snapshots":{}}`))
	})
	mux.HandleFunc("/v2/stocks/quotes/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":{}}`))
	})
	mux.HandleFunc("/v2/stocks/bars", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bars":{}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func floatStr(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func newTestScheduler(t *testing.T, s *store.Store, stockServerURL string) *Scheduler {
	t.Helper()
	eqClient := equities.New(equities.Config{BaseURL: stockServerURL, APIKey: "k"}, zerolog.Nop())
	eqAdapter := equities.NewAdapter(eqClient, equities.AdapterConfig{InterRequestDelay: time.Millisecond}, zerolog.Nop())

	fxServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quotes":[]}`))
	}))
	t.Cleanup(fxServer.Close)
	fxClient := forex.New(forex.Config{BaseURL: fxServer.URL, APIKey: "k"}, zerolog.Nop())
	fxAdapter := forex.NewAdapter(fxClient, forex.AdapterConfig{BatchDelay: time.Millisecond}, zerolog.Nop())

	return New(s, eqAdapter, fxAdapter, Config{GeneralInterval: time.Hour, ForexInterval: time.Hour}, zerolog.Nop())
}

func TestTryRunEquities_PersistsAndFiresOnUpdate(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))

	stockServer := newStockSnapshotServer(t, "AAPL", 150.25)
	sched := newTestScheduler(t, s, stockServer.URL)

	fired := make(chan []domain.PriceUpdate, 1)
	sched.SetOnUpdate(func(u []domain.PriceUpdate) { fired <- u })

	sched.tryRunEquities(context.Background())

	select {
	case updates := <-fired:
		require.Len(t, updates, 1)
		assert.Equal(t, "AAPL", updates[0].Symbol)
		assert.Equal(t, domain.AssetStocks, updates[0].AssetClass)
	case <-time.After(time.Second):
		t.Fatal("onUpdate was not called")
	}

	prices, err := s.GetLatestPrices(nil, nil)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 150.25, prices[0].LastPrice)
}

func TestTryRunEquities_DropsOverlappingTick(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))

	stockServer := newStockSnapshotServer(t, "AAPL", 150.25)
	sched := newTestScheduler(t, s, stockServer.URL)

	sched.mu.Lock()
	sched.equitiesDispatching = true
	sched.mu.Unlock()

	var onUpdateCalled bool
	sched.SetOnUpdate(func([]domain.PriceUpdate) { onUpdateCalled = true })

	sched.tryRunEquities(context.Background())

	assert.False(t, onUpdateCalled, "a dropped tick must not fire onUpdate")
	prices, err := s.GetLatestPrices(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, prices, "a dropped tick must not persist anything")
}

func TestRefreshClass_NoEnabledAssetsReturnsNoUpdatesWithoutFetch(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s, "http://unused.invalid")

	updates := sched.refreshClass(context.Background(), domain.AssetStocks)
	assert.Empty(t, updates)
}

func TestStatus_ReportsIntervalsAndRunningState(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s, "http://unused.invalid")

	status := sched.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 3600, status.Interval)
	assert.Nil(t, status.LastUpdate)
}

func TestTriggerRefresh_RunsBothJobsAndUpdatesLastRunTimestamps(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))

	stockServer := newStockSnapshotServer(t, "AAPL", 200)
	sched := newTestScheduler(t, s, stockServer.URL)

	sched.TriggerRefresh(context.Background())

	require.Eventually(t, func() bool {
		status := sched.Status()
		return status.LastUpdate != nil && status.LastForexUpdate != nil
	}, time.Second, 10*time.Millisecond)
}
