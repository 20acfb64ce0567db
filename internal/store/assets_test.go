package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickertronix/hub/internal/domain"
)

func TestAddAsset_IdempotentOnDuplicate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))
	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))

	assets, err := s.ListAssets(nil, true)
	require.NoError(t, err)
	assert.Len(t, assets, 1)
}

func TestRemoveAsset_CascadesPriceHistory(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("AAPL", domain.AssetStocks))
	require.NoError(t, s.UpsertPrice("AAPL", domain.AssetStocks, "2026-03-10", nil, nil, 150, time.Now()))

	require.NoError(t, s.RemoveAsset("AAPL", domain.AssetStocks))

	assets, err := s.ListAssets(nil, true)
	require.NoError(t, err)
	assert.Empty(t, assets)

	prices, err := s.GetLatestPrices(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, prices, "removing an asset must cascade its price rows")
}

func TestSetAssetEnabled_FiltersListAssets(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("EURUSD", domain.AssetForex))
	require.NoError(t, s.SetAssetEnabled("EURUSD", domain.AssetForex, false))

	enabledOnly, err := s.ListAssets(nil, false)
	require.NoError(t, err)
	assert.Empty(t, enabledOnly)

	all, err := s.ListAssets(nil, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Enabled)
}

func TestCountEnabledAssets(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddAsset("BTCUSD", domain.AssetCrypto))
	require.NoError(t, s.AddAsset("ETHUSD", domain.AssetCrypto))
	require.NoError(t, s.SetAssetEnabled("ETHUSD", domain.AssetCrypto, false))

	count, err := s.CountEnabledAssets(domain.AssetCrypto)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
