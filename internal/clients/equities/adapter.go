package equities

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tickertronix/hub/internal/domain"
)

// Adapter implements the equities/crypto side of the upstream-client
// contract: given a symbol batch for one asset class, return a map from
// symbol to RawSnapshot. A missing symbol is simply absent — never an
// error.
type Adapter struct {
	client            *Client
	interRequestDelay time.Duration
	log               zerolog.Logger
}

// AdapterConfig configures an Adapter.
type AdapterConfig struct {
	InterRequestDelay time.Duration // default 500ms
}

// NewAdapter wraps a Client as an Adapter.
func NewAdapter(client *Client, cfg AdapterConfig, log zerolog.Logger) *Adapter {
	delay := cfg.InterRequestDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &Adapter{
		client:            client,
		interRequestDelay: delay,
		log:               log.With().Str("adapter", "equities").Logger(),
	}
}

// FetchSnapshots fetches raw snapshots for symbols of a single asset class.
// class must be AssetStocks or AssetCrypto.
func (a *Adapter) FetchSnapshots(ctx context.Context, class domain.AssetClass, symbols []string) (map[string]domain.RawSnapshot, error) {
	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	if class == domain.AssetCrypto {
		return a.fetchCrypto(ctx, upper)
	}
	return a.fetchStocks(ctx, upper)
}

func (a *Adapter) fetchStocks(ctx context.Context, symbols []string) (map[string]domain.RawSnapshot, error) {
	live, err := a.client.fetchSnapshots(ctx, "sip", symbols)
	if err != nil {
		a.log.Warn().Err(err).Msg("live snapshot batch failed, continuing with empty result")
		live = map[string]snapshotPayload{}
	}

	time.Sleep(a.interRequestDelay)

	delayed, err := a.client.fetchSnapshots(ctx, "iex", symbols)
	if err != nil {
		a.log.Warn().Err(err).Msg("delayed snapshot batch failed, continuing with empty result")
		delayed = map[string]snapshotPayload{}
	}

	out := make(map[string]domain.RawSnapshot)
	var missing []string
	for _, sym := range symbols {
		l, haveLive := live[sym]
		d, haveDelayed := delayed[sym]
		if !haveLive && !haveDelayed {
			missing = append(missing, sym)
			continue
		}
		out[sym] = mergeSnapshotPair(l, d)
	}

	if len(missing) == 0 {
		return out, nil
	}

	time.Sleep(a.interRequestDelay)
	fallback, err := a.fetchFallback(ctx, missing)
	if err != nil {
		a.log.Warn().Err(err).Msg("fallback quote/bar batch failed for missing symbols")
		return out, nil
	}
	for sym, snap := range fallback {
		out[sym] = snap
	}
	return out, nil
}

// fetchFallback recovers missing symbols via a latest-quote plus recent
// daily-bars path.
func (a *Adapter) fetchFallback(ctx context.Context, symbols []string) (map[string]domain.RawSnapshot, error) {
	quotes, err := a.client.fetchLatestQuotes(ctx, symbols)
	if err != nil {
		quotes = map[string]quotePayload{}
	}

	time.Sleep(a.interRequestDelay)

	bars, err := a.client.fetchDailyBars(ctx, symbols, 2)
	if err != nil {
		bars = map[string][]barPayload{}
	}

	out := make(map[string]domain.RawSnapshot)
	for _, sym := range symbols {
		q, haveQuote := quotes[sym]
		symBars := bars[sym]
		if !haveQuote && len(symBars) == 0 {
			continue
		}
		out[sym] = snapshotFromFallback(q, haveQuote, symBars)
	}
	return out, nil
}

func (a *Adapter) fetchCrypto(ctx context.Context, symbols []string) (map[string]domain.RawSnapshot, error) {
	quotes, err := a.client.fetchCryptoLatestQuotes(ctx, symbols)
	if err != nil {
		a.log.Warn().Err(err).Msg("crypto latest-quote batch failed, continuing with empty result")
		quotes = map[string]quotePayload{}
	}

	time.Sleep(a.interRequestDelay)

	bars, err := a.client.fetchCryptoDailyBars(ctx, symbols, 2)
	if err != nil {
		a.log.Warn().Err(err).Msg("crypto daily-bars batch failed, continuing with empty result")
		bars = map[string][]barPayload{}
	}

	out := make(map[string]domain.RawSnapshot)
	for _, sym := range symbols {
		q, haveQuote := quotes[sym]
		symBars := bars[sym]
		if !haveQuote && len(symBars) == 0 {
			continue
		}
		out[sym] = snapshotFromFallback(q, haveQuote, symBars)
	}
	return out, nil
}

// mergeSnapshotPair folds a live and a delayed (consolidated) snapshot
// payload into the common RawSnapshot shape the Normalizer consumes.
func mergeSnapshotPair(live, delayed snapshotPayload) domain.RawSnapshot {
	var snap domain.RawSnapshot

	if live.LatestTrade != nil {
		p := live.LatestTrade.Price
		snap.Last = &p
		t := live.LatestTrade.Timestamp
		snap.TradeTimestamp = &t
	}
	if live.LatestQuote != nil {
		bid, ask := live.LatestQuote.BidPrice, live.LatestQuote.AskPrice
		snap.Bid, snap.Ask = &bid, &ask
		if snap.Timestamp == nil {
			t := live.LatestQuote.Timestamp
			snap.Timestamp = &t
		}
	}
	if live.MinuteBar != nil {
		o, c := live.MinuteBar.Open, live.MinuteBar.Close
		snap.MinuteBarOpen, snap.MinuteBarClose = &o, &c
	}
	if delayed.DailyBar != nil {
		o, c := delayed.DailyBar.Open, delayed.DailyBar.Close
		snap.DailyBarOpen, snap.DailyBarClose = &o, &c
		if snap.Timestamp == nil {
			t := delayed.DailyBar.Timestamp
			snap.Timestamp = &t
		}
	}
	if delayed.PrevDaily != nil {
		o, c := delayed.PrevDaily.Open, delayed.PrevDaily.Close
		snap.PrevDailyOpen, snap.PrevDailyClose = &o, &c
	}

	return snap
}

// snapshotFromFallback builds a RawSnapshot from a latest-quote plus up to
// two trailing daily bars (today's and yesterday's, in provider order).
func snapshotFromFallback(q quotePayload, haveQuote bool, bars []barPayload) domain.RawSnapshot {
	var snap domain.RawSnapshot

	if haveQuote {
		bid, ask := q.BidPrice, q.AskPrice
		snap.Bid, snap.Ask = &bid, &ask
		t := q.Timestamp
		snap.Timestamp = &t
	}

	if len(bars) > 0 {
		latest := bars[len(bars)-1]
		o := latest.Open
		snap.DailyBarOpen = &o
		if snap.Timestamp == nil {
			t := latest.Timestamp
			snap.Timestamp = &t
		}
		// Requesting 2 trailing bars and getting only 1 back means there is
		// no prior session's bar to pair it with — the lone bar is today's
		// still-forming one, so its close is not yet final.
		if len(bars) > 1 {
			c := latest.Close
			snap.DailyBarClose = &c
		}
	}
	if len(bars) > 1 {
		prev := bars[len(bars)-2]
		o, c := prev.Open, prev.Close
		snap.PrevDailyOpen, snap.PrevDailyClose = &o, &c
	}

	return snap
}
