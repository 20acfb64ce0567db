package forex

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tickertronix/hub/internal/domain"
)

// Adapter implements the forex side of the upstream-client contract with
// a local per-minute/per-day credit budget. Each symbol consumes one
// credit; once the budget is exhausted for the current window, the
// adapter returns an empty map for the remainder of the job instead of
// erroring — the scheduler picks the rest up on the next tick.
type Adapter struct {
	client        *Client
	batchSize     int
	batchDelay    time.Duration
	creditsPerMin int
	creditsPerDay int
	log           zerolog.Logger

	mu           sync.Mutex
	minuteWindow time.Time
	minuteSpent  int
	dayWindow    time.Time
	daySpent     int
}

// AdapterConfig configures an Adapter. Zero values take the provider's
// batch size 8, batch delay 10s, 8 credits/min, 800 credits/day.
type AdapterConfig struct {
	BatchSize     int
	BatchDelay    time.Duration
	CreditsPerMin int
	CreditsPerDay int
}

// NewAdapter wraps a Client as an Adapter.
func NewAdapter(client *Client, cfg AdapterConfig, log zerolog.Logger) *Adapter {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}
	batchDelay := cfg.BatchDelay
	if batchDelay <= 0 {
		batchDelay = 10 * time.Second
	}
	creditsPerMin := cfg.CreditsPerMin
	if creditsPerMin <= 0 {
		creditsPerMin = 8
	}
	creditsPerDay := cfg.CreditsPerDay
	if creditsPerDay <= 0 {
		creditsPerDay = 800
	}
	return &Adapter{
		client:        client,
		batchSize:     batchSize,
		batchDelay:    batchDelay,
		creditsPerMin: creditsPerMin,
		creditsPerDay: creditsPerDay,
		log:           log.With().Str("adapter", "forex").Logger(),
	}
}

// FetchSnapshots fetches raw snapshots for a batch of forex pairs, given
// in the hub's canonical BASE/QUOTE form (e.g. "EUR/USD").
func (a *Adapter) FetchSnapshots(ctx context.Context, symbols []string) (map[string]domain.RawSnapshot, error) {
	out := make(map[string]domain.RawSnapshot)

	for i := 0; i < len(symbols); i += a.batchSize {
		end := i + a.batchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[i:end]

		granted := a.reserveCredits(len(batch))
		if granted == 0 {
			a.log.Info().Int("remaining_symbols", len(symbols)-i).Msg("forex credit budget exhausted, deferring remainder to next tick")
			break
		}
		toFetch := batch[:granted]

		providerPairs := make([]string, len(toFetch))
		bySymbol := make(map[string]string, len(toFetch))
		for j, sym := range toFetch {
			p := toProviderSpelling(sym)
			providerPairs[j] = p
			bySymbol[p] = sym
		}

		quotes, err := a.client.fetchBatch(ctx, providerPairs)
		if err != nil {
			a.log.Warn().Err(err).Msg("forex quote batch failed, continuing with next batch")
		} else {
			for pair, q := range quotes {
				sym, ok := bySymbol[pair]
				if !ok {
					continue
				}

				last := q.Price
				if last == 0 {
					last = q.Close
				}
				prevClose := q.PreviousClose
				if prevClose == 0 {
					prevClose = last
				}
				ts := q.Timestamp

				snap := domain.RawSnapshot{
					Timestamp: &ts,
				}
				if last != 0 {
					snap.Last = &last
					snap.TradeTimestamp = &ts
				}
				if prevClose != 0 {
					snap.PrevDailyClose = &prevClose
					snap.DailyBarOpen = &prevClose
				}
				if q.Bid > 0 {
					bid := q.Bid
					snap.Bid = &bid
				}
				if q.Ask > 0 {
					ask := q.Ask
					snap.Ask = &ask
				}
				out[sym] = snap
			}
		}

		if granted < len(batch) {
			break
		}
		if end < len(symbols) {
			time.Sleep(a.batchDelay)
		}
	}

	return out, nil
}

// reserveCredits atomically reserves up to want credits from the current
// minute and day windows, resetting each window when it rolls over, and
// returns how many were actually granted (0 if the budget is exhausted).
func (a *Adapter) reserveCredits(want int) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if now.Sub(a.minuteWindow) >= time.Minute {
		a.minuteWindow = now
		a.minuteSpent = 0
	}
	if now.Sub(a.dayWindow) >= 24*time.Hour {
		a.dayWindow = now
		a.daySpent = 0
	}

	minuteLeft := a.creditsPerMin - a.minuteSpent
	dayLeft := a.creditsPerDay - a.daySpent

	granted := want
	if minuteLeft < granted {
		granted = minuteLeft
	}
	if dayLeft < granted {
		granted = dayLeft
	}
	if granted < 0 {
		granted = 0
	}

	a.minuteSpent += granted
	a.daySpent += granted
	return granted
}

// toProviderSpelling converts the hub's canonical "BASE/QUOTE" form to the
// provider's spelling ("BASEQUOTE", no separator).
func toProviderSpelling(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(symbol), "/", "")
}
