// Package normalize implements the hub's price-derivation pipeline: given
// one or two raw upstream snapshots for a symbol, it produces a single
// coherent PriceRecord.
package normalize

import (
	"time"

	"github.com/tickertronix/hub/internal/domain"
)

// Normalize derives a PriceRecord for symbol/class from a live snapshot and
// a baseline (delayed-consolidated) snapshot. If delayed is nil, live also
// serves as the baseline. now is the reference instant used to decide
// whether the live trade falls on the current UTC date.
//
// Returns ok=false if last remains null after every fallback — the caller
// must drop the symbol from this refresh rather than write a partial row.
func Normalize(symbol string, class domain.AssetClass, live, delayed *domain.RawSnapshot, now time.Time) (domain.PriceRecord, bool) {
	if live == nil {
		live = &domain.RawSnapshot{}
	}
	baseline := delayed
	if baseline == nil {
		baseline = live
	}

	last := deriveLast(live, baseline, now)
	if last == nil {
		return domain.PriceRecord{}, false
	}

	open := firstNonNil(baseline.DailyBarOpen, live.MinuteBarOpen, baseline.PrevDailyOpen)
	prevClose := firstNonNil(baseline.PrevDailyClose, baseline.DailyBarOpen)

	if prevClose == nil {
		prevClose = firstNonNil(open, last)
	}
	if open == nil {
		open = firstNonNil(prevClose, last)
	}

	ts := deriveTimestamp(live, baseline)

	date := now.UTC().Format("2006-01-02")
	if ts != nil {
		date = ts.UTC().Format("2006-01-02")
	}

	return domain.PriceRecord{
		Symbol:      symbol,
		AssetClass:  class,
		Date:        date,
		OpenPrice:   open,
		PrevClose:   prevClose,
		LastPrice:   *last,
		LastUpdated: derefTime(ts, now),
	}, true
}

// deriveLast implements step 2: last := live.trade_price ?? live.minute_bar.close
// ?? baseline.daily_bar.close ?? mid(live.bid, live.ask), with the weekend/
// after-hours tie-break: if the trade timestamp exists and is not on the
// current UTC date, prefer the minute-bar close over the stale trade print.
func deriveLast(live, baseline *domain.RawSnapshot, now time.Time) *float64 {
	if live.Last != nil && live.TradeTimestamp != nil {
		if !sameUTCDate(*live.TradeTimestamp, now) && live.MinuteBarClose != nil {
			return live.MinuteBarClose
		}
		return live.Last
	}
	if live.Last != nil {
		return live.Last
	}
	if live.MinuteBarClose != nil {
		return live.MinuteBarClose
	}
	if baseline.DailyBarClose != nil {
		return baseline.DailyBarClose
	}
	if m := mid(live.Bid, live.Ask); m != nil {
		return m
	}
	return nil
}

// mid computes (bid+ask)/2 if both are positive, else whichever is
// positive, else a zero value (never nil — a quote with no usable side is
// still "present", callers above fall through to nil only when
// no bid/ask exist at all).
func mid(bid, ask *float64) *float64 {
	if bid == nil && ask == nil {
		return nil
	}
	bidPositive := bid != nil && *bid > 0
	askPositive := ask != nil && *ask > 0
	switch {
	case bidPositive && askPositive:
		v := (*bid + *ask) / 2
		return &v
	case bidPositive:
		v := *bid
		return &v
	case askPositive:
		v := *ask
		return &v
	default:
		v := 0.0
		return &v
	}
}

// deriveTimestamp implements step 6: the first non-null of live trade,
// live quote, live minute bar (approximated by the live snapshot's own
// timestamp when a minute bar is present), baseline daily bar.
func deriveTimestamp(live, baseline *domain.RawSnapshot) *time.Time {
	if live.TradeTimestamp != nil {
		return live.TradeTimestamp
	}
	if live.Timestamp != nil && (live.Bid != nil || live.Ask != nil) {
		return live.Timestamp
	}
	if live.Timestamp != nil && live.MinuteBarClose != nil {
		return live.Timestamp
	}
	if baseline.Timestamp != nil {
		return baseline.Timestamp
	}
	return nil
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func derefTime(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}
