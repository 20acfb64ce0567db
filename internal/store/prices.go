package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tickertronix/hub/internal/domain"
)

// UpsertPrice writes a normalized price for (symbol, class, date). If a row
// already exists for that key, last_price and last_updated are always
// overwritten; open_price and prev_close are sticky — each is overwritten
// only when the caller supplies a non-null value that differs from (or the
// existing value is null). If no row exists, one is inserted with the
// supplied fields.
func (s *Store) UpsertPrice(symbol string, class domain.AssetClass, date string, open, prevClose *float64, last float64, now time.Time) error {
	var existingOpen, existingPrevClose sql.NullFloat64
	var exists bool

	row := s.conn().QueryRow(`
		SELECT open_price, prev_close FROM asset_prices
		WHERE symbol = ? AND asset_class = ? AND date = ?
	`, symbol, string(class), date)
	err := row.Scan(&existingOpen, &existingPrevClose)
	switch {
	case err == sql.ErrNoRows:
		exists = false
	case err != nil:
		return fmt.Errorf("failed to read existing price for %s/%s/%s: %w", symbol, class, date, err)
	default:
		exists = true
	}

	if !exists {
		_, err := s.conn().Exec(`
			INSERT INTO asset_prices (symbol, asset_class, date, open_price, prev_close, last_price, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, symbol, string(class), date, nullableFloat(open), nullableFloat(prevClose), last, now.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert price for %s/%s/%s: %w", symbol, class, date, err)
		}
		return nil
	}

	finalOpen := stickyValue(existingOpen, open)
	finalPrevClose := stickyValue(existingPrevClose, prevClose)

	_, err = s.conn().Exec(`
		UPDATE asset_prices
		SET open_price = ?, prev_close = ?, last_price = ?, last_updated = ?
		WHERE symbol = ? AND asset_class = ? AND date = ?
	`, finalOpen, finalPrevClose, last, now.Unix(), symbol, string(class), date)
	if err != nil {
		return fmt.Errorf("failed to update price for %s/%s/%s: %w", symbol, class, date, err)
	}
	return nil
}

// stickyValue applies the baseline-sticky rule: overwrite only if the
// caller passed a non-null value and (existing is null or it differs).
func stickyValue(existing sql.NullFloat64, candidate *float64) interface{} {
	if candidate == nil {
		if existing.Valid {
			return existing.Float64
		}
		return nil
	}
	if !existing.Valid || existing.Float64 != *candidate {
		return *candidate
	}
	return existing.Float64
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// GetLatestPrices returns the most recent row per (symbol, class) among
// enabled assets, annotated with change_amount/change_percent computed on
// read. class and symbol are optional filters; symbol is matched exactly,
// so callers upper-case it first to get a case-insensitive lookup.
func (s *Store) GetLatestPrices(class *domain.AssetClass, symbol *string) ([]domain.PriceRecord, error) {
	query := `
		SELECT p.symbol, p.asset_class, p.date, p.open_price, p.prev_close, p.last_price, p.last_updated
		FROM asset_prices p
		INNER JOIN selected_assets a
			ON a.symbol = p.symbol AND a.asset_class = p.asset_class AND a.enabled = 1
		INNER JOIN (
			SELECT symbol, asset_class, MAX(date) AS max_date
			FROM asset_prices
			GROUP BY symbol, asset_class
		) latest
			ON latest.symbol = p.symbol AND latest.asset_class = p.asset_class AND latest.max_date = p.date
		WHERE 1=1
	`
	var args []interface{}
	if class != nil {
		query += ` AND p.asset_class = ?`
		args = append(args, string(*class))
	}
	if symbol != nil {
		query += ` AND p.symbol = ?`
		args = append(args, *symbol)
	}
	query += ` ORDER BY p.asset_class, p.symbol`

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest prices: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceRecord
	for rows.Next() {
		var rec domain.PriceRecord
		var assetClass string
		var openPrice, prevClose sql.NullFloat64
		var lastUpdatedUnix int64

		if err := rows.Scan(&rec.Symbol, &assetClass, &rec.Date, &openPrice, &prevClose, &rec.LastPrice, &lastUpdatedUnix); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		rec.AssetClass = domain.AssetClass(assetClass)
		rec.LastUpdated = time.Unix(lastUpdatedUnix, 0).UTC()
		if openPrice.Valid {
			v := openPrice.Float64
			rec.OpenPrice = &v
		}
		if prevClose.Valid {
			v := prevClose.Float64
			rec.PrevClose = &v
		}

		rec.ChangeAmount, rec.ChangePercent = computeChange(rec.PrevClose, rec.OpenPrice, rec.LastPrice)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}
	return out, nil
}

// computeChange derives the daily change figures: baseline = prev_close if
// non-null and non-zero, else open_price; change_amount = last - baseline,
// not rounded (so sub-cent forex moves stay visible); change_percent =
// change_amount/baseline*100 rounded to 2 decimals; both zero if baseline
// is null or zero.
func computeChange(prevClose, open *float64, last float64) (amount, percent float64) {
	var baseline float64
	var haveBaseline bool

	if prevClose != nil && *prevClose != 0 {
		baseline = *prevClose
		haveBaseline = true
	} else if open != nil {
		baseline = *open
		haveBaseline = baseline != 0
	}

	if !haveBaseline || baseline == 0 {
		return 0, 0
	}

	amount = last - baseline
	percent = round2(amount / baseline * 100)
	return amount, percent
}

func round2(v float64) float64 {
	return float64(int64(v*100+sign(v)*0.5)) / 100
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
