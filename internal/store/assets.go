package store

import (
	"database/sql"
	"fmt"

	"github.com/tickertronix/hub/internal/database"
	"github.com/tickertronix/hub/internal/domain"
)

// AddAsset adds a symbol to the watchlist. Idempotent on the
// (symbol, asset_class) unique key: a duplicate add is accepted quietly
// rather than erroring.
func (s *Store) AddAsset(symbol string, class domain.AssetClass) error {
	_, err := s.conn().Exec(`
		INSERT INTO selected_assets (symbol, asset_class, enabled)
		VALUES (?, ?, 1)
		ON CONFLICT(symbol, asset_class) DO NOTHING
	`, symbol, string(class))
	if err != nil {
		return fmt.Errorf("failed to add asset %s/%s: %w", symbol, class, err)
	}
	return nil
}

// RemoveAsset removes a symbol from the watchlist. Cascades to its price
// history since asset_prices has no foreign key of its own to
// selected_assets — the cascade is performed explicitly here.
func (s *Store) RemoveAsset(symbol string, class domain.AssetClass) error {
	return database.WithTransaction(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM selected_assets WHERE symbol = ? AND asset_class = ?`, symbol, string(class)); err != nil {
			return fmt.Errorf("failed to remove asset %s/%s: %w", symbol, class, err)
		}
		if _, err := tx.Exec(`DELETE FROM asset_prices WHERE symbol = ? AND asset_class = ?`, symbol, string(class)); err != nil {
			return fmt.Errorf("failed to cascade-remove prices for %s/%s: %w", symbol, class, err)
		}
		return nil
	})
}

// SetAssetEnabled flips the enabled flag without touching price history.
func (s *Store) SetAssetEnabled(symbol string, class domain.AssetClass, enabled bool) error {
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	_, err := s.conn().Exec(`
		UPDATE selected_assets SET enabled = ? WHERE symbol = ? AND asset_class = ?
	`, enabledInt, symbol, string(class))
	if err != nil {
		return fmt.Errorf("failed to set enabled for %s/%s: %w", symbol, class, err)
	}
	return nil
}

// ListAssets returns watchlist entries, optionally filtered by class, and
// optionally including disabled entries.
func (s *Store) ListAssets(class *domain.AssetClass, includeDisabled bool) ([]domain.SelectedAsset, error) {
	query := `SELECT symbol, asset_class, enabled, COALESCE(display_name, '') FROM selected_assets WHERE 1=1`
	var args []interface{}
	if class != nil {
		query += ` AND asset_class = ?`
		args = append(args, string(*class))
	}
	if !includeDisabled {
		query += ` AND enabled = 1`
	}
	query += ` ORDER BY asset_class, symbol`

	rows, err := s.conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var out []domain.SelectedAsset
	for rows.Next() {
		var a domain.SelectedAsset
		var enabledInt int
		var assetClass string
		if err := rows.Scan(&a.Symbol, &assetClass, &enabledInt, &a.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan asset row: %w", err)
		}
		a.AssetClass = domain.AssetClass(assetClass)
		a.Enabled = enabledInt == 1
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return out, nil
}

// CountEnabledAssets counts the enabled watchlist entries for a class.
func (s *Store) CountEnabledAssets(class domain.AssetClass) (int, error) {
	var count int
	err := s.conn().QueryRow(
		`SELECT COUNT(1) FROM selected_assets WHERE asset_class = ? AND enabled = 1`,
		string(class),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enabled assets for %s: %w", class, err)
	}
	return count, nil
}
