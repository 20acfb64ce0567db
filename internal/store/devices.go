package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tickertronix/hub/internal/database"
	"github.com/tickertronix/hub/internal/domain"
)

// RegisterDevice is an idempotent upsert: on first contact it creates the
// device row and its default settings row in one transaction; on repeat
// contact it advances last_seen and preserves the existing name/type
// unless the caller supplies non-empty overrides.
func (s *Store) RegisterDevice(deviceID, name, deviceType, ipHint string, now time.Time) error {
	return database.WithTransaction(s.db, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRow(`SELECT 1 FROM devices WHERE device_id = ?`, deviceID).Scan(new(int))
		if err == sql.ErrNoRows {
			exists = false
		} else if err != nil {
			return fmt.Errorf("failed to check device %s: %w", deviceID, err)
		} else {
			exists = true
		}

		if !exists {
			if _, err := tx.Exec(`
				INSERT INTO devices (device_id, device_name, device_type, first_seen, last_seen, enabled, ip_hint)
				VALUES (?, ?, ?, ?, ?, 1, ?)
			`, deviceID, name, deviceType, now.Unix(), now.Unix(), ipHint); err != nil {
				return fmt.Errorf("failed to insert device %s: %w", deviceID, err)
			}

			defaults := domain.DefaultDeviceSettings()
			if err := insertDefaultSettings(tx, deviceID, defaults, now); err != nil {
				return err
			}
			return nil
		}

		if name != "" && deviceType != "" {
			_, err = tx.Exec(`
				UPDATE devices SET device_name = ?, device_type = ?, last_seen = ?, ip_hint = CASE WHEN ? != '' THEN ? ELSE ip_hint END
				WHERE device_id = ?
			`, name, deviceType, now.Unix(), ipHint, ipHint, deviceID)
		} else if name != "" {
			_, err = tx.Exec(`
				UPDATE devices SET device_name = ?, last_seen = ?, ip_hint = CASE WHEN ? != '' THEN ? ELSE ip_hint END
				WHERE device_id = ?
			`, name, now.Unix(), ipHint, ipHint, deviceID)
		} else if deviceType != "" {
			_, err = tx.Exec(`
				UPDATE devices SET device_type = ?, last_seen = ?, ip_hint = CASE WHEN ? != '' THEN ? ELSE ip_hint END
				WHERE device_id = ?
			`, deviceType, now.Unix(), ipHint, ipHint, deviceID)
		} else {
			_, err = tx.Exec(`
				UPDATE devices SET last_seen = ?, ip_hint = CASE WHEN ? != '' THEN ? ELSE ip_hint END
				WHERE device_id = ?
			`, now.Unix(), ipHint, ipHint, deviceID)
		}
		if err != nil {
			return fmt.Errorf("failed to update device %s: %w", deviceID, err)
		}
		return nil
	})
}

func insertDefaultSettings(tx *sql.Tx, deviceID string, d domain.DeviceSettings, now time.Time) error {
	top, err := marshalClasses(d.TopSources)
	if err != nil {
		return err
	}
	bottom, err := marshalClasses(d.BottomSources)
	if err != nil {
		return err
	}
	order, err := marshalClasses(d.AssetOrder)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO device_settings (device_id, scroll_mode, scroll_speed, brightness, update_interval, top_sources, bottom_sources, dwell_seconds, asset_order, font, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, deviceID, d.ScrollMode, d.ScrollSpeed, d.Brightness, d.UpdateInterval, top, bottom, d.DwellSeconds, order, d.Font, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert default settings for %s: %w", deviceID, err)
	}
	return nil
}

// GetDevice returns a single device row, or a nil pointer if absent.
func (s *Store) GetDevice(deviceID string) (*domain.Device, error) {
	row := s.conn().QueryRow(`
		SELECT device_id, device_name, device_type, first_seen, last_seen, enabled, ip_hint
		FROM devices WHERE device_id = ?
	`, deviceID)

	var d domain.Device
	var enabledInt int
	var firstSeen, lastSeen int64
	err := row.Scan(&d.DeviceID, &d.DeviceName, &d.DeviceType, &firstSeen, &lastSeen, &enabledInt, &d.IPHint)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", deviceID, err)
	}
	d.FirstSeen = time.Unix(firstSeen, 0).UTC()
	d.LastSeen = time.Unix(lastSeen, 0).UTC()
	d.Enabled = enabledInt == 1
	return &d, nil
}

// ListDevices returns all registered devices ordered by last_seen desc.
func (s *Store) ListDevices() ([]domain.Device, error) {
	rows, err := s.conn().Query(`
		SELECT device_id, device_name, device_type, first_seen, last_seen, enabled, ip_hint
		FROM devices ORDER BY last_seen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		var d domain.Device
		var enabledInt int
		var firstSeen, lastSeen int64
		if err := rows.Scan(&d.DeviceID, &d.DeviceName, &d.DeviceType, &firstSeen, &lastSeen, &enabledInt, &d.IPHint); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		d.FirstSeen = time.Unix(firstSeen, 0).UTC()
		d.LastSeen = time.Unix(lastSeen, 0).UTC()
		d.Enabled = enabledInt == 1
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return out, nil
}
