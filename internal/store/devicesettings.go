package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/errs"
)

func marshalClasses(classes []domain.AssetClass) (string, error) {
	b, err := json.Marshal(classes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal asset class list: %w", err)
	}
	return string(b), nil
}

func unmarshalClasses(raw string) ([]domain.AssetClass, error) {
	var classes []domain.AssetClass
	if raw == "" {
		return classes, nil
	}
	if err := json.Unmarshal([]byte(raw), &classes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal asset class list: %w", err)
	}
	return classes, nil
}

// GetDeviceSettings returns the settings row for a device. Every device
// has one from the moment RegisterDevice first creates it, so a missing
// row here means the device itself was never registered. Serves from the
// in-memory cache when warm.
func (s *Store) GetDeviceSettings(deviceID string) (domain.DeviceSettings, error) {
	s.cacheMu.RLock()
	if cached, found := s.settingsCache[deviceID]; found {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	row := s.conn().QueryRow(`
		SELECT scroll_mode, scroll_speed, brightness, update_interval, top_sources, bottom_sources, dwell_seconds, asset_order, font, updated_at
		FROM device_settings WHERE device_id = ?
	`, deviceID)

	var d domain.DeviceSettings
	var top, bottom, order string
	var updatedAt int64
	err := row.Scan(&d.ScrollMode, &d.ScrollSpeed, &d.Brightness, &d.UpdateInterval, &top, &bottom, &d.DwellSeconds, &order, &d.Font, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.DeviceSettings{}, errs.NotFound(fmt.Sprintf("device %s has no settings", deviceID))
	}
	if err != nil {
		return domain.DeviceSettings{}, fmt.Errorf("failed to get settings for %s: %w", deviceID, err)
	}

	d.DeviceID = deviceID
	d.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if d.TopSources, err = unmarshalClasses(top); err != nil {
		return domain.DeviceSettings{}, err
	}
	if d.BottomSources, err = unmarshalClasses(bottom); err != nil {
		return domain.DeviceSettings{}, err
	}
	if d.AssetOrder, err = unmarshalClasses(order); err != nil {
		return domain.DeviceSettings{}, err
	}

	s.cacheMu.Lock()
	s.settingsCache[deviceID] = d
	s.cacheMu.Unlock()
	return d, nil
}

var validScrollModes = map[string]bool{"single": true, "dual": true}

func validateAssetClasses(classes []domain.AssetClass, field string) error {
	for _, c := range classes {
		if !c.Valid() {
			return errs.Validation(fmt.Sprintf("%s contains unknown asset class %q", field, c))
		}
	}
	return nil
}

// PutDeviceSettings applies a partial update to a device's settings. Only
// keys present in patch are changed; every other field keeps its current
// value. Unknown keys are rejected outright rather than silently ignored.
// Every successful call — even one that changes nothing observable —
// advances updated_at, since that watermark is what downstream consumers
// poll to detect settings churn.
func (s *Store) PutDeviceSettings(deviceID string, patch map[string]interface{}) error {
	current, err := s.GetDeviceSettings(deviceID)
	if err != nil {
		return err
	}

	for key := range patch {
		switch key {
		case "scroll_mode", "scroll_speed", "brightness", "update_interval",
			"top_sources", "bottom_sources", "dwell_seconds", "asset_order", "font":
		default:
			return errs.Validation(fmt.Sprintf("unknown settings field %q", key))
		}
	}

	if v, ok := patch["scroll_mode"]; ok {
		mode, ok := v.(string)
		if !ok || !validScrollModes[mode] {
			return errs.Validation("scroll_mode must be one of: single, dual")
		}
		current.ScrollMode = mode
	}
	if v, ok := patch["scroll_speed"]; ok {
		n, ok := asInt(v)
		if !ok || n < 10 || n > 200 {
			return errs.Validation("scroll_speed must be an integer in [10, 200]")
		}
		current.ScrollSpeed = n
	}
	if v, ok := patch["brightness"]; ok {
		n, ok := asInt(v)
		if !ok || n < 1 || n > 10 {
			return errs.Validation("brightness must be an integer in [1, 10]")
		}
		current.Brightness = n
	}
	if v, ok := patch["update_interval"]; ok {
		n, ok := asInt(v)
		if !ok || n < 60 || n > 900 {
			return errs.Validation("update_interval must be an integer in [60, 900]")
		}
		current.UpdateInterval = n
	}
	if v, ok := patch["dwell_seconds"]; ok {
		f, ok := asFloat(v)
		if !ok || f < 1 || f > 30 {
			return errs.Validation("dwell_seconds must be a number in [1, 30]")
		}
		current.DwellSeconds = f
	}
	if v, ok := patch["font"]; ok {
		font, ok := v.(string)
		if !ok || font == "" {
			return errs.Validation("font must be a non-empty string")
		}
		current.Font = font
	}
	if v, ok := patch["top_sources"]; ok {
		classes, err := asClassList(v)
		if err != nil {
			return err
		}
		if err := validateAssetClasses(classes, "top_sources"); err != nil {
			return err
		}
		current.TopSources = classes
	}
	if v, ok := patch["bottom_sources"]; ok {
		classes, err := asClassList(v)
		if err != nil {
			return err
		}
		if err := validateAssetClasses(classes, "bottom_sources"); err != nil {
			return err
		}
		current.BottomSources = classes
	}
	if v, ok := patch["asset_order"]; ok {
		classes, err := asClassList(v)
		if err != nil {
			return err
		}
		if len(classes) == 0 {
			return errs.Validation("asset_order must be non-empty")
		}
		if err := validateAssetClasses(classes, "asset_order"); err != nil {
			return err
		}
		current.AssetOrder = classes
	}

	now := time.Now()
	top, err := marshalClasses(current.TopSources)
	if err != nil {
		return err
	}
	bottom, err := marshalClasses(current.BottomSources)
	if err != nil {
		return err
	}
	order, err := marshalClasses(current.AssetOrder)
	if err != nil {
		return err
	}

	_, err = s.conn().Exec(`
		UPDATE device_settings
		SET scroll_mode = ?, scroll_speed = ?, brightness = ?, update_interval = ?,
		    top_sources = ?, bottom_sources = ?, dwell_seconds = ?, asset_order = ?, font = ?, updated_at = ?
		WHERE device_id = ?
	`, current.ScrollMode, current.ScrollSpeed, current.Brightness, current.UpdateInterval,
		top, bottom, current.DwellSeconds, order, current.Font, now.UnixNano(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to update settings for %s: %w", deviceID, err)
	}

	current.UpdatedAt = now
	s.cacheMu.Lock()
	s.settingsCache[deviceID] = current
	s.cacheMu.Unlock()
	return nil
}

// TouchDeviceSettings advances updated_at without changing any field. Used
// to force a device's next poll to pick up a watermark bump that wasn't
// triggered by an actual settings change (e.g. a manual re-sync request).
func (s *Store) TouchDeviceSettings(deviceID string) error {
	res, err := s.conn().Exec(`UPDATE device_settings SET updated_at = ? WHERE device_id = ?`, time.Now().UnixNano(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to touch settings for %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to confirm touch for %s: %w", deviceID, err)
	}
	if n == 0 {
		return errs.NotFound(fmt.Sprintf("device %s has no settings", deviceID))
	}

	s.cacheMu.Lock()
	delete(s.settingsCache, deviceID)
	s.cacheMu.Unlock()
	return nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asClassList(v interface{}) ([]domain.AssetClass, error) {
	raw, ok := v.([]interface{})
	if !ok {
		if strs, ok := v.([]string); ok {
			out := make([]domain.AssetClass, len(strs))
			for i, s := range strs {
				out[i] = domain.AssetClass(s)
			}
			return out, nil
		}
		return nil, errs.Validation("expected a list of asset classes")
	}
	out := make([]domain.AssetClass, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, errs.Validation("asset class list must contain only strings")
		}
		out = append(out, domain.AssetClass(s))
	}
	return out, nil
}
