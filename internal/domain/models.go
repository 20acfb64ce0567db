// Package domain provides the core closed types shared across the hub:
// asset classes, price records, device settings, and the raw snapshot
// shape produced by upstream adapters before normalization.
package domain

import "time"

// AssetClass is a closed tagged variant over the three watchlist classes.
// Modeled as a string-backed const rather than an ad hoc switch, per the
// hub's design notes on avoiding string-typed polymorphism.
type AssetClass string

const (
	AssetStocks AssetClass = "stocks"
	AssetForex  AssetClass = "forex"
	AssetCrypto AssetClass = "crypto"
)

// Valid reports whether c is one of the three known asset classes.
func (c AssetClass) Valid() bool {
	switch c {
	case AssetStocks, AssetForex, AssetCrypto:
		return true
	default:
		return false
	}
}

// SelectedAsset is a watchlist entry: one symbol in one asset class.
type SelectedAsset struct {
	Symbol      string     `json:"symbol"`
	AssetClass  AssetClass `json:"asset_class"`
	Enabled     bool       `json:"enabled"`
	DisplayName string     `json:"display_name,omitempty"`
}

// RawSnapshot is the common shape every upstream adapter normalizes its
// responses into before handing them to the Normalizer. All fields are
// optional; a missing field is nil, never a sentinel zero value.
type RawSnapshot struct {
	Open      *float64
	PrevClose *float64
	Last      *float64
	Bid       *float64
	Ask       *float64
	Timestamp *time.Time

	// MinuteBarOpen/MinuteBarClose and DailyBarOpen/DailyBarClose/PrevDailyOpen/PrevDailyClose
	// carry the finer-grained bar data the Normalizer's derivation steps need.
	// Last/Bid/Ask/Timestamp above are the adapter's best-effort flattened
	// quote view. Adapters with no native bar structure (like forex) still
	// populate DailyBarOpen/PrevDailyClose rather than Open/PrevClose, since
	// those are the fields the derivation steps actually read.
	MinuteBarOpen  *float64
	MinuteBarClose *float64
	DailyBarOpen   *float64
	DailyBarClose  *float64
	PrevDailyOpen  *float64
	PrevDailyClose *float64
	TradeTimestamp *time.Time
}

// PriceRecord is one normalized row: a symbol's open/prev_close/last triple
// for a given UTC calendar date, plus the change figures computed on read.
type PriceRecord struct {
	Symbol        string     `json:"symbol"`
	AssetClass    AssetClass `json:"asset_class"`
	Date          string     `json:"date"` // YYYY-MM-DD, UTC
	OpenPrice     *float64   `json:"open_price"`
	PrevClose     *float64   `json:"prev_close"`
	LastPrice     float64    `json:"last_price"`
	LastUpdated   time.Time  `json:"last_updated"`
	ChangeAmount  float64    `json:"change_amount"`
	ChangePercent float64    `json:"change_percent"`
}

// PriceUpdate is the minimal shape pushed over /ws/prices when a tick
// commits a changed row — enough for a device to know which row to
// re-fetch without shipping the full PriceRecord over the socket.
type PriceUpdate struct {
	Symbol      string     `json:"symbol"`
	AssetClass  AssetClass `json:"asset_class"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Device is a display device that has contacted the hub at least once.
type Device struct {
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name"`
	DeviceType string    `json:"device_type"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
	Enabled    bool      `json:"enabled"`
	IPHint     string    `json:"ip_hint,omitempty"`
}

// DeviceSettings is the per-device display configuration, mutated only
// through partial updates that always advance UpdatedAt (the watermark).
type DeviceSettings struct {
	DeviceID      string     `json:"-"`
	ScrollMode    string     `json:"scroll_mode"`
	ScrollSpeed   int        `json:"scroll_speed"`
	Brightness    int        `json:"brightness"`
	UpdateInterval int       `json:"update_interval"`
	TopSources    []AssetClass `json:"top_sources"`
	BottomSources []AssetClass `json:"bottom_sources"`
	DwellSeconds  float64    `json:"dwell_seconds"`
	AssetOrder    []AssetClass `json:"asset_order"`
	Font          string     `json:"font"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DefaultDeviceSettings returns the settings a newly-registered device
// receives before any operator customization.
func DefaultDeviceSettings() DeviceSettings {
	return DeviceSettings{
		ScrollMode:     "single",
		ScrollSpeed:    100,
		Brightness:     10,
		UpdateInterval: 300,
		TopSources:     []AssetClass{AssetStocks},
		BottomSources:  []AssetClass{AssetCrypto, AssetForex},
		DwellSeconds:   3,
		AssetOrder:     []AssetClass{AssetStocks, AssetCrypto, AssetForex},
		Font:           "default",
	}
}

// Credential is an opaque key/secret pair for one upstream provider.
type Credential struct {
	Provider string
	Key      string
	Secret   string
}
