// Package equities provides the upstream adapter for stock and crypto
// snapshots: a live feed, a delayed-consolidated feed, and a quote/daily-bar
// fallback path for symbols the snapshot endpoints miss.
package equities

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the equities/crypto market-data provider over plain HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// New builds a Client. A zero Timeout defaults to 15s, a reasonable bound
// upstream call requirement.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "equities").Logger(),
	}
}

type snapshotEnvelope struct {
	Snapshots map[string]snapshotPayload `json:"snapshots"`
}

type snapshotPayload struct {
	LatestTrade *tradePayload `json:"latestTrade"`
	LatestQuote *quotePayload `json:"latestQuote"`
	MinuteBar   *barPayload   `json:"minuteBar"`
	DailyBar    *barPayload   `json:"dailyBar"`
	PrevDaily   *barPayload   `json:"prevDailyBar"`
}

type tradePayload struct {
	Price     float64   `json:"p"`
	Timestamp time.Time `json:"t"`
}

type quotePayload struct {
	BidPrice  float64   `json:"bp"`
	AskPrice  float64   `json:"ap"`
	Timestamp time.Time `json:"t"`
}

type barPayload struct {
	Open      float64   `json:"o"`
	Close     float64   `json:"c"`
	Timestamp time.Time `json:"t"`
}

// fetchSnapshots issues one snapshot request for a symbol batch against
// the given provider feed name (the adapter passes "sip" for the live feed
// and "iex" for the delayed one) and returns the raw,
// unmarshaled payloads. Symbols absent from the response are simply
// absent from the returned map — never an error.
func (c *Client) fetchSnapshots(ctx context.Context, feed string, symbols []string) (map[string]snapshotPayload, error) {
	if len(symbols) == 0 {
		return map[string]snapshotPayload{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("feed", feed)

	reqURL := fmt.Sprintf("%s/v2/stocks/snapshots?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned status %d", resp.StatusCode)
	}

	var env snapshotEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot response: %w", err)
	}
	return env.Snapshots, nil
}

type quoteEnvelope struct {
	Quotes map[string]quotePayload `json:"quotes"`
}

// fetchLatestQuotes is the fallback path for symbols the snapshot endpoint
// returned nothing for.
func (c *Client) fetchLatestQuotes(ctx context.Context, symbols []string) (map[string]quotePayload, error) {
	if len(symbols) == 0 {
		return map[string]quotePayload{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	reqURL := fmt.Sprintf("%s/v2/stocks/quotes/latest?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build latest-quote request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("latest-quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("latest-quote request returned status %d", resp.StatusCode)
	}

	var env quoteEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode latest-quote response: %w", err)
	}
	return env.Quotes, nil
}

type barsEnvelope struct {
	Bars map[string][]barPayload `json:"bars"`
}

// fetchDailyBars returns up to `days` most recent daily stock bars per
// symbol, used by the stocks fallback path; crypto bars come from
// fetchCryptoDailyBars.
func (c *Client) fetchDailyBars(ctx context.Context, symbols []string, days int) (map[string][]barPayload, error) {
	if len(symbols) == 0 {
		return map[string][]barPayload{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("timeframe", "1Day")
	q.Set("limit", fmt.Sprintf("%d", days))

	reqURL := fmt.Sprintf("%s/v2/stocks/bars?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build daily-bars request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daily-bars request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daily-bars request returned status %d", resp.StatusCode)
	}

	var env barsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode daily-bars response: %w", err)
	}
	return env.Bars, nil
}

type cryptoQuoteEnvelope struct {
	Quotes map[string]quotePayload `json:"quotes"`
}

func (c *Client) fetchCryptoLatestQuotes(ctx context.Context, symbols []string) (map[string]quotePayload, error) {
	if len(symbols) == 0 {
		return map[string]quotePayload{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))

	reqURL := fmt.Sprintf("%s/v1beta3/crypto/us/latest/quotes?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build crypto quote request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crypto quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crypto quote request returned status %d", resp.StatusCode)
	}

	var env cryptoQuoteEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode crypto quote response: %w", err)
	}
	return env.Quotes, nil
}

type cryptoBarEnvelope struct {
	Bars map[string][]barPayload `json:"bars"`
}

func (c *Client) fetchCryptoDailyBars(ctx context.Context, symbols []string, days int) (map[string][]barPayload, error) {
	if len(symbols) == 0 {
		return map[string][]barPayload{}, nil
	}

	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("timeframe", "1Day")
	q.Set("limit", fmt.Sprintf("%d", days))

	reqURL := fmt.Sprintf("%s/v1beta3/crypto/us/bars?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build crypto bars request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crypto bars request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crypto bars request returned status %d", resp.StatusCode)
	}

	var env cryptoBarEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode crypto bars response: %w", err)
	}
	return env.Bars, nil
}
