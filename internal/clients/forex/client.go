// Package forex provides the upstream adapter for currency pairs: batched
// quote requests under a per-minute/per-day credit budget, normalizing the
// provider's own symbol spelling into the hub's canonical BASE/QUOTE form.
package forex

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

// Client talks to the forex quote provider over plain HTTP.
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

// New builds a Client. A zero Timeout defaults to 15s.
func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "forex").Logger(),
	}
}

type quoteResponse struct {
	Quotes []pairQuote `json:"quotes"`
}

// pairQuote mirrors Twelve Data's /quote fields relevant to the hub: the
// current price, the prior session's close, and a best-effort bid/ask.
// The provider has no separate open field; the hub treats the previous
// close as the session open.
type pairQuote struct {
	Pair          string    `json:"pair"`
	Price         float64   `json:"price"`
	Close         float64   `json:"close"`
	PreviousClose float64   `json:"previous_close"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Timestamp     time.Time `json:"timestamp"`
}

// fetchBatch issues one quote request for up to batchSize pairs, using the
// provider's own symbol spelling (e.g. "EURUSD", not "EUR/USD").
func (c *Client) fetchBatch(ctx context.Context, pairs []string) (map[string]pairQuote, error) {
	if len(pairs) == 0 {
		return map[string]pairQuote{}, nil
	}

	q := url.Values{}
	q.Set("pairs", strings.Join(pairs, ","))
	q.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/quotes?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build forex quote request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forex quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forex quote request returned status %d", resp.StatusCode)
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode forex quote response: %w", err)
	}

	out := make(map[string]pairQuote, len(parsed.Quotes))
	for _, pq := range parsed.Quotes {
		out[pq.Pair] = pq
	}
	return out, nil
}
