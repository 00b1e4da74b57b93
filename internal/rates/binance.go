// Package rates fetches a display-only exchange rate between the pooled
// stable-value currency and a local fiat currency. The rate never feeds core
// accounting; groups are always denominated in the pooled currency.
package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Rate is one observed conversion price.
type Rate struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"rate"`
}

// Feed provides the current exchange rate and a short history of recent
// observations.
type Feed interface {
	Current(ctx context.Context) (Rate, error)
	History() []Rate
}

const historySize = 50

// BinanceFeed queries the Binance P2P advert search endpoint and serves the
// median advertised price, cached for a TTL.
type BinanceFeed struct {
	url    string
	asset  string
	fiat   string
	ttl    time.Duration
	client *http.Client

	mu      sync.Mutex
	current Rate
	history []Rate
}

// Ensure BinanceFeed implements Feed.
var _ Feed = (*BinanceFeed)(nil)

// NewBinanceFeed creates a feed for the given asset/fiat pair.
func NewBinanceFeed(url, asset, fiat string, ttl time.Duration) *BinanceFeed {
	return &BinanceFeed{
		url:    url,
		asset:  asset,
		fiat:   fiat,
		ttl:    ttl,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type searchRequest struct {
	Asset     string   `json:"asset"`
	Fiat      string   `json:"fiat"`
	TradeType string   `json:"tradeType"`
	PayTypes  []string `json:"payTypes"`
	Page      int      `json:"page"`
	Rows      int      `json:"rows"`
}

type searchResponse struct {
	Data []struct {
		Adv struct {
			Price string `json:"price"`
		} `json:"adv"`
	} `json:"data"`
}

// Current returns the cached rate, refreshing it when the TTL has expired.
func (f *BinanceFeed) Current(ctx context.Context) (Rate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.current.Timestamp.IsZero() && time.Since(f.current.Timestamp) < f.ttl {
		return f.current, nil
	}

	price, err := f.fetch(ctx)
	if err != nil {
		// Serve the stale rate if we have one; the feed is advisory.
		if !f.current.Timestamp.IsZero() {
			return f.current, nil
		}
		return Rate{}, err
	}

	f.current = Rate{Timestamp: time.Now().UTC(), Price: price}
	f.history = append(f.history, f.current)
	if len(f.history) > historySize {
		f.history = f.history[len(f.history)-historySize:]
	}
	return f.current, nil
}

// History returns recent observations, oldest first.
func (f *BinanceFeed) History() []Rate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Rate, len(f.history))
	copy(out, f.history)
	return out
}

// fetch queries the advert search endpoint and returns the median price of
// the returned adverts. Callers hold f.mu.
func (f *BinanceFeed) fetch(ctx context.Context) (decimal.Decimal, error) {
	payload, err := json.Marshal(searchRequest{
		Asset:     f.asset,
		Fiat:      f.fiat,
		TradeType: "SELL",
		PayTypes:  []string{},
		Page:      1,
		Rows:      5,
	})
	if err != nil {
		return decimal.Zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("decoding rate response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return decimal.Zero, fmt.Errorf("rate feed returned no adverts")
	}

	prices := make([]decimal.Decimal, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		p, err := decimal.NewFromString(item.Adv.Price)
		if err != nil {
			continue
		}
		prices = append(prices, p)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("rate feed returned no parseable prices")
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	return prices[len(prices)/2], nil
}

// StaticFeed serves a fixed rate. Used in tests and when no upstream feed is
// reachable.
type StaticFeed struct {
	Rate Rate
}

// Ensure StaticFeed implements Feed.
var _ Feed = (*StaticFeed)(nil)

func (s *StaticFeed) Current(ctx context.Context) (Rate, error) { return s.Rate, nil }
func (s *StaticFeed) History() []Rate                           { return []Rate{s.Rate} }
