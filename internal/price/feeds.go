// internal/price/feeds.go
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// jupiterFeed talks to the Jupiter price API v2.
type jupiterFeed struct {
	baseURL string
	client  *http.Client
}

type jupiterPriceResponse struct {
	Data map[string]*struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Price string `json:"price"`
	} `json:"data"`
}

func (f *jupiterFeed) current(ctx context.Context, mint string) (float64, error) {
	q := url.Values{}
	q.Set("ids", mint)

	var resp jupiterPriceResponse
	if err := getJSON(ctx, f.client, f.baseURL+"?"+q.Encode(), nil, &resp); err != nil {
		return 0, err
	}

	entry, ok := resp.Data[mint]
	if !ok || entry == nil || entry.Price == "" {
		return 0, fmt.Errorf("%w: no jupiter price for %s", ErrFeedUnavailable, mint)
	}
	p, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad jupiter price %q: %v", ErrFeedUnavailable, entry.Price, err)
	}
	return validPrice(p)
}

// birdeyeFeed talks to the Birdeye public API. Requires an API key.
type birdeyeFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type birdeyePriceResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Value          float64 `json:"value"`
		UpdateUnixTime int64   `json:"updateUnixTime"`
	} `json:"data"`
}

type birdeyeHistoryResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Items []birdeyeHistoryPoint `json:"items"`
	} `json:"data"`
}

type birdeyeHistoryPoint struct {
	UnixTime int64   `json:"unixTime"`
	Value    float64 `json:"value"`
}

func (f *birdeyeFeed) headers() map[string]string {
	return map[string]string{
		"X-API-KEY": f.apiKey,
		"x-chain":   "solana",
	}
}

func (f *birdeyeFeed) current(ctx context.Context, mint string) (float64, error) {
	q := url.Values{}
	q.Set("address", mint)

	var resp birdeyePriceResponse
	if err := getJSON(ctx, f.client, f.baseURL+"/defi/price?"+q.Encode(), f.headers(), &resp); err != nil {
		return 0, err
	}
	if !resp.Success || resp.Data == nil {
		return 0, fmt.Errorf("%w: no birdeye price for %s", ErrFeedUnavailable, mint)
	}
	return validPrice(resp.Data.Value)
}

func (f *birdeyeFeed) historical(ctx context.Context, mint string, at time.Time) (float64, error) {
	q := url.Values{}
	q.Set("address", mint)
	q.Set("address_type", "token")
	q.Set("type", "1m")
	q.Set("time_from", strconv.FormatInt(at.Add(-historyWindow).Unix(), 10))
	q.Set("time_to", strconv.FormatInt(at.Add(historyWindow).Unix(), 10))

	var resp birdeyeHistoryResponse
	if err := getJSON(ctx, f.client, f.baseURL+"/defi/history_price?"+q.Encode(), f.headers(), &resp); err != nil {
		return 0, err
	}
	if !resp.Success || resp.Data == nil || len(resp.Data.Items) == 0 {
		return 0, fmt.Errorf("%w: no birdeye history for %s", ErrFeedUnavailable, mint)
	}

	point := nearestPoint(resp.Data.Items, at.Unix())
	return validPrice(point.Value)
}

// nearestPoint returns the point whose timestamp is closest to target. Ties keep the earlier point.
func nearestPoint(items []birdeyeHistoryPoint, target int64) birdeyeHistoryPoint {
	best := items[0]
	bestDist := absInt64(best.UnixTime - target)
	for _, it := range items[1:] {
		if d := absInt64(it.UnixTime - target); d < bestDist {
			best, bestDist = it, d
		}
	}
	return best
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func validPrice(p float64) (float64, error) {
	if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: invalid price %v", ErrFeedUnavailable, p)
	}
	return p, nil
}

func getJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrFeedUnavailable, err)
	}
	return nil
}
