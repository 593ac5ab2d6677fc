// internal/price/oracle.go
package price

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// ErrFeedUnavailable is returned by an individual feed when it has no usable price.
// It never leaves the oracle: callers see 0.
var ErrFeedUnavailable = errors.New("price feed unavailable")

const (
	DefaultJupiterURL = "https://lite-api.jup.ag/price/v2"
	DefaultBirdeyeURL = "https://public-api.birdeye.so"

	defaultHTTPTimeout = 5 * time.Second
	defaultCacheTTL    = 30 * time.Second

	// Window searched around a historical timestamp.
	historyWindow = time.Hour
)

// Stablecoins are assumed to be pegged when looking up historical prices.
var stablecoins = map[string]struct{}{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {}, // USDT
}

// Config configures an Oracle.
type Config struct {
	Logger        *zap.Logger
	HTTPClient    *http.Client
	HTTPTimeout   time.Duration
	JupiterURL    string
	BirdeyeURL    string
	BirdeyeAPIKey string
	// CacheTTL bounds how long a current price is reused. Zero disables the cache.
	CacheTTL time.Duration
}

type cachedPrice struct {
	value     float64
	fetchedAt time.Time
}

// Oracle answers "what is this mint worth in USD, now or at time T".
// Zero means unknown; no method returns an error.
type Oracle struct {
	logger  *zap.Logger
	jupiter *jupiterFeed
	birdeye *birdeyeFeed

	cacheTTL time.Duration
	mu       sync.RWMutex
	cache    map[string]cachedPrice
	now      func() time.Time
}

// NewOracle creates a price oracle. Birdeye is only consulted when an API key is set.
func NewOracle(cfg Config) *Oracle {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	jupURL := strings.TrimRight(cfg.JupiterURL, "/")
	if jupURL == "" {
		jupURL = DefaultJupiterURL
	}
	birdURL := strings.TrimRight(cfg.BirdeyeURL, "/")
	if birdURL == "" {
		birdURL = DefaultBirdeyeURL
	}

	o := &Oracle{
		logger:   logger.Named("price_oracle"),
		jupiter:  &jupiterFeed{baseURL: jupURL, client: client},
		cacheTTL: cfg.CacheTTL,
		cache:    make(map[string]cachedPrice),
		now:      time.Now,
	}
	if cfg.BirdeyeAPIKey != "" {
		o.birdeye = &birdeyeFeed{baseURL: birdURL, apiKey: cfg.BirdeyeAPIKey, client: client}
	}
	return o
}

// CurrentPrice returns the latest USD price of mint, or 0 if every feed fails.
func (o *Oracle) CurrentPrice(ctx context.Context, mint solana.PublicKey) float64 {
	key := mint.String()
	if p, ok := o.cached(key); ok {
		return p
	}

	p, err := o.jupiter.current(ctx, key)
	if err != nil {
		o.logger.Debug("Jupiter price unavailable", zap.String("mint", key), zap.Error(err))
		if o.birdeye != nil {
			p, err = o.birdeye.current(ctx, key)
			if err != nil {
				o.logger.Debug("Birdeye price unavailable", zap.String("mint", key), zap.Error(err))
			}
		}
	}
	if err != nil {
		return 0
	}

	o.store(key, p)
	return p
}

// HistoricalPrice returns the USD price of mint nearest to at within ±1h, or 0.
func (o *Oracle) HistoricalPrice(ctx context.Context, mint solana.PublicKey, at time.Time) float64 {
	key := mint.String()
	if _, ok := stablecoins[key]; ok {
		return 1.0
	}
	if o.birdeye == nil {
		o.logger.Debug("No historical price feed configured", zap.String("mint", key))
		return 0
	}

	p, err := o.birdeye.historical(ctx, key, at)
	if err != nil {
		o.logger.Debug("Historical price unavailable",
			zap.String("mint", key),
			zap.Time("at", at),
			zap.Error(err))
		return 0
	}
	return p
}

// ClearCache drops all cached current prices.
func (o *Oracle) ClearCache() {
	o.mu.Lock()
	o.cache = make(map[string]cachedPrice)
	o.mu.Unlock()
}

func (o *Oracle) cached(key string) (float64, bool) {
	if o.cacheTTL <= 0 {
		return 0, false
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	c, ok := o.cache[key]
	if !ok || o.now().Sub(c.fetchedAt) >= o.cacheTTL {
		return 0, false
	}
	return c.value, true
}

func (o *Oracle) store(key string, p float64) {
	if o.cacheTTL <= 0 {
		return
	}
	o.mu.Lock()
	o.cache[key] = cachedPrice{value: p, fetchedAt: o.now()}
	o.mu.Unlock()
}
