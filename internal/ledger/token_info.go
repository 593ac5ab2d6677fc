// internal/ledger/token_info.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"
)

const (
	defaultTokenAPIURL = "https://lite-api.jup.ag/tokens/v1/token"
	tokenAPITimeout    = 5 * time.Second
)

// Известные токены, для которых не нужен ни RPC, ни API
var knownTokens = map[string]TokenInfo{
	"So11111111111111111111111111111111111111112":  {Symbol: "SOL", Decimals: 9},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {Symbol: "USDC", Decimals: 6},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {Symbol: "USDT", Decimals: 6},
}

// TokenInfoCacheConfig настраивает кэш метаданных токенов.
type TokenInfoCacheConfig struct {
	RPC         RPC
	Logger      *zap.Logger
	TokenAPIURL string
	HTTPClient  *http.Client
}

// TokenInfoCache резолвит символ и decimals минта и кэширует полностью
// разрешённые записи. Decimals кэшируются отдельно, чтобы при недоступном
// символе повторялся только запрос к API. Метаданные минта неизменны, поэтому TTL нет.
type TokenInfoCache struct {
	cache      sync.Map // string -> TokenInfo
	decimals   sync.Map // string -> uint8
	rpc        RPC
	logger     *zap.Logger
	apiURL     string
	httpClient *http.Client
}

// jupiterTokenInfo ответ token API Jupiter
type jupiterTokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals *uint8 `json:"decimals"`
}

// NewTokenInfoCache создаёт кэш метаданных токенов.
func NewTokenInfoCache(cfg TokenInfoCacheConfig) *TokenInfoCache {
	apiURL := strings.TrimRight(cfg.TokenAPIURL, "/")
	if apiURL == "" {
		apiURL = defaultTokenAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: tokenAPITimeout}
	}
	return &TokenInfoCache{
		rpc:        cfg.RPC,
		logger:     cfg.Logger.Named("token-info"),
		apiURL:     apiURL,
		httpClient: httpClient,
	}
}

// Get возвращает метаданные минта. Никогда не падает: если символ или decimals
// не удалось получить, подставляется UNKNOWN/9, и такая запись целиком не кэшируется.
func (c *TokenInfoCache) Get(ctx context.Context, mint solana.PublicKey) TokenInfo {
	key := mint.String()

	// 1. Кэш
	if v, ok := c.cache.Load(key); ok {
		return v.(TokenInfo)
	}

	// 2. Известные токены
	if known, ok := knownTokens[key]; ok {
		known.Mint = mint
		c.cache.Store(key, known)
		return known
	}

	info := TokenInfo{Mint: mint, Symbol: UnknownSymbol, Decimals: DefaultDecimals}
	resolvedDecimals, resolvedSymbol := false, false

	// 3. Decimals: сначала частичный кэш, затем on-chain аккаунт минта
	if d, ok := c.decimals.Load(key); ok {
		info.Decimals = d.(uint8)
		resolvedDecimals = true
	} else if c.rpc != nil {
		var m token.Mint
		if err := c.rpc.GetAccountDataInto(ctx, mint, &m); err != nil {
			c.logger.Debug("failed to read mint account",
				zap.String("mint", key),
				zap.Error(err))
		} else {
			info.Decimals = m.Decimals
			resolvedDecimals = true
			c.decimals.Store(key, m.Decimals)
		}
	}

	// 4. Символ из token API
	apiInfo, err := c.fetchFromAPI(ctx, mint)
	if err != nil {
		c.logger.Debug("failed to fetch token info from API",
			zap.String("mint", key),
			zap.Error(err))
	} else {
		if apiInfo.Symbol != "" {
			info.Symbol = apiInfo.Symbol
			resolvedSymbol = true
		}
		if !resolvedDecimals && apiInfo.Decimals != nil {
			info.Decimals = *apiInfo.Decimals
			resolvedDecimals = true
			c.decimals.Store(key, info.Decimals)
		}
	}

	if resolvedDecimals && resolvedSymbol {
		c.cache.Store(key, info)
		c.decimals.Delete(key)
	} else {
		c.logger.Warn("token info partially resolved, using fallback",
			zap.String("mint", key),
			zap.String("symbol", info.Symbol),
			zap.Uint8("decimals", info.Decimals))
	}

	return info
}

// fetchFromAPI запрашивает {apiURL}/{mint}
func (c *TokenInfoCache) fetchFromAPI(ctx context.Context, mint solana.PublicKey) (*jupiterTokenInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/"+mint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request token API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token API status %d", resp.StatusCode)
	}

	var out jupiterTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode token API response: %w", err)
	}
	return &out, nil
}
