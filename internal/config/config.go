// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. LP_TRACKER_RPC_LIST.
const EnvPrefix = "LP_TRACKER"

type Position struct {
	Pool     string `mapstructure:"pool" json:"pool"`
	Position string `mapstructure:"position" json:"position"`
}

type Config struct {
	RPCList         []string   `mapstructure:"rpc_list"`
	RefreshInterval int        `mapstructure:"refresh_interval"`
	RPCTimeout      int        `mapstructure:"rpc_timeout"`
	HTTPTimeout     int        `mapstructure:"http_timeout"`
	Workers         int        `mapstructure:"workers"`
	PriceCacheTTL   int        `mapstructure:"price_cache_ttl"`
	SignaturePages  int        `mapstructure:"signature_pages"`
	JupiterPriceURL string     `mapstructure:"jupiter_price_url"`
	JupiterTokenURL string     `mapstructure:"jupiter_token_url"`
	BirdeyeURL      string     `mapstructure:"birdeye_url"`
	BirdeyeAPIKey   string     `mapstructure:"birdeye_api_key"`
	DebugLogging    bool       `mapstructure:"debug_logging"`
	ExportDir       string     `mapstructure:"export_dir"`
	Positions       []Position `mapstructure:"positions"`
}

const (
	DefaultRefreshInterval = 30000
	DefaultRPCTimeout      = 10000
	DefaultHTTPTimeout     = 5000
	DefaultWorkers         = 5
	DefaultPriceCacheTTL   = 30000
	DefaultSignaturePages  = 10
	DefaultJupiterPriceURL = "https://lite-api.jup.ag/price/v2"
	DefaultJupiterTokenURL = "https://lite-api.jup.ag/tokens/v1/token"
	DefaultBirdeyeURL      = "https://public-api.birdeye.so"
	DefaultExportDir       = "exports"
)

// LoadConfig reads the config file, applies .env and LP_TRACKER_* overrides and validates.
func LoadConfig(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"refresh_interval":  DefaultRefreshInterval,
		"rpc_timeout":       DefaultRPCTimeout,
		"http_timeout":      DefaultHTTPTimeout,
		"workers":           DefaultWorkers,
		"price_cache_ttl":   DefaultPriceCacheTTL,
		"signature_pages":   DefaultSignaturePages,
		"jupiter_price_url": DefaultJupiterPriceURL,
		"jupiter_token_url": DefaultJupiterTokenURL,
		"birdeye_url":       DefaultBirdeyeURL,
		"export_dir":        DefaultExportDir,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

// loadDotEnv loads KEY=VALUE pairs into the process environment. A missing file is fine;
// variables already set take precedence.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) RefreshIntervalDuration() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Millisecond
}

func (c *Config) RPCTimeoutDuration() time.Duration {
	return time.Duration(c.RPCTimeout) * time.Millisecond
}

func (c *Config) HTTPTimeoutDuration() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Millisecond
}

func (c *Config) PriceCacheTTLDuration() time.Duration {
	return time.Duration(c.PriceCacheTTL) * time.Millisecond
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	for name, raw := range map[string]string{
		"jupiter_price_url": cfg.JupiterPriceURL,
		"jupiter_token_url": cfg.JupiterTokenURL,
		"birdeye_url":       cfg.BirdeyeURL,
	} {
		if err := validateURLWithCache(raw, "http"); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	return validatePositions(cfg.Positions)
}

func validateNumericParams(cfg *Config) error {
	if cfg.RefreshInterval <= 0 {
		return errors.New("invalid refresh_interval")
	}
	if cfg.RPCTimeout <= 0 {
		return errors.New("invalid rpc_timeout")
	}
	if cfg.HTTPTimeout <= 0 {
		return errors.New("invalid http_timeout")
	}
	if cfg.Workers <= 0 {
		return errors.New("invalid workers count")
	}
	if cfg.PriceCacheTTL < 0 {
		return errors.New("invalid price_cache_ttl")
	}
	if cfg.SignaturePages <= 0 {
		return errors.New("invalid signature_pages")
	}
	return nil
}

func validatePositions(positions []Position) error {
	seen := make(map[string]struct{}, len(positions))
	for i, p := range positions {
		if _, err := solana.PublicKeyFromBase58(p.Pool); err != nil {
			return fmt.Errorf("positions[%d]: invalid pool address %q: %w", i, p.Pool, err)
		}
		if _, err := solana.PublicKeyFromBase58(p.Position); err != nil {
			return fmt.Errorf("positions[%d]: invalid position address %q: %w", i, p.Position, err)
		}
		if _, dup := seen[p.Pool]; dup {
			return fmt.Errorf("positions[%d]: pool %s listed twice", i, p.Pool)
		}
		seen[p.Pool] = struct{}{}
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if envKey := v.GetString("BIRDEYE_API_KEY"); envKey != "" {
		cfg.BirdeyeAPIKey = envKey
	}

	envRPCList := os.Getenv(EnvPrefix + "_RPC_LIST")
	if envRPCList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(envRPCList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
}
