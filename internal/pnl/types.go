// internal/pnl/types.go
package pnl

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
	"github.com/rovshanmuradov/lp-tracker/internal/events"
	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
)

// StaleThreshold is the age after which a cached entry is considered stale.
const StaleThreshold = 5 * time.Minute

// Ledger is the on-chain data source used by the engine.
type Ledger interface {
	FetchPoolState(ctx context.Context, pool solana.PublicKey) (*damm.Pool, error)
	FetchPositionState(ctx context.Context, position solana.PublicKey) (*damm.Position, error)
	GetCreationEvidence(ctx context.Context, position solana.PublicKey) (*ledger.CreationTx, error)
	GetTokenInfo(ctx context.Context, mint solana.PublicKey) ledger.TokenInfo
}

// PriceOracle returns USD prices. Zero means unknown.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, mint solana.PublicKey) float64
	HistoricalPrice(ctx context.Context, mint solana.PublicKey, at time.Time) float64
}

// Publisher receives engine notifications. Delivery is fire-and-forget.
type Publisher interface {
	Publish(event events.Event) error
}

// TrackedPool is a pool the engine values, together with the position account held in it.
type TrackedPool struct {
	PoolAddress     solana.PublicKey `json:"pool"`
	PositionAddress solana.PublicKey `json:"position"`
}

// CostBasis is the USD value of a position's initial deposit. Immutable once resolved.
type CostBasis struct {
	TokenAMint           solana.PublicKey `json:"token_a_mint"`
	TokenBMint           solana.PublicKey `json:"token_b_mint"`
	InitialTokenAAmount  float64          `json:"initial_token_a_amount"`
	InitialTokenBAmount  float64          `json:"initial_token_b_amount"`
	InitialTokenAPrice   float64          `json:"initial_token_a_price"`
	InitialTokenBPrice   float64          `json:"initial_token_b_price"`
	InitialTotalValueUSD float64          `json:"initial_total_value_usd"`
	CreatedAt            time.Time        `json:"created_at"`
	Signature            solana.Signature `json:"signature"`
	ResolvedAt           time.Time        `json:"resolved_at"`
}

// PositionValuation is the current-state snapshot of a position.
type PositionValuation struct {
	PoolAddress     solana.PublicKey `json:"pool"`
	PositionAddress solana.PublicKey `json:"position"`
	TokenA          ledger.TokenInfo `json:"token_a"`
	TokenB          ledger.TokenInfo `json:"token_b"`

	CurrentTokenAAmount  float64 `json:"current_token_a_amount"`
	CurrentTokenBAmount  float64 `json:"current_token_b_amount"`
	CurrentFeeAAmount    float64 `json:"current_fee_a_amount"`
	CurrentFeeBAmount    float64 `json:"current_fee_b_amount"`
	CurrentTokenAPrice   float64 `json:"current_token_a_price"`
	CurrentTokenBPrice   float64 `json:"current_token_b_price"`
	CurrentTotalValueUSD float64 `json:"current_total_value_usd"`
	FeesEarnedUSD        float64 `json:"fees_earned_usd"`
	PnLUSD               float64 `json:"pnl_usd"`
	PnLPercentage        float64 `json:"pnl_percentage"`

	LastUpdated time.Time `json:"last_updated"`
	IsStale     bool      `json:"is_stale"`
	// Closed is set when the position holds neither liquidity nor pending fees.
	Closed bool `json:"closed"`

	CostBasis *CostBasis `json:"cost_basis"`
}

// PortfolioSummary is a fold over all cached valuations.
type PortfolioSummary struct {
	TotalCurrentValueUSD float64             `json:"total_current_value_usd"`
	TotalInitialValueUSD float64             `json:"total_initial_value_usd"`
	TotalPnLUSD          float64             `json:"total_pnl_usd"`
	TotalPnLPercentage   float64             `json:"total_pnl_percentage"`
	TotalFeesEarnedUSD   float64             `json:"total_fees_earned_usd"`
	LastUpdated          time.Time           `json:"last_updated"`
	Positions            []PositionValuation `json:"positions"`
}

// clone returns a copy that shares no memory with the cached entry.
func (v PositionValuation) clone() PositionValuation {
	if v.CostBasis != nil {
		cb := *v.CostBasis
		v.CostBasis = &cb
	}
	return v
}

func (s *PortfolioSummary) clone() *PortfolioSummary {
	if s == nil {
		return nil
	}
	out := *s
	out.Positions = make([]PositionValuation, len(s.Positions))
	for i, p := range s.Positions {
		out.Positions[i] = p.clone()
	}
	return &out
}

// pnlPercentage returns pnl relative to initial, or 0 when initial is not positive.
func pnlPercentage(pnl, initial float64) float64 {
	if initial <= 0 {
		return 0
	}
	return pnl / initial * 100
}
