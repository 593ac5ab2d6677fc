// internal/pnl/valuator.go
package pnl

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
	"github.com/rovshanmuradov/lp-tracker/internal/events"
	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
)

// Valuate recomputes the valuation of a tracked pool and writes it to the cache.
// On any error the cache is left untouched.
func (e *Engine) Valuate(ctx context.Context, pool solana.PublicKey) (*PositionValuation, error) {
	return e.valuate(ctx, pool, false)
}

func (e *Engine) valuate(ctx context.Context, pool solana.PublicKey, force bool) (*PositionValuation, error) {
	tp, ok := e.trackedPool(pool)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, pool)
	}

	poolState, err := e.ledger.FetchPoolState(ctx, tp.PoolAddress)
	if err != nil {
		return nil, mapLedgerError("pool", tp.PoolAddress, err)
	}
	position, err := e.ledger.FetchPositionState(ctx, tp.PositionAddress)
	if err != nil {
		return nil, mapLedgerError("position", tp.PositionAddress, err)
	}
	if !position.Pool.Equals(tp.PoolAddress) {
		e.logger.Warn("Position belongs to a different pool",
			zap.String("pool", tp.PoolAddress.String()),
			zap.String("position_pool", position.Pool.String()))
	}

	// Quote a full withdrawal of unlocked + vested liquidity at the current price
	rawA, rawB, err := damm.WithdrawQuote(poolState, position.TotalLiquidity())
	if err != nil {
		return nil, fmt.Errorf("quote pool %s: %w", tp.PoolAddress, err)
	}

	tokenA := e.ledger.GetTokenInfo(ctx, poolState.TokenAMint)
	tokenB := e.ledger.GetTokenInfo(ctx, poolState.TokenBMint)

	priceA := e.oracle.CurrentPrice(ctx, poolState.TokenAMint)
	priceB := e.oracle.CurrentPrice(ctx, poolState.TokenBMint)

	cb, err := e.costBasisFor(ctx, tp, poolState, force)
	if err != nil {
		return nil, err
	}

	v := PositionValuation{
		PoolAddress:         tp.PoolAddress,
		PositionAddress:     tp.PositionAddress,
		TokenA:              tokenA,
		TokenB:              tokenB,
		CurrentTokenAAmount: damm.ToUIAmount(rawA, tokenA.Decimals),
		CurrentTokenBAmount: damm.ToUIAmount(rawB, tokenB.Decimals),
		CurrentFeeAAmount:   damm.ToUIAmountU64(position.FeeAPending, tokenA.Decimals),
		CurrentFeeBAmount:   damm.ToUIAmountU64(position.FeeBPending, tokenB.Decimals),
		CurrentTokenAPrice:  priceA,
		CurrentTokenBPrice:  priceB,
		LastUpdated:         e.now(),
		Closed:              position.IsEmpty(),
		CostBasis:           cb,
	}
	// A zero price leaves its leg out of the totals
	v.CurrentTotalValueUSD = v.CurrentTokenAAmount*priceA + v.CurrentTokenBAmount*priceB
	v.FeesEarnedUSD = v.CurrentFeeAAmount*priceA + v.CurrentFeeBAmount*priceB
	v.PnLUSD = v.CurrentTotalValueUSD + v.FeesEarnedUSD - cb.InitialTotalValueUSD
	v.PnLPercentage = pnlPercentage(v.PnLUSD, cb.InitialTotalValueUSD)

	if priceA == 0 || priceB == 0 {
		e.logger.Debug("Valuation has an unpriced leg",
			zap.String("pool", tp.PoolAddress.String()),
			zap.Float64("price_a", priceA),
			zap.Float64("price_b", priceB))
	}

	key := tp.PoolAddress.String()
	e.mu.Lock()
	// Untracked while in flight: do not resurrect the entry
	if _, still := e.tracked[key]; !still {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotTracked, pool)
	}
	e.valuations[key] = v
	e.mu.Unlock()

	out := v.clone()

	e.publish(PositionValuatedEvent{
		BaseEvent: events.NewBaseEvent(events.PositionValuated),
		Valuation: out.clone(),
	})
	if v.Closed {
		e.logger.Info("Position holds no liquidity and no fees",
			zap.String("pool", key),
			zap.String("position", tp.PositionAddress.String()))
		e.publish(PositionClosedEvent{
			BaseEvent:       events.NewBaseEvent(events.PositionClosed),
			PoolAddress:     key,
			PositionAddress: tp.PositionAddress.String(),
		})
	}

	return &out, nil
}

// mapLedgerError translates gateway errors into engine errors.
func mapLedgerError(what string, address solana.PublicKey, err error) error {
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, address)
	}
	return fmt.Errorf("fetch %s %s: %w", what, address, err)
}
