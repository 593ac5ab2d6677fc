// internal/pnl/resolver.go
package pnl

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
)

// depositLeg is a mint whose balance grew in the creation transaction.
type depositLeg struct {
	mint     solana.PublicKey
	amount   *big.Int
	decimals uint8
}

// costBasisFor returns the cached cost basis or resolves it cold. A forced call
// re-verifies an entry older than StaleThreshold; if that fails the old entry stays.
func (e *Engine) costBasisFor(ctx context.Context, tp TrackedPool, pool *damm.Pool, force bool) (*CostBasis, error) {
	key := tp.PoolAddress.String()

	e.mu.RLock()
	cached := e.costBasis[key]
	e.mu.RUnlock()

	if cached != nil {
		if !force || e.now().Sub(cached.ResolvedAt) <= StaleThreshold {
			return cached, nil
		}
		fresh, err := e.resolveCostBasis(ctx, tp.PositionAddress, pool)
		if err != nil {
			e.logger.Warn("Cost basis re-verification failed, keeping cached entry",
				zap.String("pool", key),
				zap.Error(err))
			return cached, nil
		}
		e.storeCostBasis(key, fresh)
		return fresh, nil
	}

	cb, err := e.resolveCostBasis(ctx, tp.PositionAddress, pool)
	if err != nil {
		return nil, err
	}
	e.storeCostBasis(key, cb)
	return cb, nil
}

func (e *Engine) storeCostBasis(key string, cb *CostBasis) {
	e.mu.Lock()
	e.costBasis[key] = cb
	e.mu.Unlock()
}

// resolveCostBasis reconstructs the initial deposit from the position's oldest
// transaction and prices it at that transaction's block time. Only the pool's two
// mints count as deposits; the position NFT and any other mint touched by the
// transaction are ignored.
func (e *Engine) resolveCostBasis(ctx context.Context, position solana.PublicKey, pool *damm.Pool) (*CostBasis, error) {
	tx, err := e.ledger.GetCreationEvidence(ctx, position)
	if err != nil {
		return nil, fmt.Errorf("%w: position %s: %w", ErrCostBasisUnavailable, position, err)
	}
	if tx.BlockTime.IsZero() {
		return nil, fmt.Errorf("%w: creation tx %s has no block time", ErrCostBasisUnavailable, tx.Signature)
	}

	legs := depositLegs(tx.PreTokenBalances, tx.PostTokenBalances)
	a, b, ignored := poolLegs(legs, pool.TokenAMint, pool.TokenBMint)
	if a == nil && b == nil {
		return nil, fmt.Errorf("%w: creation tx %s has no deposits of the pool mints", ErrCostBasisUnavailable, tx.Signature)
	}
	if ignored > 0 {
		e.logger.Debug("Ignored non-pool mints in creation tx",
			zap.String("position", position.String()),
			zap.Int("mints", ignored))
	}

	cb := &CostBasis{
		TokenAMint: pool.TokenAMint,
		TokenBMint: pool.TokenBMint,
		CreatedAt:  tx.BlockTime,
		Signature:  tx.Signature,
		ResolvedAt: e.now(),
	}

	if a != nil {
		cb.InitialTokenAAmount = damm.ToUIAmount(a.amount, a.decimals)
		cb.InitialTokenAPrice = e.oracle.HistoricalPrice(ctx, a.mint, tx.BlockTime)
	}
	if b != nil {
		cb.InitialTokenBAmount = damm.ToUIAmount(b.amount, b.decimals)
		cb.InitialTokenBPrice = e.oracle.HistoricalPrice(ctx, b.mint, tx.BlockTime)
	}

	cb.InitialTotalValueUSD = cb.InitialTokenAAmount*cb.InitialTokenAPrice +
		cb.InitialTokenBAmount*cb.InitialTokenBPrice

	e.logger.Debug("Cost basis resolved",
		zap.String("position", position.String()),
		zap.String("signature", tx.Signature.String()),
		zap.Float64("initial_value_usd", cb.InitialTotalValueUSD))

	return cb, nil
}

// poolLegs picks the legs of the pool's mints, oriented A then B. A side the
// transaction did not deposit stays nil.
func poolLegs(legs []depositLeg, mintA, mintB solana.PublicKey) (a, b *depositLeg, ignored int) {
	for i := range legs {
		switch {
		case legs[i].mint.Equals(mintA):
			a = &legs[i]
		case legs[i].mint.Equals(mintB):
			b = &legs[i]
		default:
			ignored++
		}
	}
	return a, b, ignored
}

// depositLegs sums the positive balance changes per mint, in order of first appearance.
// Rebalancing inside the creation transaction still makes this an approximation.
func depositLegs(pre, post []ledger.TokenBalance) []depositLeg {
	before := make(map[uint16]*big.Int, len(pre))
	for _, b := range pre {
		before[b.AccountIndex] = b.Amount
	}

	var (
		order []string
		legs  = make(map[string]*depositLeg)
	)
	for _, b := range post {
		delta := new(big.Int).Set(b.Amount)
		if prev, ok := before[b.AccountIndex]; ok {
			delta.Sub(delta, prev)
		}
		if delta.Sign() <= 0 {
			continue
		}

		key := b.Mint.String()
		leg, ok := legs[key]
		if !ok {
			leg = &depositLeg{mint: b.Mint, amount: new(big.Int), decimals: b.Decimals}
			legs[key] = leg
			order = append(order, key)
		}
		leg.amount.Add(leg.amount, delta)
	}

	out := make([]depositLeg, 0, len(order))
	for _, k := range order {
		out = append(out, *legs[k])
	}
	return out
}
