// internal/ledger/gateway.go
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-tracker/internal/blockchain/solbc"
	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
)

const (
	signaturePageSize  = 1000
	defaultMaxPages    = 10
	defaultCallTimeout = 10 * time.Second
)

// RPC is the subset of the Solana client the gateway needs.
type RPC interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetAccountDataInto(ctx context.Context, pubkey solana.PublicKey, dst interface{}) error
	GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, before solana.Signature, limit int) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	RPC         RPC
	Tokens      *TokenInfoCache
	Logger      *zap.Logger
	CallTimeout time.Duration
	// MaxSignaturePages bounds how far back creation evidence is searched.
	MaxSignaturePages int
}

// Gateway reads pool state, position state, transaction history and token metadata
// from the ledger. It performs no retries; callers own the retry policy.
type Gateway struct {
	rpc      RPC
	tokens   *TokenInfoCache
	logger   *zap.Logger
	timeout  time.Duration
	maxPages int
}

// NewGateway creates a new ledger gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	maxPages := cfg.MaxSignaturePages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewTokenInfoCache(TokenInfoCacheConfig{RPC: cfg.RPC, Logger: cfg.Logger})
	}

	return &Gateway{
		rpc:      cfg.RPC,
		tokens:   tokens,
		logger:   cfg.Logger.Named("ledger"),
		timeout:  timeout,
		maxPages: maxPages,
	}
}

// FetchPoolState reads and decodes a pool account.
func (g *Gateway) FetchPoolState(ctx context.Context, pool solana.PublicKey) (*damm.Pool, error) {
	data, err := g.accountData(ctx, pool)
	if err != nil {
		return nil, err
	}

	state, err := damm.ParsePool(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode pool %s: %v", ErrUnavailable, pool, err)
	}
	return state, nil
}

// FetchPositionState reads and decodes a position account.
func (g *Gateway) FetchPositionState(ctx context.Context, position solana.PublicKey) (*damm.Position, error) {
	data, err := g.accountData(ctx, position)
	if err != nil {
		return nil, err
	}

	state, err := damm.ParsePosition(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode position %s: %v", ErrUnavailable, position, err)
	}
	return state, nil
}

// GetTokenInfo resolves mint metadata. It never fails; unresolvable mints get
// the UNKNOWN/9 fallback.
func (g *Gateway) GetTokenInfo(ctx context.Context, mint solana.PublicKey) TokenInfo {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.tokens.Get(ctx, mint)
}

// GetCreationEvidence walks the position's signature history (newest first) and
// returns the oldest successful transaction with its token balance changes.
func (g *Gateway) GetCreationEvidence(ctx context.Context, position solana.PublicKey) (*CreationTx, error) {
	oldest, err := g.oldestSignature(ctx, position)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	tx, err := g.rpc.GetTransaction(callCtx, oldest.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction %s: %v", ErrUnavailable, oldest.Signature, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, fmt.Errorf("%w: transaction %s has no meta", ErrUnavailable, oldest.Signature)
	}
	if tx.Meta.Err != nil {
		return nil, fmt.Errorf("%w: transaction %s failed on chain", ErrUnavailable, oldest.Signature)
	}

	var blockTime time.Time
	switch {
	case tx.BlockTime != nil:
		blockTime = tx.BlockTime.Time()
	case oldest.BlockTime != nil:
		blockTime = oldest.BlockTime.Time()
	default:
		return nil, fmt.Errorf("%w: transaction %s has no block time", ErrUnavailable, oldest.Signature)
	}

	pre, err := convertBalances(tx.Meta.PreTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("%w: pre balances of %s: %v", ErrUnavailable, oldest.Signature, err)
	}
	post, err := convertBalances(tx.Meta.PostTokenBalances)
	if err != nil {
		return nil, fmt.Errorf("%w: post balances of %s: %v", ErrUnavailable, oldest.Signature, err)
	}

	g.logger.Debug("Creation transaction found",
		zap.String("position", position.String()),
		zap.String("signature", oldest.Signature.String()),
		zap.Time("block_time", blockTime))

	return &CreationTx{
		Signature:         oldest.Signature,
		BlockTime:         blockTime,
		Slot:              tx.Slot,
		PreTokenBalances:  pre,
		PostTokenBalances: post,
	}, nil
}

// oldestSignature pages through getSignaturesForAddress and keeps the oldest
// successful signature. Failed attempts before creation are skipped.
func (g *Gateway) oldestSignature(ctx context.Context, address solana.PublicKey) (*rpc.TransactionSignature, error) {
	var (
		oldest *rpc.TransactionSignature
		before solana.Signature
	)

	for page := 0; page < g.maxPages; page++ {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		sigs, err := g.rpc.GetSignaturesForAddress(callCtx, address, before, signaturePageSize)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("%w: signatures for %s: %v", ErrUnavailable, address, err)
		}
		if len(sigs) == 0 {
			break
		}

		// Каждая следующая страница старше предыдущей
		for i := len(sigs) - 1; i >= 0; i-- {
			if sigs[i].Err == nil {
				oldest = sigs[i]
				break
			}
		}

		if len(sigs) < signaturePageSize {
			break
		}
		before = sigs[len(sigs)-1].Signature

		if page == g.maxPages-1 {
			g.logger.Warn("Signature history truncated, creation tx may be newer than the real one",
				zap.String("address", address.String()),
				zap.Int("pages", g.maxPages))
		}
	}

	if oldest == nil {
		return nil, fmt.Errorf("%w: no successful transactions for %s", ErrUnavailable, address)
	}
	return oldest, nil
}

// accountData fetches raw account bytes, mapping absence to ErrNotFound.
func (g *Gateway) accountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	acc, err := g.rpc.GetAccountInfo(callCtx, address)
	if err != nil {
		if solbc.IsAccountNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
		}
		return nil, fmt.Errorf("%w: account %s: %v", ErrUnavailable, address, err)
	}
	if acc == nil || acc.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	if !acc.Value.Owner.Equals(damm.ProgramID) {
		g.logger.Debug("Account is not owned by the DAMM program",
			zap.String("address", address.String()),
			zap.String("owner", acc.Value.Owner.String()))
	}

	return acc.Value.Data.GetBinary(), nil
}

// convertBalances maps RPC token balances to ledger balances.
func convertBalances(in []rpc.TokenBalance) ([]TokenBalance, error) {
	out := make([]TokenBalance, 0, len(in))
	for _, b := range in {
		if b.UiTokenAmount == nil {
			continue
		}
		amount, ok := new(big.Int).SetString(b.UiTokenAmount.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q for mint %s", b.UiTokenAmount.Amount, b.Mint)
		}
		owner := ""
		if b.Owner != nil {
			owner = b.Owner.String()
		}
		out = append(out, TokenBalance{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			Owner:        owner,
			Amount:       amount,
			Decimals:     b.UiTokenAmount.Decimals,
		})
	}
	return out, nil
}
