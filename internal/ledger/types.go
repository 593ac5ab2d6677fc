// internal/ledger/types.go
package ledger

import (
	"errors"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrNotFound is returned when a pool or position account does not exist on chain.
	// A missing position usually means it was closed.
	ErrNotFound = errors.New("ledger: account not found")

	// ErrUnavailable is returned when the ledger could not answer (RPC failure,
	// missing transaction, undecodable data).
	ErrUnavailable = errors.New("ledger: data unavailable")
)

// Default fallback for tokens whose metadata cannot be resolved.
const (
	UnknownSymbol   = "UNKNOWN"
	DefaultDecimals = 9
)

// TokenInfo describes a token mint. Immutable once resolved.
type TokenInfo struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
}

// TokenBalance is a single pre- or post-transaction token balance entry.
type TokenBalance struct {
	AccountIndex uint16
	Mint         solana.PublicKey
	Owner        string
	Amount       *big.Int // raw amount in base units
	Decimals     uint8
}

// CreationTx is the evidence used to reconstruct a position's cost basis:
// the oldest successful transaction that touched the position account.
type CreationTx struct {
	Signature         solana.Signature
	BlockTime         time.Time
	Slot              uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}
