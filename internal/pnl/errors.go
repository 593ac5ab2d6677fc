// internal/pnl/errors.go
package pnl

import (
	"errors"

	"github.com/rovshanmuradov/lp-tracker/internal/price"
)

var (
	// ErrNotFound means the pool or position account is absent on chain.
	// The position may have been closed; the caller should untrack it.
	ErrNotFound = errors.New("pool or position not found")

	// ErrCostBasisUnavailable means the creation transaction could not be found or parsed.
	ErrCostBasisUnavailable = errors.New("cost basis unavailable")

	// ErrFeedUnavailable is a price feed failure. The oracle degrades it to a zero price,
	// so the engine never returns it.
	ErrFeedUnavailable = price.ErrFeedUnavailable

	// ErrNotTracked is returned for a pool the engine was never told to track.
	ErrNotTracked = errors.New("pool is not tracked")
)
