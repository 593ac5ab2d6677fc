package pnl

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
	"github.com/rovshanmuradov/lp-tracker/internal/events"
	"github.com/rovshanmuradov/lp-tracker/internal/ledger"
)

var errRPCDown = errors.New("rpc down")

type fakeLedger struct {
	mu          sync.Mutex
	pools       map[solana.PublicKey]*damm.Pool
	positions   map[solana.PublicKey]*damm.Position
	evidence    map[solana.PublicKey]*ledger.CreationTx
	tokens      map[solana.PublicKey]ledger.TokenInfo
	poolErr     map[solana.PublicKey]error
	evidenceErr error

	// gate, when set, blocks FetchPoolState until closed; entered is signalled first
	gate    chan struct{}
	entered chan struct{}

	poolFetches     atomic.Int32
	evidenceFetches atomic.Int32
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		pools:     make(map[solana.PublicKey]*damm.Pool),
		positions: make(map[solana.PublicKey]*damm.Position),
		evidence:  make(map[solana.PublicKey]*ledger.CreationTx),
		tokens:    make(map[solana.PublicKey]ledger.TokenInfo),
		poolErr:   make(map[solana.PublicKey]error),
	}
}

func (f *fakeLedger) FetchPoolState(ctx context.Context, pool solana.PublicKey) (*damm.Pool, error) {
	f.poolFetches.Add(1)
	if f.gate != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.poolErr[pool]; err != nil {
		return nil, err
	}
	p, ok := f.pools[pool]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return p, nil
}

func (f *fakeLedger) FetchPositionState(ctx context.Context, position solana.PublicKey) (*damm.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[position]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return p, nil
}

func (f *fakeLedger) GetCreationEvidence(ctx context.Context, position solana.PublicKey) (*ledger.CreationTx, error) {
	f.evidenceFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.evidenceErr != nil {
		return nil, f.evidenceErr
	}
	tx, ok := f.evidence[position]
	if !ok {
		return nil, ledger.ErrUnavailable
	}
	return tx, nil
}

func (f *fakeLedger) GetTokenInfo(ctx context.Context, mint solana.PublicKey) ledger.TokenInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if info, ok := f.tokens[mint]; ok {
		return info
	}
	return ledger.TokenInfo{Mint: mint, Symbol: ledger.UnknownSymbol, Decimals: ledger.DefaultDecimals}
}

func (f *fakeLedger) setPoolErr(pool solana.PublicKey, err error) {
	f.mu.Lock()
	f.poolErr[pool] = err
	f.mu.Unlock()
}

type fakeOracle struct {
	mu         sync.Mutex
	current    map[solana.PublicKey]float64
	historical map[solana.PublicKey]float64
	cleared    int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		current:    make(map[solana.PublicKey]float64),
		historical: make(map[solana.PublicKey]float64),
	}
}

func (o *fakeOracle) CurrentPrice(_ context.Context, mint solana.PublicKey) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current[mint]
}

func (o *fakeOracle) HistoricalPrice(_ context.Context, mint solana.PublicKey, _ time.Time) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.historical[mint]
}

func (o *fakeOracle) ClearCache() {
	o.mu.Lock()
	o.cleared++
	o.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) ofType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// scenarioPosition describes a position whose withdraw quote yields amountA/amountB
// raw units. The pool range is effectively unbounded so the quote is exact to a few units.
type scenarioPosition struct {
	pool, position, mintA, mintB solana.PublicKey
	amountA, amountB             int64
	feeA, feeB                   uint64
	depositA, depositB           int64
	decimals                     uint8
}

// q64Sqrt returns sqrt(x) * 2^64 as an integer.
func q64Sqrt(x *big.Float) *big.Int {
	r := new(big.Float).SetPrec(256).Sqrt(x)
	r.Mul(r, new(big.Float).SetMantExp(big.NewFloat(1), 64))
	out, _ := r.Int(nil)
	return out
}

func (s scenarioPosition) install(f *fakeLedger, blockTime time.Time) {
	a := new(big.Float).SetPrec(256).SetInt64(s.amountA)
	b := new(big.Float).SetPrec(256).SetInt64(s.amountB)

	liquidity := q64Sqrt(new(big.Float).SetPrec(256).Mul(a, b))
	sqrtPrice := q64Sqrt(new(big.Float).SetPrec(256).Quo(b, a))
	sqrtMax := new(big.Int).Lsh(big.NewInt(1), 64+60)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pools[s.pool] = &damm.Pool{
		TokenAMint:   s.mintA,
		TokenBMint:   s.mintB,
		Liquidity:    liquidity,
		SqrtMinPrice: new(big.Int),
		SqrtMaxPrice: sqrtMax,
		SqrtPrice:    sqrtPrice,
	}
	f.positions[s.position] = &damm.Position{
		Pool:              s.pool,
		FeeAPending:       s.feeA,
		FeeBPending:       s.feeB,
		UnlockedLiquidity: liquidity,
	}
	f.tokens[s.mintA] = ledger.TokenInfo{Mint: s.mintA, Symbol: "AAA", Decimals: s.decimals}
	f.tokens[s.mintB] = ledger.TokenInfo{Mint: s.mintB, Symbol: "BBB", Decimals: s.decimals}

	user := solana.NewWallet().PublicKey().String()
	f.evidence[s.position] = &ledger.CreationTx{
		Signature: solana.Signature{1, 2, 3},
		BlockTime: blockTime,
		PreTokenBalances: []ledger.TokenBalance{
			{AccountIndex: 1, Mint: s.mintA, Owner: user, Amount: big.NewInt(s.depositA * 10), Decimals: s.decimals},
			{AccountIndex: 2, Mint: s.mintB, Owner: user, Amount: big.NewInt(s.depositB * 10), Decimals: s.decimals},
			{AccountIndex: 3, Mint: s.mintA, Amount: big.NewInt(0), Decimals: s.decimals},
			{AccountIndex: 4, Mint: s.mintB, Amount: big.NewInt(0), Decimals: s.decimals},
		},
		PostTokenBalances: []ledger.TokenBalance{
			{AccountIndex: 1, Mint: s.mintA, Owner: user, Amount: big.NewInt(s.depositA * 9), Decimals: s.decimals},
			{AccountIndex: 2, Mint: s.mintB, Owner: user, Amount: big.NewInt(s.depositB * 9), Decimals: s.decimals},
			{AccountIndex: 3, Mint: s.mintA, Amount: big.NewInt(s.depositA), Decimals: s.decimals},
			{AccountIndex: 4, Mint: s.mintB, Amount: big.NewInt(s.depositB), Decimals: s.decimals},
		},
	}
}

func newScenario(amountA, amountB, depositA, depositB int64) scenarioPosition {
	return scenarioPosition{
		pool:     solana.NewWallet().PublicKey(),
		position: solana.NewWallet().PublicKey(),
		mintA:    solana.NewWallet().PublicKey(),
		mintB:    solana.NewWallet().PublicKey(),
		amountA:  amountA,
		amountB:  amountB,
		depositA: depositA,
		depositB: depositB,
		decimals: 6,
	}
}

func (s scenarioPosition) tracked() TrackedPool {
	return TrackedPool{PoolAddress: s.pool, PositionAddress: s.position}
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}
