package ledger

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-tracker/internal/blockchain/solbc"
	"github.com/rovshanmuradov/lp-tracker/internal/dex/damm"
)

type fakeRPC struct {
	accounts   map[solana.PublicKey][]byte
	accountErr error
	decimals   map[solana.PublicKey]uint8
	mintReads  int
	pages      [][]*rpc.TransactionSignature
	pageCalls  int
	txs        map[solana.Signature]*rpc.GetTransactionResult
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		accounts: make(map[solana.PublicKey][]byte),
		decimals: make(map[solana.PublicKey]uint8),
		txs:      make(map[solana.Signature]*rpc.GetTransactionResult),
	}
}

func (f *fakeRPC) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	data, ok := f.accounts[pubkey]
	if !ok {
		return nil, solbc.ErrAccountNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: damm.ProgramID,
			Data:  rpc.DataBytesOrJSONFromBytes(data),
		},
	}, nil
}

func (f *fakeRPC) GetAccountDataInto(_ context.Context, pubkey solana.PublicKey, dst interface{}) error {
	f.mintReads++
	d, ok := f.decimals[pubkey]
	if !ok {
		return solbc.ErrAccountNotFound
	}
	dst.(*token.Mint).Decimals = d
	return nil
}

func (f *fakeRPC) GetSignaturesForAddress(_ context.Context, _ solana.PublicKey, _ solana.Signature, _ int) ([]*rpc.TransactionSignature, error) {
	if f.pageCalls >= len(f.pages) {
		return nil, nil
	}
	page := f.pages[f.pageCalls]
	f.pageCalls++
	return page, nil
}

func (f *fakeRPC) GetTransaction(_ context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	tx, ok := f.txs[sig]
	if !ok {
		return nil, errors.New("transaction not available")
	}
	return tx, nil
}

func testSig(b byte) solana.Signature {
	var s solana.Signature
	s[0] = b
	s[63] = b
	return s
}

func unix(t time.Time) *solana.UnixTimeSeconds {
	ts := solana.UnixTimeSeconds(t.Unix())
	return &ts
}

func newTestGateway(t *testing.T, f *fakeRPC) *Gateway {
	return NewGateway(GatewayConfig{
		RPC:    f,
		Logger: zaptest.NewLogger(t),
		Tokens: NewTokenInfoCache(TokenInfoCacheConfig{
			RPC:         f,
			Logger:      zaptest.NewLogger(t),
			TokenAPIURL: "http://127.0.0.1:0",
		}),
	})
}

func TestFetchPoolState(t *testing.T) {
	f := newFakeRPC()
	poolAddr := solana.NewWallet().PublicKey()
	pool := &damm.Pool{
		TokenAMint:   solana.NewWallet().PublicKey(),
		TokenBMint:   solana.NewWallet().PublicKey(),
		Liquidity:    big.NewInt(1000),
		SqrtMinPrice: big.NewInt(1),
		SqrtMaxPrice: big.NewInt(1 << 40),
		SqrtPrice:    big.NewInt(1 << 20),
	}
	f.accounts[poolAddr] = damm.EncodePool(pool)

	g := newTestGateway(t, f)

	state, err := g.FetchPoolState(context.Background(), poolAddr)
	require.NoError(t, err)
	assert.True(t, state.TokenAMint.Equals(pool.TokenAMint))
	assert.Equal(t, 0, state.SqrtPrice.Cmp(pool.SqrtPrice))
}

func TestFetchPoolState_Errors(t *testing.T) {
	f := newFakeRPC()
	g := newTestGateway(t, f)
	ctx := context.Background()

	_, err := g.FetchPoolState(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)

	garbage := solana.NewWallet().PublicKey()
	f.accounts[garbage] = []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	_, err = g.FetchPoolState(ctx, garbage)
	assert.ErrorIs(t, err, ErrUnavailable)

	f.accountErr = errors.New("429 too many requests")
	_, err = g.FetchPoolState(ctx, garbage)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFetchPositionState_Closed(t *testing.T) {
	f := newFakeRPC()
	g := newTestGateway(t, f)

	_, err := g.FetchPositionState(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetCreationEvidence_OldestSuccessful(t *testing.T) {
	f := newFakeRPC()
	position := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	full := make([]*rpc.TransactionSignature, signaturePageSize)
	for i := range full {
		full[i] = &rpc.TransactionSignature{Signature: testSig(byte(10 + i%200))}
	}
	f.pages = [][]*rpc.TransactionSignature{
		full,
		{
			{Signature: testSig(2)},
			{Signature: testSig(3), BlockTime: unix(created)},
			{Signature: testSig(4), Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		},
	}
	owner := solana.NewWallet().PublicKey()
	f.txs[testSig(3)] = &rpc.GetTransactionResult{
		Slot: 42,
		Meta: &rpc.TransactionMeta{
			PreTokenBalances: []rpc.TokenBalance{
				{AccountIndex: 1, Mint: mint, Owner: &owner, UiTokenAmount: &rpc.UiTokenAmount{Amount: "5000000", Decimals: 6}},
			},
			PostTokenBalances: []rpc.TokenBalance{
				{AccountIndex: 1, Mint: mint, Owner: &owner, UiTokenAmount: &rpc.UiTokenAmount{Amount: "1000000", Decimals: 6}},
				{AccountIndex: 2, Mint: mint, UiTokenAmount: nil},
			},
		},
	}

	g := newTestGateway(t, f)

	ev, err := g.GetCreationEvidence(context.Background(), position)
	require.NoError(t, err)
	assert.Equal(t, testSig(3), ev.Signature)
	assert.Equal(t, uint64(42), ev.Slot)
	assert.True(t, created.Equal(ev.BlockTime), "block time falls back to the signature entry")
	require.Len(t, ev.PreTokenBalances, 1)
	require.Len(t, ev.PostTokenBalances, 1)
	assert.Equal(t, 0, ev.PreTokenBalances[0].Amount.Cmp(big.NewInt(5_000_000)))
	assert.Equal(t, owner.String(), ev.PostTokenBalances[0].Owner)
	assert.Equal(t, uint8(6), ev.PostTokenBalances[0].Decimals)
	assert.Equal(t, 2, f.pageCalls)
}

func TestGetCreationEvidence_NoHistory(t *testing.T) {
	f := newFakeRPC()
	g := newTestGateway(t, f)

	_, err := g.GetCreationEvidence(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetCreationEvidence_TransactionMissing(t *testing.T) {
	f := newFakeRPC()
	f.pages = [][]*rpc.TransactionSignature{{{Signature: testSig(1)}}}
	g := newTestGateway(t, f)

	_, err := g.GetCreationEvidence(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetTokenInfo(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	var apiCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
		if r.URL.Path == "/"+mint.String() {
			_, _ = w.Write([]byte(`{"address":"` + mint.String() + `","symbol":"BONK","decimals":5}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newFakeRPC()
	f.decimals[mint] = 5
	tokens := NewTokenInfoCache(TokenInfoCacheConfig{
		RPC:         f,
		Logger:      zaptest.NewLogger(t),
		TokenAPIURL: srv.URL,
	})
	g := NewGateway(GatewayConfig{RPC: f, Tokens: tokens, Logger: zaptest.NewLogger(t)})
	ctx := context.Background()

	t.Run("resolved from chain and API", func(t *testing.T) {
		info := g.GetTokenInfo(ctx, mint)
		assert.Equal(t, "BONK", info.Symbol)
		assert.Equal(t, uint8(5), info.Decimals)
	})

	t.Run("known token", func(t *testing.T) {
		usdc := solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
		info := g.GetTokenInfo(ctx, usdc)
		assert.Equal(t, "USDC", info.Symbol)
		assert.Equal(t, uint8(6), info.Decimals)
	})

	t.Run("fallback is not cached", func(t *testing.T) {
		unknown := solana.NewWallet().PublicKey()
		info := g.GetTokenInfo(ctx, unknown)
		assert.Equal(t, UnknownSymbol, info.Symbol)
		assert.Equal(t, uint8(DefaultDecimals), info.Decimals)

		_, cached := tokens.cache.Load(unknown.String())
		assert.False(t, cached)
	})

	t.Run("decimals cached while symbol is retried", func(t *testing.T) {
		noSymbol := solana.NewWallet().PublicKey()
		f.decimals[noSymbol] = 8
		readsBefore := f.mintReads

		for i := 0; i < 3; i++ {
			info := g.GetTokenInfo(ctx, noSymbol)
			assert.Equal(t, UnknownSymbol, info.Symbol)
			assert.Equal(t, uint8(8), info.Decimals)
		}

		assert.Equal(t, readsBefore+1, f.mintReads)
		_, cached := tokens.cache.Load(noSymbol.String())
		assert.False(t, cached)
		apiCallsBefore := apiCalls.Load()
		g.GetTokenInfo(ctx, noSymbol)
		assert.Equal(t, apiCallsBefore+1, apiCalls.Load(), "symbol lookup is retried")
	})

	t.Run("resolved entry is cached", func(t *testing.T) {
		_, cached := tokens.cache.Load(mint.String())
		assert.True(t, cached)
	})
}
