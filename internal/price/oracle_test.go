package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	testMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

type feedServer struct {
	jupiterCalls atomic.Int32
	birdeyeCalls atomic.Int32
	jupiterBody  string
	jupiterCode  int
	birdeyeBody  string
	historyBody  string
	lastQuery    atomic.Value
}

func (f *feedServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/jup", func(w http.ResponseWriter, r *http.Request) {
		f.jupiterCalls.Add(1)
		if f.jupiterCode != 0 {
			w.WriteHeader(f.jupiterCode)
			return
		}
		_, _ = w.Write([]byte(f.jupiterBody))
	})
	mux.HandleFunc("/defi/price", func(w http.ResponseWriter, r *http.Request) {
		f.birdeyeCalls.Add(1)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		_, _ = w.Write([]byte(f.birdeyeBody))
	})
	mux.HandleFunc("/defi/history_price", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.Query())
		_, _ = w.Write([]byte(f.historyBody))
	})
	return mux
}

func newTestOracle(t *testing.T, fs *feedServer, apiKey string, ttl time.Duration) *Oracle {
	srv := httptest.NewServer(fs.handler(t))
	t.Cleanup(srv.Close)

	return NewOracle(Config{
		Logger:        zaptest.NewLogger(t),
		JupiterURL:    srv.URL + "/jup",
		BirdeyeURL:    srv.URL,
		BirdeyeAPIKey: apiKey,
		CacheTTL:      ttl,
	})
}

func jupiterBody(mint solana.PublicKey, price string) string {
	return `{"data":{"` + mint.String() + `":{"id":"` + mint.String() + `","type":"derivedPrice","price":"` + price + `"}}}`
}

func TestCurrentPrice_Jupiter(t *testing.T) {
	fs := &feedServer{jupiterBody: jupiterBody(testMint, "150.25")}
	o := newTestOracle(t, fs, "", 0)

	assert.InDelta(t, 150.25, o.CurrentPrice(context.Background(), testMint), 1e-9)
	assert.Equal(t, int32(1), fs.jupiterCalls.Load())
}

func TestCurrentPrice_FallbackToBirdeye(t *testing.T) {
	fs := &feedServer{
		jupiterCode: http.StatusInternalServerError,
		birdeyeBody: `{"success":true,"data":{"value":149.5,"updateUnixTime":1700000000}}`,
	}
	o := newTestOracle(t, fs, "test-key", 0)

	assert.InDelta(t, 149.5, o.CurrentPrice(context.Background(), testMint), 1e-9)
	assert.Equal(t, int32(1), fs.birdeyeCalls.Load())
}

func TestCurrentPrice_AllFeedsFail(t *testing.T) {
	fs := &feedServer{jupiterBody: `{"data":{}}`, birdeyeBody: `{"success":false}`}
	o := newTestOracle(t, fs, "test-key", time.Minute)

	assert.Zero(t, o.CurrentPrice(context.Background(), testMint))
	// zero is never cached
	assert.Zero(t, o.CurrentPrice(context.Background(), testMint))
	assert.Equal(t, int32(2), fs.jupiterCalls.Load())
}

func TestCurrentPrice_NoBirdeyeWithoutKey(t *testing.T) {
	fs := &feedServer{jupiterCode: http.StatusTooManyRequests}
	o := newTestOracle(t, fs, "", 0)

	assert.Zero(t, o.CurrentPrice(context.Background(), testMint))
	assert.Equal(t, int32(0), fs.birdeyeCalls.Load())
}

func TestCurrentPrice_Cache(t *testing.T) {
	fs := &feedServer{jupiterBody: jupiterBody(testMint, "10")}
	o := newTestOracle(t, fs, "", 30*time.Second)

	now := time.Unix(1_700_000_000, 0)
	o.now = func() time.Time { return now }

	ctx := context.Background()
	assert.InDelta(t, 10.0, o.CurrentPrice(ctx, testMint), 1e-9)
	assert.InDelta(t, 10.0, o.CurrentPrice(ctx, testMint), 1e-9)
	assert.Equal(t, int32(1), fs.jupiterCalls.Load())

	now = now.Add(31 * time.Second)
	o.CurrentPrice(ctx, testMint)
	assert.Equal(t, int32(2), fs.jupiterCalls.Load())

	o.ClearCache()
	o.CurrentPrice(ctx, testMint)
	assert.Equal(t, int32(3), fs.jupiterCalls.Load())
}

func TestHistoricalPrice_Nearest(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	fs := &feedServer{
		historyBody: `{"success":true,"data":{"items":[` +
			`{"unixTime":` + strconv.FormatInt(at.Unix()-600, 10) + `,"value":1.0},` +
			`{"unixTime":` + strconv.FormatInt(at.Unix()+60, 10) + `,"value":2.0},` +
			`{"unixTime":` + strconv.FormatInt(at.Unix()+1800, 10) + `,"value":3.0}]}}`,
	}
	o := newTestOracle(t, fs, "test-key", 0)

	assert.InDelta(t, 2.0, o.HistoricalPrice(context.Background(), testMint, at), 1e-9)

	q, ok := fs.lastQuery.Load().(url.Values)
	require.True(t, ok)
	assert.Equal(t, []string{strconv.FormatInt(at.Unix()-3600, 10)}, q["time_from"])
	assert.Equal(t, []string{strconv.FormatInt(at.Unix()+3600, 10)}, q["time_to"])
	assert.Equal(t, []string{"token"}, q["address_type"])
}

func TestHistoricalPrice_Degrades(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)

	t.Run("no points", func(t *testing.T) {
		fs := &feedServer{historyBody: `{"success":true,"data":{"items":[]}}`}
		o := newTestOracle(t, fs, "test-key", 0)
		assert.Zero(t, o.HistoricalPrice(context.Background(), testMint, at))
	})

	t.Run("no api key", func(t *testing.T) {
		o := newTestOracle(t, &feedServer{}, "", 0)
		assert.Zero(t, o.HistoricalPrice(context.Background(), testMint, at))
	})

	t.Run("stablecoin", func(t *testing.T) {
		o := newTestOracle(t, &feedServer{}, "", 0)
		assert.Equal(t, 1.0, o.HistoricalPrice(context.Background(), usdcMint, at))
	})
}

func TestNearestPoint_TieKeepsEarlier(t *testing.T) {
	items := []birdeyeHistoryPoint{{UnixTime: 90, Value: 1}, {UnixTime: 110, Value: 2}}
	assert.Equal(t, 1.0, nearestPoint(items, 100).Value)
}
