package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

type fixedFetcher struct {
	recs  []yield.Record
	calls int
	panic bool
}

func (f *fixedFetcher) FetchAll(context.Context) []yield.Record {
	f.calls++
	if f.panic {
		panic("aggregator exploded")
	}
	return f.recs
}

type failingStrategy struct{ name string }

func (f failingStrategy) Name() string { return f.name }
func (f failingStrategy) Resolve(context.Context, Request) (Response, error) {
	return Response{}, errors.New(f.name + " down")
}

func liveSet() []yield.Record {
	return []yield.Record{
		{Protocol: "Morpho", Chain: "ethereum", APY: 5.1, TVL: 45_000_000, Asset: "USDC", Category: "lending"},
		{Protocol: "Aave V3", Chain: "arbitrum", APY: 4.2, TVL: 120_000_000, Asset: "USDC", Category: "lending"},
		{Protocol: "Lido", Chain: "ethereum", APY: 3.0, TVL: 9_000_000_000, Asset: "STETH", Category: "lending"},
		{Protocol: "Uniswap V3", Chain: "ethereum", APY: 2.5, TVL: 80_000_000, Asset: "USDC/WETH", Category: "liquidity"},
	}
}

func TestLiveBestOpportunity(t *testing.T) {
	r := NewResolver(zerolog.Nop(), NewLive(&fixedFetcher{recs: liveSet()}, 0))

	resp := r.Analyze(context.Background(), Request{Token: "USDC", Amount: 1000, MinAPY: 5.0})

	require.True(t, resp.Success)
	assert.Equal(t, "Morpho", resp.BestOpportunity.Protocol)
	assert.Equal(t, 5.1, resp.BestOpportunity.APY)
	assert.Equal(t, 0.95, resp.BestOpportunity.PriceConfidence)
	require.Len(t, resp.AllOpportunities, 1)
	assert.Equal(t, resp.AllOpportunities[0], resp.BestOpportunity)
	assert.Equal(t, "Found 1 USDC opportunities. Best: Morpho on ethereum at 5.10% APY with $45.0M TVL.", resp.Message)
}

func TestLiveAllMatchesInRankOrder(t *testing.T) {
	r := NewResolver(zerolog.Nop(), NewLive(&fixedFetcher{recs: liveSet()}, 0))

	resp := r.Analyze(context.Background(), Request{Token: "USDC", MinAPY: 0})

	require.True(t, resp.Success)
	require.Len(t, resp.AllOpportunities, 3)
	assert.Equal(t, "Morpho", resp.AllOpportunities[0].Protocol)
	assert.Equal(t, "Aave V3", resp.AllOpportunities[1].Protocol)
	assert.Equal(t, "Uniswap V3", resp.AllOpportunities[2].Protocol)
}

func TestLiveNoMatchIsTerminal(t *testing.T) {
	backendCalled := false
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendCalled = true
	}))
	defer backend.Close()

	r := NewResolver(zerolog.Nop(),
		NewLive(&fixedFetcher{recs: liveSet()}, 0),
		NewBackend(backend.URL, time.Second),
		NewStatic(nil, 0),
	)

	resp := r.Analyze(context.Background(), Request{Token: "PYUSD", Amount: 1000, MinAPY: 50})

	assert.False(t, resp.Success)
	assert.False(t, backendCalled, "no-match must not fall through to the backend")
	assert.Equal(t, placeholder(), resp.BestOpportunity)
	assert.Empty(t, resp.AllOpportunities)
	assert.Contains(t, resp.Message, "Available assets: USDC, STETH, USDC/WETH.")
}

func TestEmptyLiveFallsThroughToBackend(t *testing.T) {
	want := Response{
		Success:         true,
		BestOpportunity: Opportunity{Protocol: "Morpho", Chain: "base", APY: 7.5, TVL: 300000},
		Message:         "backend says Morpho",
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/analyze", r.URL.Path)
		var got map[string]any
		_ = json.NewDecoder(r.Body).Decode(&got)
		assert.Equal(t, "USDC", got["token"])
		assert.Equal(t, 5.0, got["min_apy"])
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer backend.Close()

	r := NewResolver(zerolog.Nop(),
		NewLive(&fixedFetcher{}, 0),
		NewBackend(backend.URL, time.Second),
		NewStatic(nil, 0),
	)

	resp := r.Analyze(context.Background(), Request{Token: "USDC", Amount: 1000, MinAPY: 5})
	assert.Equal(t, want, resp)
}

func TestStaticFallbackWhenBackendFails(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	r := NewResolver(zerolog.Nop(),
		NewLive(&fixedFetcher{panic: true}, 0),
		NewBackend(backend.URL, time.Second),
		NewStatic(nil, 0),
	)

	resp := r.Analyze(context.Background(), Request{Token: "USDC", MinAPY: 5})

	require.True(t, resp.Success)
	assert.Equal(t, "Morpho", resp.BestOpportunity.Protocol)
	assert.Equal(t, 7.5, resp.BestOpportunity.APY)
	assert.Equal(t, 0.85, resp.BestOpportunity.PriceConfidence)
	assert.Equal(t, resp.AllOpportunities[0], resp.BestOpportunity)
}

func TestBackendDisabled(t *testing.T) {
	_, err := NewBackend("", time.Second).Resolve(context.Background(), Request{Token: "USDC"})
	assert.ErrorIs(t, err, ErrBackendDisabled)
}

func TestStaticUnknownTokenUsesUSDCTable(t *testing.T) {
	resp, err := NewStatic(nil, 0).Resolve(context.Background(), Request{Token: "FOO", MinAPY: 0})
	require.NoError(t, err)
	assert.Equal(t, "Morpho", resp.BestOpportunity.Protocol)
	assert.Len(t, resp.AllOpportunities, 3)
}

func TestStaticNothingClearsBar(t *testing.T) {
	resp, err := NewStatic(nil, 0).Resolve(context.Background(), Request{Token: "ETH", MinAPY: 10})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, placeholder(), resp.BestOpportunity)
}

func TestStaticInjectedTable(t *testing.T) {
	table := DemoTable{"USDC": {{Protocol: "Fixture", Chain: "testnet", APY: 1, TVL: 1}}}
	resp, err := NewStatic(table, 0.5).Resolve(context.Background(), Request{Token: "USDC"})
	require.NoError(t, err)
	assert.Equal(t, "Fixture", resp.BestOpportunity.Protocol)
	assert.Equal(t, 0.5, resp.BestOpportunity.PriceConfidence)
}

func TestAnalyzeAllTiersFail(t *testing.T) {
	r := NewResolver(zerolog.Nop(), failingStrategy{"a"}, failingStrategy{"b"})

	resp := r.Analyze(context.Background(), Request{Token: "USDC"})
	assert.False(t, resp.Success)
	assert.Equal(t, "None", resp.BestOpportunity.Protocol)
	assert.NotEmpty(t, resp.Message)
}

func TestAnalyzeIdempotent(t *testing.T) {
	r := NewResolver(zerolog.Nop(), NewLive(&fixedFetcher{recs: liveSet()}, 0))
	req := Request{Token: "ETH", Amount: 10, MinAPY: 1}

	first := r.Analyze(context.Background(), req)
	second := r.Analyze(context.Background(), req)
	assert.Equal(t, first, second)
}

func TestMatchesAsset(t *testing.T) {
	tests := []struct {
		asset, token string
		want         bool
	}{
		{"USDC", "USDC", true},
		{"USDC.e", "USDC", true},
		{"USDC/WETH", "USDC", true},
		{"usdc", "USDC", false},
		{"WETH", "ETH", true},
		{"STETH", "ETH", true},
		{"WBTC", "ETH", false},
		{"DAI", "USDT", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchesAsset(tt.asset, tt.token), "MatchesAsset(%q, %q)", tt.asset, tt.token)
	}
}

func TestBackendMalformedReplyFallsToStatic(t *testing.T) {
	for _, body := range []string{`{}`, `{"detail":"Not Found"}`} {
		backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		_, err := NewBackend(backend.URL, time.Second).Resolve(context.Background(), Request{Token: "USDC"})
		assert.Error(t, err, "body %s", body)

		r := NewResolver(zerolog.Nop(),
			NewLive(&fixedFetcher{}, 0),
			NewBackend(backend.URL, time.Second),
			NewStatic(nil, 0),
		)
		resp := r.Analyze(context.Background(), Request{Token: "USDC", MinAPY: 5})
		assert.True(t, resp.Success, "body %s", body)
		assert.Equal(t, "Morpho", resp.BestOpportunity.Protocol, "body %s", body)

		backend.Close()
	}
}
