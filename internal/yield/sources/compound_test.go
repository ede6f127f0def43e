package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

func TestCompoundFetchYields(t *testing.T) {
	srv := llamaServer(t, []llamaPool{
		{Pool: "c1", Chain: "Ethereum", Project: "compound-v3", Symbol: "USDC", TVLUsd: 300_000_000, APY: 3.9},
		{Pool: "c2", Chain: "Arbitrum", Project: "Compound", Symbol: "WETH", TVLUsd: 50_000_000, APY: 1.8},
		{Pool: "c3", Chain: "Base", Project: "compound-v3", Symbol: "USDC", TVLUsd: 5_000_000, APY: 6},
		{Pool: "c4", Chain: "Ethereum", Project: "compound-v3", Symbol: "DAI", TVLUsd: 50_000_000, APY: 2},
		{Pool: "a1", Chain: "Ethereum", Project: "aave-v3", Symbol: "USDC", TVLUsd: 900_000_000, APY: 4},
	})

	c := NewCompound(srv.URL, zerolog.Nop())
	recs, err := c.FetchYields(context.Background())
	if err != nil {
		t.Fatalf("FetchYields error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(recs), recs)
	}
	for _, r := range recs {
		if r.Protocol != "Compound V3" {
			t.Errorf("Protocol = %q, want Compound V3", r.Protocol)
		}
		if r.Category != yield.CategoryLending {
			t.Errorf("Category = %q, want lending", r.Category)
		}
	}
}

func TestCompoundFallsBackToKnownMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	recs, err := NewCompound(srv.URL, zerolog.Nop()).FetchYields(context.Background())
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if len(recs) != len(CompoundMarkets) {
		t.Fatalf("len = %d, want %d", len(recs), len(CompoundMarkets))
	}
	recs[0].APY = 99
	if CompoundMarkets[0].APY == 99 {
		t.Error("fallback table must not be mutated through returned slice")
	}
}

func TestCompoundCustomFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	table := []yield.Record{{Protocol: "Compound V3", Chain: "test", APY: 1, TVL: 1, Asset: "USDC", Category: "lending"}}
	recs, _ := NewCompound(srv.URL, zerolog.Nop()).WithFallback(table).FetchYields(context.Background())
	if len(recs) != 1 || recs[0].Chain != "test" {
		t.Errorf("got %+v, want custom table", recs)
	}
}

func TestCompoundEmptyListIsNotFailure(t *testing.T) {
	srv := llamaServer(t, nil)
	recs, err := NewCompound(srv.URL, zerolog.Nop()).FetchYields(context.Background())
	if err != nil {
		t.Fatalf("FetchYields error: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len = %d, want 0 (fallback is only for fetch failure)", len(recs))
	}
}
