package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const merklBody = `[
  {"id":"a","action":"LEND","tvl":5000000,"apr":9.5,"status":"LIVE","chain":{"name":"Arbitrum"},
   "protocol":{"name":"Euler"},"tokens":[{"symbol":"usdc"}]},
  {"id":"b","action":"POOL","tvl":3000000,"apr":12,"status":"LIVE","chain":{"name":"Base"},
   "protocol":null,"tokens":[{"symbol":"WETH"},{"symbol":"AERO"}]},
  {"id":"c","action":"LEND","tvl":9000000,"apr":20,"status":"LIVE","chain":{"name":"Base"},
   "protocol":{"name":"Moonwell"},"tokens":[{"symbol":"AERO"}]},
  {"id":"d","action":"LEND","tvl":500000,"apr":30,"status":"LIVE","chain":{"name":"Base"},
   "protocol":{"name":"Tiny"},"tokens":[{"symbol":"USDC"}]},
  {"id":"e","action":"LEND","tvl":5000000,"apr":0,"status":"LIVE","chain":{"name":"Base"},
   "protocol":{"name":"Zero"},"tokens":[{"symbol":"DAI"}]}
]`

func TestMerklFetchYields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("status"); got != "LIVE" {
			t.Errorf("status param = %q, want LIVE", got)
		}
		_, _ = w.Write([]byte(merklBody))
	}))
	defer srv.Close()

	recs, err := NewMerkl(srv.URL).FetchYields(context.Background())
	if err != nil {
		t.Fatalf("FetchYields error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2: %+v", len(recs), recs)
	}

	if recs[0].Protocol != "Euler" || recs[0].Chain != "arbitrum" || recs[0].Asset != "USDC" || recs[0].APY != 9.5 {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if recs[0].Category != "lending" || recs[0].PoolID != "a" {
		t.Errorf("recs[0] category/pool = %q/%q", recs[0].Category, recs[0].PoolID)
	}
	if recs[1].Protocol != "Unknown" || recs[1].Asset != "WETH/AERO" || recs[1].Category != "liquidity" {
		t.Errorf("recs[1] = %+v", recs[1])
	}
}

func TestMerklErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewMerkl(srv.URL).FetchYields(context.Background()); err == nil {
		t.Error("expected error for 503")
	}
}
