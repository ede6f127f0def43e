package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

type LiveFetcher interface {
	FetchAll(ctx context.Context) []yield.Record
}

type yieldsResponse struct {
	Count int            `json:"count"`
	Data  []yield.Record `json:"data"`
}

// Yields returns the ranked live set.
func Yields(f LiveFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs := f.FetchAll(r.Context())
		if recs == nil {
			recs = []yield.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(yieldsResponse{Count: len(recs), Data: recs})
	}
}
