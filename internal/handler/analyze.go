package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/web3-frozen/yield-engine/internal/analyzer"
)

// DefaultMinAPY applies when a request omits min_apy.
const DefaultMinAPY = 5.0

type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) analyzer.Response
}

type analyzeBody struct {
	Token  string   `json:"token"`
	Amount float64  `json:"amount"`
	MinAPY *float64 `json:"min_apy"`
}

// Analyze validates the query and always answers 200 once it is well formed.
func Analyze(a Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		req := analyzer.Request{
			Token:  strings.TrimSpace(body.Token),
			Amount: body.Amount,
			MinAPY: DefaultMinAPY,
		}
		if body.MinAPY != nil {
			req.MinAPY = *body.MinAPY
		}

		if req.Token == "" {
			http.Error(w, `{"error":"token required"}`, http.StatusBadRequest)
			return
		}
		if req.Amount < 0 || req.MinAPY < 0 {
			http.Error(w, `{"error":"amount and min_apy must not be negative"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.Analyze(r.Context(), req))
	}
}
