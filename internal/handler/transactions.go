package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/web3-frozen/yield-engine/internal/history"
)

const HistorySourceHeader = "X-History-Source"

type HistoryResolver interface {
	History(ctx context.Context, address string) (history.Response, string)
}

// Transactions serves GET /api/transactions/{address}. The tier that
// answered is reported in X-History-Source.
func Transactions(h HistoryResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		address := chi.URLParam(r, "address")
		if !common.IsHexAddress(address) {
			http.Error(w, `{"error":"invalid address"}`, http.StatusBadRequest)
			return
		}

		resp, tier := h.History(r.Context(), address)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(HistorySourceHeader, tier)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
