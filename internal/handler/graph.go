package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/yield/sources"
)

type Forwarder interface {
	Forward(ctx context.Context, url, query string) ([]byte, error)
}

type graphBody struct {
	URL   string `json:"url"`
	Query string `json:"query"`
}

// GraphProxy relays {url, query} to the named subgraph and returns its JSON
// untouched.
func GraphProxy(f Forwarder, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body graphBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if body.URL == "" || body.Query == "" {
			http.Error(w, `{"error":"Missing url or query"}`, http.StatusBadRequest)
			return
		}
		if u, err := url.Parse(body.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			http.Error(w, `{"error":"invalid url"}`, http.StatusBadRequest)
			return
		}

		raw, err := f.Forward(r.Context(), body.URL, body.Query)
		if err != nil {
			var statusErr *sources.UpstreamStatusError
			if errors.As(err, &statusErr) {
				logger.Warn().Int("status", statusErr.Status).Str("url", body.URL).Msg("subgraph returned error status")
				http.Error(w, `{"error":"GraphQL request failed"}`, http.StatusBadGateway)
				return
			}
			logger.Error().Err(err).Str("url", body.URL).Msg("graph proxy failed")
			http.Error(w, `{"error":"Failed to fetch data"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}
}
