package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const LiveConfidence = 0.95

// LiveFetcher returns the ranked live set. *yield.Aggregator satisfies it.
type LiveFetcher interface {
	FetchAll(ctx context.Context) []yield.Record
}

// Live filters the aggregated live set against the request.
type Live struct {
	fetcher    LiveFetcher
	confidence float64
}

func NewLive(fetcher LiveFetcher, confidence float64) *Live {
	if confidence <= 0 {
		confidence = LiveConfidence
	}
	return &Live{fetcher: fetcher, confidence: confidence}
}

func (l *Live) Name() string { return "live" }

// Resolve returns ErrNoLiveData only when nothing was aggregated. A live set
// with no matching records is a final, unsuccessful answer.
func (l *Live) Resolve(ctx context.Context, req Request) (Response, error) {
	recs := l.fetcher.FetchAll(ctx)
	if len(recs) == 0 {
		return Response{}, ErrNoLiveData
	}

	var matched []Opportunity
	for _, r := range recs {
		if r.APY >= req.MinAPY && MatchesAsset(r.Asset, req.Token) {
			matched = append(matched, Opportunity{
				Protocol:        r.Protocol,
				Chain:           r.Chain,
				APY:             r.APY,
				TVL:             r.TVL,
				PriceConfidence: l.confidence,
			})
		}
	}

	if len(matched) == 0 {
		return Response{
			Success:         false,
			BestOpportunity: placeholder(),
			Message: fmt.Sprintf("No %s opportunities with APY >= %.2f%% right now. Available assets: %s.",
				req.Token, req.MinAPY, strings.Join(distinctAssets(recs), ", ")),
		}, nil
	}

	best := matched[0]
	return Response{
		Success:          true,
		BestOpportunity:  best,
		AllOpportunities: matched,
		Message: fmt.Sprintf("Found %d %s opportunities. Best: %s on %s at %.2f%% APY with $%.1fM TVL.",
			len(matched), req.Token, best.Protocol, best.Chain, best.APY, best.TVL/1_000_000),
	}, nil
}

// MatchesAsset reports whether a record's asset satisfies the requested
// token: case-sensitive containment or equality, with ETH also matching
// any ETH or WETH asset.
func MatchesAsset(asset, token string) bool {
	if asset == token || strings.Contains(asset, token) {
		return true
	}
	if token == "ETH" && (strings.Contains(asset, "ETH") || strings.Contains(asset, "WETH")) {
		return true
	}
	return false
}

func distinctAssets(recs []yield.Record) []string {
	seen := make(map[string]bool, len(recs))
	var out []string
	for _, r := range recs {
		if seen[r.Asset] {
			continue
		}
		seen[r.Asset] = true
		out = append(out, r.Asset)
	}
	return out
}
