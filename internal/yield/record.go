package yield

import "context"

// Source defines the interface that every upstream yield provider implements.
// To add a new provider, create a struct under sources/ that satisfies this
// interface and register it with the Aggregator.
type Source interface {
	// Name returns a unique identifier for this source (e.g., "defillama").
	Name() string

	// FetchYields fetches and normalizes the source's current opportunities.
	// An error means the source contributed nothing this round.
	FetchYields(ctx context.Context) ([]Record, error)
}

// Category values used by the adapters.
const (
	CategoryLending   = "lending"
	CategoryLiquidity = "liquidity"
)

// Record is the canonical yield opportunity produced by a Source.
// APY is a percentage (4.2 means 4.2%), TVL is plain USD.
type Record struct {
	Protocol string  `json:"protocol"`
	Chain    string  `json:"chain"`
	APY      float64 `json:"apy"`
	TVL      float64 `json:"tvl"`
	Asset    string  `json:"asset"`
	PoolID   string  `json:"poolId,omitempty"`
	Category string  `json:"category"`
}

// Valid reports whether the record satisfies the non-negative APY/TVL invariant.
func (r Record) Valid() bool {
	return r.APY >= 0 && r.TVL >= 0
}
