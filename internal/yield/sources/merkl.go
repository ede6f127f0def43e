package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	MerklOpportunitiesURL = "https://api.merkl.xyz/v4/opportunities"

	merklMinTVL = 1_000_000
	merklLimit  = 10
)

type merklOpportunity struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Action string  `json:"action"`
	TVL    float64 `json:"tvl"`
	APR    float64 `json:"apr"`
	Status string  `json:"status"`
	Chain  struct {
		Name string `json:"name"`
	} `json:"chain"`
	Protocol *struct {
		Name string `json:"name"`
	} `json:"protocol"`
	Tokens []struct {
		Symbol string `json:"symbol"`
	} `json:"tokens"`
}

func (o merklOpportunity) protocolName() string {
	if o.Protocol != nil && o.Protocol.Name != "" {
		return o.Protocol.Name
	}
	return "Unknown"
}

// asset joins the token symbols the way pool pairs are written elsewhere.
func (o merklOpportunity) asset() string {
	syms := make([]string, 0, len(o.Tokens))
	for _, t := range o.Tokens {
		syms = append(syms, strings.ToUpper(t.Symbol))
	}
	return strings.Join(syms, "/")
}

// Merkl reads incentivised opportunities from the Merkl API. Its APR is
// reported as the record's APY without compounding.
type Merkl struct {
	client  *http.Client
	baseURL string
}

func NewMerkl(baseURL string) *Merkl {
	if baseURL == "" {
		baseURL = MerklOpportunitiesURL
	}
	return &Merkl{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

func (m *Merkl) Name() string { return "merkl" }

func (m *Merkl) FetchYields(ctx context.Context) ([]yield.Record, error) {
	q := url.Values{}
	q.Set("action", "LEND,POOL")
	q.Set("minimumTvl", fmt.Sprintf("%d", merklMinTVL))
	q.Set("sort", "apr")
	q.Set("order", "desc")
	q.Set("items", "50")
	q.Set("status", "LIVE")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("merkl API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("merkl API status: %d", resp.StatusCode)
	}

	var opps []merklOpportunity
	if err := json.NewDecoder(resp.Body).Decode(&opps); err != nil {
		return nil, fmt.Errorf("decode merkl: %w", err)
	}

	var out []yield.Record
	for _, o := range opps {
		if len(out) == merklLimit {
			break
		}
		if o.APR <= 0 || o.TVL <= merklMinTVL || !hasTrackedToken(o) {
			continue
		}
		category := yield.CategoryLending
		if o.Action == "POOL" {
			category = yield.CategoryLiquidity
		}
		out = append(out, yield.Record{
			Protocol: o.protocolName(),
			Chain:    strings.ToLower(o.Chain.Name),
			APY:      o.APR,
			TVL:      o.TVL,
			Asset:    o.asset(),
			PoolID:   o.ID,
			Category: category,
		})
	}
	return out, nil
}

func hasTrackedToken(o merklOpportunity) bool {
	for _, t := range o.Tokens {
		if isTracked(strings.ToUpper(t.Symbol)) {
			return true
		}
	}
	return false
}
