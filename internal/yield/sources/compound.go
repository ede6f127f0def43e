package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	compoundProtocol = "Compound V3"
	compoundMinTVL   = 10_000_000
	compoundLimit    = 10
)

var compoundTickers = []string{"USDC", "ETH", "PYUSD"}

// CompoundMarkets is the table of known Comet markets served when the
// pool list cannot be fetched at all.
var CompoundMarkets = []yield.Record{
	{Protocol: compoundProtocol, Chain: "ethereum", APY: 3.2, TVL: 320_000_000, Asset: "USDC", Category: yield.CategoryLending, PoolID: "0xc3d688B66703497DAA19211EEdff47f25384cdc3"},
	{Protocol: compoundProtocol, Chain: "ethereum", APY: 2.1, TVL: 180_000_000, Asset: "ETH", Category: yield.CategoryLending, PoolID: "0xA17581A9E3356d9A858b789D68B4d866e593aE94"},
	{Protocol: compoundProtocol, Chain: "arbitrum", APY: 3.8, TVL: 95_000_000, Asset: "USDC", Category: yield.CategoryLending, PoolID: "0xA5EDBDD9646f8dFF606d7448e414884C7d905dCA"},
	{Protocol: compoundProtocol, Chain: "base", APY: 4.1, TVL: 65_000_000, Asset: "USDC", Category: yield.CategoryLending, PoolID: "0xb125E6687d4313864e53df431d5425969c15Eb2F"},
}

// Compound extracts Compound pools from the DefiLlama pool list.
type Compound struct {
	client   *http.Client
	baseURL  string
	fallback []yield.Record
	logger   zerolog.Logger
}

func NewCompound(baseURL string, logger zerolog.Logger) *Compound {
	if baseURL == "" {
		baseURL = DefiLlamaYieldsURL
	}
	return &Compound{
		client:   &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		fallback: CompoundMarkets,
		logger:   logger.With().Str("component", "compound").Logger(),
	}
}

// WithFallback replaces the static market table.
func (c *Compound) WithFallback(markets []yield.Record) *Compound {
	c.fallback = markets
	return c
}

func (c *Compound) Name() string { return "compound-v3" }

func (c *Compound) FetchYields(ctx context.Context) ([]yield.Record, error) {
	pools, err := fetchLlamaPools(ctx, c.client, c.baseURL)
	if err != nil {
		c.logger.Warn().Err(err).Int("markets", len(c.fallback)).Msg("pool list unavailable, using known markets")
		out := make([]yield.Record, len(c.fallback))
		copy(out, c.fallback)
		return out, nil
	}

	var out []yield.Record
	for _, p := range pools {
		project := strings.ToLower(p.Project)
		if project != "compound-v3" && project != "compound" {
			continue
		}
		if p.APY <= 0 || p.TVLUsd <= compoundMinTVL {
			continue
		}
		if !containsAny(p.Symbol, compoundTickers) {
			continue
		}
		out = append(out, yield.Record{
			Protocol: compoundProtocol,
			Chain:    p.Chain,
			APY:      p.APY,
			TVL:      p.TVLUsd,
			Asset:    p.Symbol,
			PoolID:   p.Pool,
			Category: yield.CategoryLending,
		})
		if len(out) == compoundLimit {
			break
		}
	}
	return out, nil
}
