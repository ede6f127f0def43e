package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	aaveProtocol = "Aave V3"
	aaveLimit    = 10

	aaveReservesQuery = `query { reserves { symbol liquidityRate totalLiquidity aToken { id } } }`
)

var (
	ray        = decimal.New(1, 27)
	hundred    = decimal.NewFromInt(100)
	liqDivisor = decimal.New(1, 6)
)

// AaveMarket is one per-chain Aave V3 subgraph.
type AaveMarket struct {
	Chain string `mapstructure:"chain"`
	URL   string `mapstructure:"url"`
}

// DefaultAaveMarkets lists the subgraphs queried when none are configured.
var DefaultAaveMarkets = []AaveMarket{
	{Chain: "ethereum", URL: "https://api.thegraph.com/subgraphs/name/aave/aave-v3-ethereum"},
	{Chain: "arbitrum", URL: "https://api.thegraph.com/subgraphs/name/aave/aave-v3-arbitrum"},
	{Chain: "base", URL: "https://api.studio.thegraph.com/query/24660/aave-v3-base/version/latest"},
	{Chain: "polygon", URL: "https://api.thegraph.com/subgraphs/name/aave/aave-v3-polygon"},
	{Chain: "optimism", URL: "https://api.thegraph.com/subgraphs/name/aave/aave-v3-optimism"},
}

type aaveReserve struct {
	Symbol         string `json:"symbol"`
	LiquidityRate  string `json:"liquidityRate"`
	TotalLiquidity string `json:"totalLiquidity"`
	AToken         struct {
		ID string `json:"id"`
	} `json:"aToken"`
}

// Aave reads supply rates from the per-chain Aave V3 subgraphs.
type Aave struct {
	graph   *SubgraphClient
	markets []AaveMarket
	logger  zerolog.Logger
}

func NewAave(graph *SubgraphClient, markets []AaveMarket, logger zerolog.Logger) *Aave {
	if len(markets) == 0 {
		markets = DefaultAaveMarkets
	}
	return &Aave{
		graph:   graph,
		markets: markets,
		logger:  logger.With().Str("component", "aave").Logger(),
	}
}

func (a *Aave) Name() string { return "aave-v3" }

// FetchYields queries every chain concurrently. A failing chain is skipped;
// only when every chain fails does the adapter report an error.
func (a *Aave) FetchYields(ctx context.Context) ([]yield.Record, error) {
	perChain := make([][]yield.Record, len(a.markets))
	failed := make([]bool, len(a.markets))

	var g errgroup.Group
	for i, m := range a.markets {
		g.Go(func() error {
			recs, err := a.fetchChain(ctx, m)
			if err != nil {
				a.logger.Warn().Err(err).Str("chain", m.Chain).Msg("aave chain fetch failed")
				failed[i] = true
				return nil
			}
			perChain[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var out []yield.Record
	allFailed := true
	for i, recs := range perChain {
		if !failed[i] {
			allFailed = false
		}
		out = append(out, recs...)
	}
	if allFailed && len(a.markets) > 0 {
		return nil, errors.New("all aave chains failed")
	}
	if len(out) > aaveLimit {
		out = out[:aaveLimit]
	}
	return out, nil
}

func (a *Aave) fetchChain(ctx context.Context, m AaveMarket) ([]yield.Record, error) {
	if m.URL == "" {
		return nil, fmt.Errorf("no subgraph url for %s", m.Chain)
	}

	var data struct {
		Reserves []aaveReserve `json:"reserves"`
	}
	if err := a.graph.Query(ctx, m.URL, aaveReservesQuery, &data); err != nil {
		return nil, err
	}

	var out []yield.Record
	for _, r := range data.Reserves {
		if !isTracked(r.Symbol) {
			continue
		}
		apy, tvl, err := normalizeReserve(r)
		if err != nil {
			a.logger.Debug().Err(err).Str("chain", m.Chain).Str("symbol", r.Symbol).Msg("skip reserve")
			continue
		}
		if tvl <= 0 {
			continue
		}
		out = append(out, yield.Record{
			Protocol: aaveProtocol,
			Chain:    m.Chain,
			APY:      apy,
			TVL:      tvl,
			Asset:    r.Symbol,
			PoolID:   r.AToken.ID,
			Category: yield.CategoryLending,
		})
	}
	return out, nil
}

// normalizeReserve converts a ray-scaled liquidity rate to a percentage APY
// and the raw liquidity to a plain decimal.
func normalizeReserve(r aaveReserve) (apy, tvl float64, err error) {
	rate, err := decimal.NewFromString(r.LiquidityRate)
	if err != nil {
		return 0, 0, fmt.Errorf("parse liquidityRate: %w", err)
	}
	liq, err := decimal.NewFromString(r.TotalLiquidity)
	if err != nil {
		return 0, 0, fmt.Errorf("parse totalLiquidity: %w", err)
	}
	if rate.IsNegative() || liq.IsNegative() {
		return 0, 0, fmt.Errorf("negative reserve values")
	}
	apy = rate.Div(ray).Mul(hundred).InexactFloat64()
	tvl = liq.Div(liqDivisor).InexactFloat64()
	return apy, tvl, nil
}
