package sources

import (
	"context"
	"fmt"
	"strconv"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	UniswapV3SubgraphURL = "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3"

	uniswapProtocol = "Uniswap V3"
	uniswapChain    = "ethereum"
	uniswapLimit    = 10

	uniswapPoolsQuery = `query {
  pools(
    first: 20
    orderBy: totalValueLockedUSD
    orderDirection: desc
    where: { totalValueLockedUSD_gt: "1000000" }
  ) {
    id
    token0 { symbol }
    token1 { symbol }
    feeTier
    totalValueLockedUSD
    volumeUSD
  }
}`
)

// uniswapPairs are the token0/token1 orderings emitted.
var uniswapPairs = map[string]bool{
	"USDC/USDT":  true,
	"USDC/DAI":   true,
	"USDT/DAI":   true,
	"ETH/USDC":   true,
	"WETH/USDC":  true,
	"PYUSD/USDC": true,
	"USDC/ETH":   true,
	"USDC/WETH":  true,
	"USDC/PYUSD": true,
}

type uniswapPool struct {
	ID     string `json:"id"`
	Token0 struct {
		Symbol string `json:"symbol"`
	} `json:"token0"`
	Token1 struct {
		Symbol string `json:"symbol"`
	} `json:"token1"`
	FeeTier             string `json:"feeTier"`
	TotalValueLockedUSD string `json:"totalValueLockedUSD"`
	VolumeUSD           string `json:"volumeUSD"`
}

// Uniswap estimates fee APY for the largest Uniswap V3 pools.
type Uniswap struct {
	graph *SubgraphClient
	url   string
}

func NewUniswap(graph *SubgraphClient, url string) *Uniswap {
	if url == "" {
		url = UniswapV3SubgraphURL
	}
	return &Uniswap{graph: graph, url: url}
}

func (u *Uniswap) Name() string { return "uniswap-v3" }

func (u *Uniswap) FetchYields(ctx context.Context) ([]yield.Record, error) {
	var data struct {
		Pools []uniswapPool `json:"pools"`
	}
	if err := u.graph.Query(ctx, u.url, uniswapPoolsQuery, &data); err != nil {
		return nil, err
	}

	var out []yield.Record
	for _, p := range data.Pools {
		pair := p.Token0.Symbol + "/" + p.Token1.Symbol
		if !uniswapPairs[pair] {
			continue
		}
		tvl, apy, err := poolFeeAPY(p)
		if err != nil || tvl <= 0 {
			continue
		}
		out = append(out, yield.Record{
			Protocol: uniswapProtocol,
			Chain:    uniswapChain,
			APY:      apy,
			TVL:      tvl,
			Asset:    pair,
			PoolID:   p.ID,
			Category: yield.CategoryLiquidity,
		})
		if len(out) == uniswapLimit {
			break
		}
	}
	return out, nil
}

// poolFeeAPY annualizes pool fees: volume * fee * 365 / tvl, as a percentage.
// feeTier is in hundredths of a basis point (3000 = 0.3%).
func poolFeeAPY(p uniswapPool) (tvl, apy float64, err error) {
	tvl, err = strconv.ParseFloat(p.TotalValueLockedUSD, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse tvl: %w", err)
	}
	volume, err := strconv.ParseFloat(p.VolumeUSD, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse volume: %w", err)
	}
	tier, err := strconv.Atoi(p.FeeTier)
	if err != nil {
		return 0, 0, fmt.Errorf("parse fee tier: %w", err)
	}
	if tvl <= 0 || volume < 0 || tier < 0 {
		return tvl, 0, nil
	}
	fee := float64(tier) / 1_000_000
	return tvl, volume * fee * 365 / tvl * 100, nil
}
