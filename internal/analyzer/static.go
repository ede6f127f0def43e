package analyzer

import (
	"cmp"
	"context"
	"fmt"
	"slices"
)

const (
	StaticConfidence = 0.85

	defaultDemoToken = "USDC"
)

// DemoTable maps a token to hardcoded opportunities.
type DemoTable map[string][]Opportunity

// DefaultDemoTable is served when neither live data nor the backend is reachable.
var DefaultDemoTable = DemoTable{
	"USDC": {
		{Protocol: "Aave V3", Chain: "ethereum", APY: 5.2, TVL: 1_000_000},
		{Protocol: "Compound V3", Chain: "arbitrum", APY: 6.8, TVL: 500_000},
		{Protocol: "Morpho", Chain: "base", APY: 7.5, TVL: 300_000},
	},
	"USDT": {
		{Protocol: "Aave V3", Chain: "ethereum", APY: 4.8, TVL: 750_000_000},
		{Protocol: "Compound V3", Chain: "ethereum", APY: 5.6, TVL: 120_000_000},
		{Protocol: "Morpho", Chain: "base", APY: 6.3, TVL: 45_000_000},
	},
	"DAI": {
		{Protocol: "Spark", Chain: "ethereum", APY: 5.0, TVL: 900_000_000},
		{Protocol: "Aave V3", Chain: "polygon", APY: 4.4, TVL: 60_000_000},
		{Protocol: "Morpho", Chain: "ethereum", APY: 6.1, TVL: 80_000_000},
	},
	"ETH": {
		{Protocol: "Lido", Chain: "ethereum", APY: 3.2, TVL: 25_000_000_000},
		{Protocol: "Aave V3", Chain: "arbitrum", APY: 2.4, TVL: 400_000_000},
		{Protocol: "Compound V3", Chain: "ethereum", APY: 2.1, TVL: 180_000_000},
	},
	"PYUSD": {
		{Protocol: "Aave V3", Chain: "ethereum", APY: 5.8, TVL: 150_000_000},
		{Protocol: "Morpho", Chain: "ethereum", APY: 6.4, TVL: 35_000_000},
		{Protocol: "Kamino", Chain: "solana", APY: 7.1, TVL: 90_000_000},
	},
}

// Static answers from a fixed demo table. It never fails.
type Static struct {
	table      DemoTable
	confidence float64
}

func NewStatic(table DemoTable, confidence float64) *Static {
	if len(table) == 0 {
		table = DefaultDemoTable
	}
	if confidence <= 0 {
		confidence = StaticConfidence
	}
	return &Static{table: table, confidence: confidence}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Resolve(_ context.Context, req Request) (Response, error) {
	rows, ok := s.table[req.Token]
	if !ok {
		rows = s.table[defaultDemoToken]
	}

	var matched []Opportunity
	for _, o := range rows {
		if o.APY >= req.MinAPY {
			o.PriceConfidence = s.confidence
			matched = append(matched, o)
		}
	}

	if len(matched) == 0 {
		return Response{
			Success:         false,
			BestOpportunity: placeholder(),
			Message:         fmt.Sprintf("No %s opportunities with APY >= %.2f%% in demo data.", req.Token, req.MinAPY),
		}, nil
	}

	slices.SortStableFunc(matched, func(x, y Opportunity) int {
		return cmp.Compare(y.APY, x.APY)
	})
	best := matched[0]
	return Response{
		Success:          true,
		BestOpportunity:  best,
		AllOpportunities: matched,
		Message: fmt.Sprintf("Live data unavailable, showing demo data. Best: %s on %s at %.2f%% APY.",
			best.Protocol, best.Chain, best.APY),
	}, nil
}
