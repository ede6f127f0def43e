package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/web3-frozen/yield-engine/internal/yield"
)

const (
	DefiLlamaYieldsURL = "https://yields.llama.fi/pools"

	defiLlamaMinTVL = 1_000_000
	defiLlamaLimit  = 10
)

type llamaResponse struct {
	Status string      `json:"status"`
	Data   []llamaPool `json:"data"`
}

type llamaPool struct {
	Pool     string  `json:"pool"`
	Chain    string  `json:"chain"`
	Project  string  `json:"project"`
	Symbol   string  `json:"symbol"`
	TVLUsd   float64 `json:"tvlUsd"`
	APY      float64 `json:"apy"`
	Category string  `json:"category"`
}

// fetchLlamaPools downloads the full DefiLlama pool list.
func fetchLlamaPools(ctx context.Context, client *http.Client, url string) ([]llamaPool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("defillama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("defillama API status: %d", resp.StatusCode)
	}

	var body llamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode defillama: %w", err)
	}
	return body.Data, nil
}

// DefiLlama reads the DefiLlama pool aggregator.
type DefiLlama struct {
	client  *http.Client
	baseURL string
}

func NewDefiLlama(baseURL string) *DefiLlama {
	if baseURL == "" {
		baseURL = DefiLlamaYieldsURL
	}
	return &DefiLlama{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
	}
}

func (d *DefiLlama) Name() string { return "defillama" }

func (d *DefiLlama) FetchYields(ctx context.Context) ([]yield.Record, error) {
	pools, err := fetchLlamaPools(ctx, d.client, d.baseURL)
	if err != nil {
		return nil, err
	}

	var out []yield.Record
	for _, p := range pools {
		if p.APY <= 0 || p.TVLUsd <= defiLlamaMinTVL {
			continue
		}
		if !containsAny(p.Symbol, trackedTickers) {
			continue
		}
		category := p.Category
		if category == "" {
			category = yield.CategoryLending
		}
		out = append(out, yield.Record{
			Protocol: p.Project,
			Chain:    p.Chain,
			APY:      p.APY,
			TVL:      p.TVLUsd,
			Asset:    p.Symbol,
			PoolID:   p.Pool,
			Category: category,
		})
		if len(out) == defiLlamaLimit {
			break
		}
	}
	return out, nil
}
