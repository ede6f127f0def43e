package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SubgraphClient runs GraphQL queries against subgraph endpoints, either
// directly or through a proxy that accepts {url, query} and passes the
// upstream JSON through unchanged.
type SubgraphClient struct {
	client   *http.Client
	proxyURL string
	apiKey   string
}

func NewSubgraphClient(proxyURL, apiKey string) *SubgraphClient {
	return &SubgraphClient{
		client:   &http.Client{Timeout: 15 * time.Second},
		proxyURL: strings.TrimSpace(proxyURL),
		apiKey:   strings.TrimSpace(apiKey),
	}
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Query posts query to the subgraph at url and decodes the "data" member into out.
func (c *SubgraphClient) Query(ctx context.Context, url, query string, out any) error {
	target := url
	payload := map[string]string{"query": query}
	if c.proxyURL != "" {
		target = c.proxyURL
		payload["url"] = url
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" && c.proxyURL == "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read subgraph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("graphql request failed: %d", resp.StatusCode)
	}

	var gr graphResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("unmarshal graphql envelope: %w", err)
	}
	if len(gr.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", gr.Errors[0].Message)
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		return fmt.Errorf("graphql response has no data")
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("unmarshal graphql data: %w", err)
	}
	return nil
}

// UpstreamStatusError reports a non-2xx reply from a subgraph.
type UpstreamStatusError struct {
	Status int
	Body   []byte
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("subgraph status %d", e.Status)
}

// Forward posts query straight to the subgraph at url, bypassing any proxy,
// and returns the raw JSON reply.
func (c *SubgraphClient) Forward(ctx context.Context, url, query string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subgraph request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read subgraph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamStatusError{Status: resp.StatusCode, Body: raw}
	}
	return raw, nil
}
