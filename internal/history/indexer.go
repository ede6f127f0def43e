package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errIndexerDisabled = errors.New("backend indexer not configured")

// Indexer asks the backend for its indexed vault events and returns the
// payload as-is.
type Indexer struct {
	client  *http.Client
	baseURL string
}

func NewIndexer(baseURL string, timeout time.Duration) *Indexer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Indexer{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (i *Indexer) Name() string { return "backend" }

func (i *Indexer) Lookup(ctx context.Context, address string) (Response, error) {
	if i.baseURL == "" {
		return Response{}, errIndexerDisabled
	}

	endpoint := i.baseURL + "/api/transactions/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("backend transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("backend transactions status: %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode backend transactions: %w", err)
	}
	return out, nil
}
