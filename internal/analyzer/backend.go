package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const analyzePath = "/api/analyze"

// ErrBackendDisabled is returned when no backend URL is configured.
var ErrBackendDisabled = errors.New("backend analysis endpoint not configured")

var errMalformedBackend = errors.New("backend analyze reply has no message or opportunity")

// Backend delegates the request to the external analysis endpoint and
// returns its answer unchanged.
type Backend struct {
	client  *http.Client
	baseURL string
}

func NewBackend(baseURL string, timeout time.Duration) *Backend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Backend{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *Backend) Name() string { return "backend" }

func (b *Backend) Resolve(ctx context.Context, req Request) (Response, error) {
	if b.baseURL == "" {
		return Response{}, ErrBackendDisabled
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("backend analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Response{}, fmt.Errorf("backend analyze status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode backend analyze: %w", err)
	}
	if out.Message == "" && out.BestOpportunity.Protocol == "" {
		return Response{}, errMalformedBackend
	}
	return out, nil
}
