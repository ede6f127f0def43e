package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const DefaultExplorerURL = "https://api.etherscan.io/api"

var errExplorerDisabled = errors.New("explorer api not configured")

type explorerResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type explorerTx struct {
	BlockNumber      string `json:"blockNumber"`
	TimeStamp        string `json:"timeStamp"`
	Hash             string `json:"hash"`
	TransactionIndex string `json:"transactionIndex"`
	From             string `json:"from"`
	To               string `json:"to"`
	Value            string `json:"value"`
	IsError          string `json:"isError"`
}

// Explorer reads an Etherscan-compatible txlist endpoint. Transfers sent by
// the address count as deposits, transfers received as withdrawals.
type Explorer struct {
	client *http.Client
	apiURL string
	apiKey string
}

func NewExplorer(apiURL, apiKey string, timeout time.Duration) *Explorer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Explorer{
		client: &http.Client{Timeout: timeout},
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

func (e *Explorer) Name() string { return "explorer" }

func (e *Explorer) Lookup(ctx context.Context, address string) (Response, error) {
	if e.apiURL == "" {
		return Response{}, errExplorerDisabled
	}
	if !common.IsHexAddress(address) {
		return Response{}, fmt.Errorf("invalid address %q", address)
	}

	txs, err := e.txlist(ctx, address)
	if err != nil {
		return Response{}, err
	}

	out := bucket(common.HexToAddress(address), txs)
	if out.empty() {
		return Response{}, ErrNoTransactions
	}
	return out, nil
}

func (e *Explorer) txlist(ctx context.Context, address string) ([]explorerTx, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("sort", "desc")
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer API status: %d", resp.StatusCode)
	}

	var body explorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode explorer: %w", err)
	}

	var txs []explorerTx
	if body.Status != "1" {
		// Etherscan reports an empty history as status 0 with an empty result
		// array; rate limits and key errors put a string in result instead.
		if err := json.Unmarshal(body.Result, &txs); err == nil && len(txs) == 0 {
			return nil, ErrNoTransactions
		}
		return nil, fmt.Errorf("explorer API: %s", body.Message)
	}
	if err := json.Unmarshal(body.Result, &txs); err != nil {
		return nil, fmt.Errorf("decode explorer result: %w", err)
	}
	return txs, nil
}

func bucket(addr common.Address, txs []explorerTx) Response {
	var out Response
	for _, t := range txs {
		if t.IsError == "1" {
			continue
		}
		value, err := decimal.NewFromString(t.Value)
		if err != nil || !value.IsPositive() {
			continue
		}
		ts, err := strconv.ParseInt(t.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		tx := Tx{
			ID:        t.BlockNumber + "_" + t.TransactionIndex,
			Hash:      t.Hash,
			Amount:    value.String(),
			Timestamp: ts,
			From:      t.From,
			To:        t.To,
		}

		switch {
		case common.IsHexAddress(t.From) && common.HexToAddress(t.From) == addr:
			out.Data.Deposits = append(out.Data.Deposits, tx)
		case common.IsHexAddress(t.To) && common.HexToAddress(t.To) == addr:
			out.Data.Withdrawals = append(out.Data.Withdrawals, tx)
		}
	}
	return out
}
