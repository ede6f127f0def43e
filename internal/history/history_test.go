package history

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0xAbC0000000000000000000000000000000001234"

const explorerBody = `{
  "status": "1",
  "message": "OK",
  "result": [
    {"blockNumber":"100","timeStamp":"1700000300","hash":"0xaaa","transactionIndex":"1",
     "from":"0xabc0000000000000000000000000000000001234","to":"0x00000000000000000000000000000000000000ff",
     "value":"1000000000000000000","isError":"0"},
    {"blockNumber":"99","timeStamp":"1700000200","hash":"0xbbb","transactionIndex":"0",
     "from":"0x00000000000000000000000000000000000000ff","to":"0xABC0000000000000000000000000000000001234",
     "value":"250000000000000000","isError":"0"},
    {"blockNumber":"98","timeStamp":"1700000100","hash":"0xccc","transactionIndex":"2",
     "from":"0xabc0000000000000000000000000000000001234","to":"0x00000000000000000000000000000000000000ff",
     "value":"0","isError":"0"},
    {"blockNumber":"97","timeStamp":"1700000000","hash":"0xddd","transactionIndex":"3",
     "from":"0xabc0000000000000000000000000000000001234","to":"0x00000000000000000000000000000000000000ff",
     "value":"5","isError":"1"},
    {"blockNumber":"96","timeStamp":"soon","hash":"0xeee","transactionIndex":"4",
     "from":"0xabc0000000000000000000000000000000001234","to":"0x00000000000000000000000000000000000000ff",
     "value":"7","isError":"0"}
  ]
}`

func explorerServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, "key", q.Get("apikey"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExplorerBucketsByDirection(t *testing.T) {
	srv := explorerServer(t, explorerBody)

	resp, err := NewExplorer(srv.URL, "key", time.Second).Lookup(context.Background(), wallet)
	require.NoError(t, err)

	require.Len(t, resp.Data.Deposits, 1)
	require.Len(t, resp.Data.Withdrawals, 1)
	assert.Equal(t, "0xaaa", resp.Data.Deposits[0].Hash)
	assert.Equal(t, "1000000000000000000", resp.Data.Deposits[0].Amount)
	assert.Equal(t, int64(1700000300), resp.Data.Deposits[0].Timestamp)
	assert.Equal(t, "100_1", resp.Data.Deposits[0].ID)
	assert.Equal(t, "0xbbb", resp.Data.Withdrawals[0].Hash)
	for _, tx := range resp.Data.Deposits {
		assert.NotEqual(t, "0xeee", tx.Hash, "malformed timeStamp must be skipped")
	}
}

func TestExplorerEmptyHistory(t *testing.T) {
	srv := explorerServer(t, `{"status":"0","message":"No transactions found","result":[]}`)

	_, err := NewExplorer(srv.URL, "key", time.Second).Lookup(context.Background(), wallet)
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestExplorerRateLimited(t *testing.T) {
	srv := explorerServer(t, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)

	_, err := NewExplorer(srv.URL, "key", time.Second).Lookup(context.Background(), wallet)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTransactions)
}

func TestExplorerDisabled(t *testing.T) {
	_, err := NewExplorer("", "", time.Second).Lookup(context.Background(), wallet)
	assert.Error(t, err)
}

func TestIndexerReturnsPayloadUnchanged(t *testing.T) {
	want := Response{Data: Transactions{
		Deposits:    []Tx{{ID: "11155111_1_1", Amount: "42", Timestamp: 10}},
		Withdrawals: []Tx{},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions/"+wallet, r.URL.Path)
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := NewIndexer(srv.URL, time.Second).Lookup(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndexerNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewIndexer(srv.URL, time.Second).Lookup(context.Background(), wallet)
	assert.Error(t, err)
}

func TestSyntheticIsDeterministic(t *testing.T) {
	s := NewSynthetic(time.Time{})

	first, err := s.Lookup(context.Background(), wallet)
	require.NoError(t, err)
	second, err := NewSynthetic(time.Time{}).Lookup(context.Background(), wallet)
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))

	require.Len(t, first.Data.Deposits, 2)
	require.Len(t, first.Data.Withdrawals, 1)

	hashRe := regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	for _, tx := range append(first.Data.Deposits, first.Data.Withdrawals...) {
		assert.Regexp(t, hashRe, tx.Hash)
		assert.Regexp(t, `^[1-9][0-9]{18,}$`, tx.Amount)
		assert.Less(t, tx.Timestamp, DefaultAnchor.Unix())
	}
}

func TestSyntheticDiffersByAddress(t *testing.T) {
	s := NewSynthetic(time.Time{})
	a, _ := s.Lookup(context.Background(), wallet)
	b, _ := s.Lookup(context.Background(), "0x000000000000000000000000000000000000beef")
	assert.NotEqual(t, a.Data.Deposits[0].Hash, b.Data.Deposits[0].Hash)
}

func TestAddressSeed(t *testing.T) {
	assert.Equal(t, uint64(0x00001234), addressSeed(wallet))
	assert.Equal(t, addressSeed("0xdeadbeef"), addressSeed("0xDEADBEEF"))
	assert.Equal(t, addressSeed("not-an-address"), addressSeed("not-an-address"))
}

type brokenStrategy struct {
	name  string
	panic bool
}

func (b brokenStrategy) Name() string { return b.name }
func (b brokenStrategy) Lookup(context.Context, string) (Response, error) {
	if b.panic {
		panic("boom")
	}
	return Response{}, errors.New("down")
}

func TestResolverFallsThroughToSynthetic(t *testing.T) {
	r := NewResolver(zerolog.Nop(),
		brokenStrategy{name: "explorer"},
		brokenStrategy{name: "backend", panic: true},
		NewSynthetic(time.Time{}),
	)

	first, tier := r.History(context.Background(), wallet)
	assert.Equal(t, "synthetic", tier)
	second, _ := r.History(context.Background(), wallet)
	assert.Equal(t, first, second)
}

func TestResolverEmptyExplorerFallsToIndexer(t *testing.T) {
	explorer := explorerServer(t, `{"status":"0","message":"No transactions found","result":[]}`)
	indexer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"deposits":[{"id":"x","amount":"1","timestamp":1}],"withdrawals":[]}}`))
	}))
	defer indexer.Close()

	r := NewResolver(zerolog.Nop(),
		NewExplorer(explorer.URL, "key", time.Second),
		NewIndexer(indexer.URL, time.Second),
		NewSynthetic(time.Time{}),
	)

	resp, tier := r.History(context.Background(), wallet)
	assert.Equal(t, "backend", tier)
	require.Len(t, resp.Data.Deposits, 1)
	assert.Equal(t, "x", resp.Data.Deposits[0].ID)
}

func TestResolverAllFail(t *testing.T) {
	r := NewResolver(zerolog.Nop(), brokenStrategy{name: "a"})

	resp, tier := r.History(context.Background(), wallet)
	assert.Equal(t, "none", tier)
	assert.NotNil(t, resp.Data.Deposits)
	assert.NotNil(t, resp.Data.Withdrawals)
}
