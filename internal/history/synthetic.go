package history

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	demoChainID = 11155111
	seedSuffix  = 8
)

// DefaultAnchor is the reference time synthetic timestamps count back from.
var DefaultAnchor = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

// Synthetic derives a small, stable demo history from the address. The same
// address and anchor always produce the same output.
type Synthetic struct {
	anchor time.Time
}

func NewSynthetic(anchor time.Time) *Synthetic {
	if anchor.IsZero() {
		anchor = DefaultAnchor
	}
	return &Synthetic{anchor: anchor}
}

func (s *Synthetic) Name() string { return "synthetic" }

func (s *Synthetic) Lookup(_ context.Context, address string) (Response, error) {
	rng := rand.New(rand.NewPCG(addressSeed(address), demoChainID))
	base := s.anchor.Unix()
	block := 12_000 + rng.IntN(1_000)

	tx := func(blockOffset int, age time.Duration, minEther, spread int) Tx {
		return Tx{
			ID:        fmt.Sprintf("%d_%d_1", demoChainID, block+blockOffset),
			Hash:      pseudoHash(rng),
			Amount:    decimal.New(int64(minEther+rng.IntN(spread)), 18).String(),
			Timestamp: base - int64(age/time.Second),
		}
	}

	return Response{Data: Transactions{
		Deposits: []Tx{
			tx(1, time.Hour, 500, 1000),
			tx(0, 2*time.Hour, 100, 500),
		},
		Withdrawals: []Tx{
			tx(2, 30*time.Minute, 50, 100),
		},
	}}, nil
}

// addressSeed uses the trailing hex characters of the address, hashing them
// when they do not parse as hex.
func addressSeed(address string) uint64 {
	suffix := strings.TrimPrefix(strings.ToLower(address), "0x")
	if len(suffix) > seedSuffix {
		suffix = suffix[len(suffix)-seedSuffix:]
	}
	if v, err := strconv.ParseUint(suffix, 16, 64); err == nil && suffix != "" {
		return v
	}
	h := fnv.New64a()
	h.Write([]byte(suffix))
	return h.Sum64()
}

func pseudoHash(rng *rand.Rand) string {
	var b [common.HashLength]byte
	for i := 0; i < len(b); i += 8 {
		binary.BigEndian.PutUint64(b[i:], rng.Uint64())
	}
	return common.BytesToHash(b[:]).Hex()
}
