// Package history resolves a wallet's vault deposits and withdrawals through
// the same live, backend, demo fallback chain the analyzer uses.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/metrics"
)

// ErrNoTransactions means the tier answered but found nothing for the address.
var ErrNoTransactions = errors.New("no transactions for address")

// Tx is one deposit or withdrawal. Amount is a wei integer string and
// Timestamp is unix seconds.
type Tx struct {
	ID        string `json:"id"`
	Hash      string `json:"hash,omitempty"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

type Transactions struct {
	Deposits    []Tx `json:"deposits"`
	Withdrawals []Tx `json:"withdrawals"`
}

// Response mirrors the indexer's GraphQL-style envelope.
type Response struct {
	Data Transactions `json:"data"`
}

func (r Response) empty() bool {
	return len(r.Data.Deposits) == 0 && len(r.Data.Withdrawals) == 0
}

// Strategy is one history tier. An error passes the address to the next tier.
type Strategy interface {
	Name() string
	Lookup(ctx context.Context, address string) (Response, error)
}

type Resolver struct {
	strategies []Strategy
	logger     zerolog.Logger
}

func NewResolver(logger zerolog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     logger.With().Str("component", "history").Logger(),
	}
}

// History returns the first tier's answer together with that tier's name.
// It never fails; with every tier down it returns empty lists and tier "none".
func (r *Resolver) History(ctx context.Context, address string) (Response, string) {
	for _, s := range r.strategies {
		resp, err := lookupSafely(ctx, s, address)
		if err == nil {
			metrics.HistoryTierTotal.WithLabelValues(s.Name()).Inc()
			r.logger.Debug().Str("tier", s.Name()).Str("address", address).Msg("history resolved")
			return normalize(resp), s.Name()
		}
		r.logger.Warn().Err(err).Str("tier", s.Name()).Str("address", address).Msg("tier failed, falling through")
	}
	metrics.HistoryTierTotal.WithLabelValues("none").Inc()
	return normalize(Response{}), "none"
}

func lookupSafely(ctx context.Context, s Strategy, address string) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s tier panicked: %v", s.Name(), p)
		}
	}()
	return s.Lookup(ctx, address)
}

// normalize keeps both lists non-nil so they encode as [] rather than null.
func normalize(r Response) Response {
	if r.Data.Deposits == nil {
		r.Data.Deposits = []Tx{}
	}
	if r.Data.Withdrawals == nil {
		r.Data.Withdrawals = []Tx{}
	}
	return r
}
