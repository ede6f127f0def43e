// Package analyzer answers "where is the best yield for this token" by trying
// an ordered chain of strategies: live aggregation, the backend analysis
// endpoint, then a static demo table. Analyze always returns a well-formed
// Response.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/metrics"
)

// Request is a caller's yield query.
type Request struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
	MinAPY float64 `json:"min_apy"`
}

// Opportunity is the response-facing view of a yield record.
type Opportunity struct {
	Protocol        string  `json:"protocol"`
	Chain           string  `json:"chain"`
	APY             float64 `json:"apy"`
	TVL             float64 `json:"tvl"`
	PriceConfidence float64 `json:"price_confidence,omitempty"`
}

// Response is the analyze envelope. When Success is true and
// AllOpportunities is non-empty, BestOpportunity equals AllOpportunities[0].
type Response struct {
	Success          bool          `json:"success"`
	BestOpportunity  Opportunity   `json:"best_opportunity"`
	AllOpportunities []Opportunity `json:"all_opportunities,omitempty"`
	Message          string        `json:"message"`
}

// Strategy is one tier of the fallback chain. An error hands the request to
// the next tier; a Response, successful or not, is final.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, req Request) (Response, error)
}

// Resolver runs strategies in order until one answers.
type Resolver struct {
	strategies []Strategy
	logger     zerolog.Logger
}

func NewResolver(logger zerolog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     logger.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze never fails: if every strategy errors it returns the empty
// placeholder response.
func (r *Resolver) Analyze(ctx context.Context, req Request) Response {
	for _, s := range r.strategies {
		resp, err := resolveSafely(ctx, s, req)
		if err == nil {
			metrics.AnalyzeTierTotal.WithLabelValues(s.Name()).Inc()
			r.logger.Debug().Str("tier", s.Name()).Str("token", req.Token).Bool("success", resp.Success).Msg("analyze resolved")
			return resp
		}
		r.logger.Warn().Err(err).Str("tier", s.Name()).Str("token", req.Token).Msg("tier failed, falling through")
	}
	metrics.AnalyzeTierTotal.WithLabelValues("none").Inc()
	return Response{
		BestOpportunity: placeholder(),
		Message:         fmt.Sprintf("No yield data available for %s right now.", req.Token),
	}
}

func resolveSafely(ctx context.Context, s Strategy, req Request) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s tier panicked: %v", s.Name(), p)
		}
	}()
	return s.Resolve(ctx, req)
}

// ErrNoLiveData signals that live aggregation produced no records at all.
var ErrNoLiveData = errors.New("no live yield data")

func placeholder() Opportunity {
	return Opportunity{Protocol: "None", Chain: "None"}
}
