package yield

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/yield-engine/internal/metrics"
)

const (
	defaultSourceTimeout = 5 * time.Second
	defaultMaxResults    = 20
)

// Cache stores the latest ranked live set. Implementations must treat
// failures as misses.
type Cache interface {
	Load(ctx context.Context) ([]Record, bool)
	Store(ctx context.Context, records []Record)
}

// Aggregator fans out to every registered Source and ranks the combined result.
type Aggregator struct {
	sources    []Source
	logger     zerolog.Logger
	timeout    time.Duration
	maxResults int
	cache      Cache
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSourceTimeout bounds each source fetch.
func WithSourceTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithMaxResults caps the ranked output length.
func WithMaxResults(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxResults = n
		}
	}
}

// WithCache enables the live-set cache.
func WithCache(c Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

func NewAggregator(logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		logger:     logger.With().Str("component", "aggregator").Logger(),
		timeout:    defaultSourceTimeout,
		maxResults: defaultMaxResults,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a data source to the aggregator. Registration order is the
// tie-break order when two records share an APY.
func (a *Aggregator) Register(src Source) {
	a.sources = append(a.sources, src)
	a.logger.Info().Str("source", src.Name()).Msg("registered source")
}

// SourceNames returns names of all registered sources in registration order.
func (a *Aggregator) SourceNames() []string {
	names := make([]string, 0, len(a.sources))
	for _, src := range a.sources {
		names = append(names, src.Name())
	}
	return names
}

// FetchAll queries every source concurrently and returns the ranked live set.
// A failing, panicking or slow source contributes nothing; it never affects
// the others.
func (a *Aggregator) FetchAll(ctx context.Context) []Record {
	if a.cache != nil {
		if cached, ok := a.cache.Load(ctx); ok {
			metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
			return cached
		}
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	results := make([][]Record, len(a.sources))

	// Every branch returns nil so Wait never short-circuits a sibling.
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var all []Record
	for _, recs := range results {
		all = append(all, recs...)
	}

	ranked := Rank(all, a.maxResults)
	metrics.AggregateRecords.Set(float64(len(ranked)))
	a.logger.Debug().Int("collected", len(all)).Int("ranked", len(ranked)).Msg("aggregation complete")

	if a.cache != nil && len(ranked) > 0 {
		a.cache.Store(ctx, ranked)
	}
	return ranked
}

func (a *Aggregator) fetchOne(ctx context.Context, src Source) (out []Record) {
	name := src.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().Str("source", name).Str("panic", fmt.Sprint(r)).Msg("source panicked")
			metrics.SourceFetchTotal.WithLabelValues(name, "panic").Inc()
			out = nil
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	recs, err := src.FetchYields(fetchCtx)
	metrics.SourceFetchDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		a.logger.Warn().Err(err).Str("source", name).Msg("fetch yields failed")
		metrics.SourceFetchTotal.WithLabelValues(name, "error").Inc()
		metrics.SourceRecords.WithLabelValues(name).Set(0)
		return nil
	}

	out = make([]Record, 0, len(recs))
	for _, r := range recs {
		if !r.Valid() || math.IsNaN(r.APY) || math.IsInf(r.APY, 0) {
			a.logger.Debug().Str("source", name).Str("asset", r.Asset).Msg("dropping malformed record")
			continue
		}
		out = append(out, r)
	}

	metrics.SourceFetchTotal.WithLabelValues(name, "success").Inc()
	metrics.SourceRecords.WithLabelValues(name).Set(float64(len(out)))
	return out
}

// Rank drops non-positive yields, sorts by APY descending keeping source
// order for ties, and truncates to max. TVL and chain never affect order.
func Rank(records []Record, max int) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.APY > 0 {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(x, y Record) int {
		return cmp.Compare(y.APY, x.APY)
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
