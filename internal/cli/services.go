package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/web3-frozen/yield-engine/internal/analyzer"
	"github.com/web3-frozen/yield-engine/internal/cache"
	"github.com/web3-frozen/yield-engine/internal/config"
	"github.com/web3-frozen/yield-engine/internal/handler"
	"github.com/web3-frozen/yield-engine/internal/history"
	"github.com/web3-frozen/yield-engine/internal/yield"
	"github.com/web3-frozen/yield-engine/internal/yield/sources"
)

const redisAttempts = 3

// services holds the wired components shared by every command.
type services struct {
	cfg        *config.Config
	logger     zerolog.Logger
	cache      *cache.LiveSet
	graph      *sources.SubgraphClient
	aggregator *yield.Aggregator
	analyzer   *analyzer.Resolver
	history    *history.Resolver
}

func newServices(cfg *config.Config, logger zerolog.Logger) *services {
	s := &services{cfg: cfg, logger: logger}

	opts := []yield.Option{
		yield.WithSourceTimeout(cfg.Aggregator.SourceTimeout),
		yield.WithMaxResults(cfg.Aggregator.MaxResults),
	}
	if s.cache = connectCache(cfg, logger); s.cache != nil {
		opts = append(opts, yield.WithCache(s.cache))
	}

	s.graph = sources.NewSubgraphClient(cfg.Sources.GraphProxyURL, cfg.Sources.GraphAPIKey)

	s.aggregator = yield.NewAggregator(logger, opts...)
	s.aggregator.Register(sources.NewDefiLlama(cfg.Sources.DefiLlamaURL))
	s.aggregator.Register(sources.NewAave(s.graph, cfg.Sources.AaveSubgraphs, logger))
	s.aggregator.Register(sources.NewCompound(cfg.Sources.DefiLlamaURL, logger))
	s.aggregator.Register(sources.NewUniswap(s.graph, cfg.Sources.UniswapSubgraph))
	if cfg.Sources.MerklURL != "" {
		s.aggregator.Register(sources.NewMerkl(cfg.Sources.MerklURL))
	}

	s.analyzer = analyzer.NewResolver(logger,
		analyzer.NewLive(s.aggregator, cfg.Analyzer.LiveConfidence),
		analyzer.NewBackend(cfg.Backend.URL, cfg.Backend.Timeout),
		analyzer.NewStatic(analyzer.DefaultDemoTable, cfg.Analyzer.DemoConfidence),
	)

	s.history = history.NewResolver(logger,
		history.NewExplorer(cfg.Explorer.APIURL, cfg.Explorer.APIKey, cfg.Explorer.Timeout),
		history.NewIndexer(cfg.Backend.URL, cfg.Backend.Timeout),
		history.NewSynthetic(history.DefaultAnchor),
	)
	return s
}

// connectCache dials Redis when configured. The cache is optional, so a
// connection failure only disables it.
func connectCache(cfg *config.Config, logger zerolog.Logger) *cache.LiveSet {
	if cfg.Redis.URL == "" {
		return nil
	}
	var err error
	for i := 0; i < redisAttempts; i++ {
		var c *cache.LiveSet
		c, err = cache.New(cfg.Redis.URL, cfg.Redis.Password, cfg.Aggregator.CacheTTL)
		if err == nil {
			// Drop any live set left by a previous process with different sources.
			c.Clear(context.Background())
			logger.Info().Dur("ttl", cfg.Aggregator.CacheTTL).Msg("redis connected for live-set cache")
			return c
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("redis not ready, retrying...")
		time.Sleep(2 * time.Second)
	}
	logger.Error().Err(err).Msg("redis unavailable, continuing without cache")
	return nil
}

// readiness returns the cache as a Pinger, or nil when there is none.
func (s *services) readiness() handler.Pinger {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

func (s *services) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
}
