package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	infisical "github.com/infisical/go-sdk"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/web3-frozen/yield-engine/internal/logging"
	"github.com/web3-frozen/yield-engine/internal/yield/sources"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Backend    BackendConfig    `mapstructure:"backend"`
	Explorer   ExplorerConfig   `mapstructure:"explorer"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Logging    logging.Config   `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	FrontendOrigin string        `mapstructure:"frontend_origin"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type AggregatorConfig struct {
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	MaxResults    int           `mapstructure:"max_results"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

// SourcesConfig locates the upstream yield providers.
type SourcesConfig struct {
	DefiLlamaURL    string               `mapstructure:"defillama_url"`
	UniswapSubgraph string               `mapstructure:"uniswap_subgraph"`
	AaveSubgraphs   []sources.AaveMarket `mapstructure:"aave_subgraphs"`
	MerklURL        string               `mapstructure:"merkl_url"`
	GraphProxyURL   string               `mapstructure:"graph_proxy_url"`
	GraphAPIKey     string               `mapstructure:"graph_api_key"`
}

// BackendConfig points at the analysis backend. An empty URL disables it.
type BackendConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExplorerConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the live-set cache when URL is set.
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
}

type AnalyzerConfig struct {
	LiveConfidence float64 `mapstructure:"live_confidence"`
	DemoConfidence float64 `mapstructure:"demo_confidence"`
}

// envBindings maps config keys to the plain environment names the service
// has always used.
var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.frontend_origin":  "FRONTEND_ORIGIN",
	"redis.url":               "REDIS_URL",
	"redis.password":          "REDIS_PASSWORD",
	"backend.url":             "BACKEND_URL",
	"explorer.api_url":        "EXPLORER_API_URL",
	"explorer.api_key":        "EXPLORER_API_KEY",
	"sources.graph_proxy_url": "GRAPH_PROXY_URL",
	"sources.graph_api_key":   "GRAPH_API_KEY",
	"sources.defillama_url":   "DEFILLAMA_URL",
	"sources.merkl_url":       "MERKL_URL",
	"logging.level":           "LOG_LEVEL",
	"logging.format":          "LOG_FORMAT",
}

// Load builds configuration from file, environment, and defaults, then
// backfills empty secrets from Infisical when credentials are present.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("YIELD_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.frontend_origin", "*")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("aggregator.source_timeout", "5s")
	v.SetDefault("aggregator.max_results", 20)
	v.SetDefault("aggregator.cache_ttl", "60s")

	v.SetDefault("sources.defillama_url", sources.DefiLlamaYieldsURL)
	v.SetDefault("sources.uniswap_subgraph", sources.UniswapV3SubgraphURL)

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("explorer.api_url", "https://api.etherscan.io/api")
	v.SetDefault("explorer.timeout", "10s")

	v.SetDefault("redis.url", "")

	v.SetDefault("analyzer.live_confidence", 0.95)
	v.SetDefault("analyzer.demo_confidence", 0.85)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must be set")
	}
	if c.Aggregator.SourceTimeout <= 0 {
		return fmt.Errorf("aggregator.source_timeout must be greater than zero")
	}
	if c.Aggregator.MaxResults <= 0 {
		return fmt.Errorf("aggregator.max_results must be greater than zero")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be greater than zero")
	}
	if c.Explorer.Timeout <= 0 {
		return fmt.Errorf("explorer.timeout must be greater than zero")
	}
	for name, v := range map[string]float64{
		"analyzer.live_confidence": c.Analyzer.LiveConfidence,
		"analyzer.demo_confidence": c.Analyzer.DemoConfidence,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, v)
		}
	}
	for _, m := range c.Sources.AaveSubgraphs {
		if m.Chain == "" || m.URL == "" {
			return fmt.Errorf("sources.aave_subgraphs entries need chain and url")
		}
	}
	return nil
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		log.Warn().Msg("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		log.Error().Err(err).Msg("infisical auth failed")
		return
	}

	for key, target := range secretTargets(cfg) {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to retrieve secret from infisical")
			continue
		}
		*target = secret.SecretValue
		log.Info().Str("key", key).Msg("loaded secret from infisical")
	}
}

// secretTargets lists the fields Infisical may fill, keyed by secret name.
func secretTargets(cfg *Config) map[string]*string {
	return map[string]*string{
		"EXPLORER_API_KEY": &cfg.Explorer.APIKey,
		"REDIS_PASSWORD":   &cfg.Redis.Password,
		"GRAPH_API_KEY":    &cfg.Sources.GraphAPIKey,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
