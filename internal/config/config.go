package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/cluster"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/ensemble"
	"github.com/ghantakiran/axion-stock-sub001/internal/hmm"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/ghantakiran/axion-stock-sub001/internal/rule"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Features   FeaturesConfig   `mapstructure:"features"`
	HMM        HMMConfig        `mapstructure:"hmm"`
	Cluster    ClusterConfig    `mapstructure:"cluster"`
	Rule       RuleConfig       `mapstructure:"rule"`
	Transition TransitionConfig `mapstructure:"transition"`
	Ensemble   EnsembleConfig   `mapstructure:"ensemble"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Notify     NotifyConfig     `mapstructure:"notify"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	APIKey       string        `mapstructure:"api_key"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// FeaturesConfig sets the rolling window shared by the HMM and
// clustering methods.
type FeaturesConfig struct {
	Window int `mapstructure:"window"`
}

type HMMConfig struct {
	NStates           int     `mapstructure:"n_states"`
	MinObservations   int     `mapstructure:"min_observations"`
	MaxIterations     int     `mapstructure:"max_iterations"`
	Tolerance         float64 `mapstructure:"tolerance"`
	CovarianceEpsilon float64 `mapstructure:"covariance_epsilon"`
}

type ClusterConfig struct {
	NClusters       int     `mapstructure:"n_clusters"`
	Algorithm       string  `mapstructure:"algorithm"` // "kmeans" or "agglomerative"
	MinObservations int     `mapstructure:"min_observations"`
	MaxIterations   int     `mapstructure:"max_iterations"`
	Tolerance       float64 `mapstructure:"tolerance"`
	Seed            int64   `mapstructure:"seed"`
}

type RuleConfig struct {
	Lookback         int         `mapstructure:"lookback"`
	TrendThreshold   float64     `mapstructure:"trend_threshold"`
	FastPeriod       int         `mapstructure:"fast_period"`
	SlowPeriod       int         `mapstructure:"slow_period"`
	CrisisVolatility float64     `mapstructure:"crisis_volatility"`
	Weights          RuleWeights `mapstructure:"weights"`
}

type RuleWeights struct {
	Trend      float64 `mapstructure:"trend"`
	Momentum   float64 `mapstructure:"momentum"`
	Volatility float64 `mapstructure:"volatility"`
}

type TransitionConfig struct {
	Alpha   float64 `mapstructure:"alpha"`
	Horizon int     `mapstructure:"horizon"`
}

type EnsembleConfig struct {
	Weights       map[string]float64 `mapstructure:"weights"`
	DefaultWeight float64            `mapstructure:"default_weight"`
}

type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Claude   ClaudeConfig  `mapstructure:"claude"`
	OpenAI   OpenAIConfig  `mapstructure:"openai"`
	Ollama   OllamaConfig  `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// ArchiveConfig selects where analysis reports are stored.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// NotifyConfig lists the sinks told about regime changes.
type NotifyConfig struct {
	Webhooks []WebhookConfig `mapstructure:"webhooks"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	h := hmm.DefaultConfig()
	c := cluster.DefaultConfig()
	r := rule.DefaultConfig()
	t := transition.DefaultConfig()
	e := ensemble.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBodyBytes: 8 << 20,
		},
		Log: LogConfig{Level: "info"},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Features: FeaturesConfig{Window: h.FeatureWindow},
		HMM: HMMConfig{
			NStates:           h.NStates,
			MinObservations:   h.MinObservations,
			MaxIterations:     h.MaxIterations,
			Tolerance:         h.Tolerance,
			CovarianceEpsilon: h.CovarianceEpsilon,
		},
		Cluster: ClusterConfig{
			NClusters:       c.NClusters,
			Algorithm:       string(c.Algorithm),
			MinObservations: c.MinObservations,
			MaxIterations:   c.MaxIterations,
			Tolerance:       c.Tolerance,
			Seed:            c.Seed,
		},
		Rule: RuleConfig{
			Lookback:         r.Lookback,
			TrendThreshold:   r.TrendThreshold,
			FastPeriod:       r.FastPeriod,
			SlowPeriod:       r.SlowPeriod,
			CrisisVolatility: r.CrisisVolatility,
			Weights: RuleWeights{
				Trend:      r.TrendWeight,
				Momentum:   r.MomentumWeight,
				Volatility: r.VolatilityWeight,
			},
		},
		Transition: TransitionConfig{Alpha: t.Alpha, Horizon: t.Horizon},
		Ensemble:   EnsembleConfig{Weights: e.Weights, DefaultWeight: e.DefaultWeight},
		LLM:        LLMConfig{Timeout: 60 * time.Second},
		Archive: ArchiveConfig{
			Type: "localfs",
			Path: "./data/archive",
		},
	}
}

func (c *Config) ToHMM() hmm.Config {
	return hmm.Config{
		NStates:           c.HMM.NStates,
		MinObservations:   c.HMM.MinObservations,
		MaxIterations:     c.HMM.MaxIterations,
		Tolerance:         c.HMM.Tolerance,
		CovarianceEpsilon: c.HMM.CovarianceEpsilon,
		FeatureWindow:     c.Features.Window,
	}
}

func (c *Config) ToCluster() cluster.Config {
	return cluster.Config{
		NClusters:       c.Cluster.NClusters,
		Algorithm:       cluster.Algorithm(c.Cluster.Algorithm),
		MinObservations: c.Cluster.MinObservations,
		MaxIterations:   c.Cluster.MaxIterations,
		Tolerance:       c.Cluster.Tolerance,
		Seed:            c.Cluster.Seed,
		FeatureWindow:   c.Features.Window,
	}
}

func (c *Config) ToRule() rule.Config {
	return rule.Config{
		Lookback:         c.Rule.Lookback,
		TrendThreshold:   c.Rule.TrendThreshold,
		FastPeriod:       c.Rule.FastPeriod,
		SlowPeriod:       c.Rule.SlowPeriod,
		CrisisVolatility: c.Rule.CrisisVolatility,
		TrendWeight:      c.Rule.Weights.Trend,
		MomentumWeight:   c.Rule.Weights.Momentum,
		VolatilityWeight: c.Rule.Weights.Volatility,
	}
}

func (c *Config) ToTransition() transition.Config {
	return transition.Config{Alpha: c.Transition.Alpha, Horizon: c.Transition.Horizon}
}

func (c *Config) ToEnsemble() ensemble.Config {
	return ensemble.Config{Weights: c.Ensemble.Weights, DefaultWeight: c.Ensemble.DefaultWeight}
}

// ToPipeline converts every method section.
func (c *Config) ToPipeline() pipeline.Config {
	return pipeline.Config{
		HMM:        c.ToHMM(),
		Cluster:    c.ToCluster(),
		Rule:       c.ToRule(),
		Transition: c.ToTransition(),
		Ensemble:   c.ToEnsemble(),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_body_bytes cannot be negative, got %d", c.Server.MaxBodyBytes))
	}

	// Method sections carry their own validation
	if err := c.ToPipeline().Validate(); err != nil {
		return err
	}

	// LLM validation - if provider set, check config exists
	if c.LLM.Provider != "" {
		switch c.LLM.Provider {
		case "claude":
			if c.LLM.Claude.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("claude api_key required when provider is claude"))
			}
		case "openai":
			if c.LLM.OpenAI.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("openai api_key required when provider is openai"))
			}
		case "ollama":
			if c.LLM.Ollama.Endpoint == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("ollama endpoint required when provider is ollama"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
		}
	}

	// Archive validation
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive s3 bucket required for s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	seen := make(map[string]bool, len(c.Notify.Webhooks))
	for i, w := range c.Notify.Webhooks {
		if w.URL == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("notify webhook %d: url required", i))
		}
		name := w.Name
		if name == "" {
			name = "webhook"
		}
		if seen[name] {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("notify webhook name %q used twice", name))
		}
		seen[name] = true
	}

	return nil
}
