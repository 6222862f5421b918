package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Decision struct {
	WindowSize   int     `yaml:"window_size"`   // rolling regime window, e.g. 5
	RegimeWeight float64 `yaml:"regime_weight"` // e.g. 0.7
	PriorWeight  float64 `yaml:"prior_weight"`  // e.g. 0.3
}

type OUArb struct {
	MinProfitRate float64 `yaml:"min_profit_rate"` // spread_pct threshold, e.g. 0.02
	DefaultSize   float64 `yaml:"default_size"`    // units per leg when liquidity unknown
}

type Sniper struct {
	MinPriceGap float64 `yaml:"min_price_gap"` // absolute discount to target, e.g. 0.05
	BaseSize    float64 `yaml:"base_size"`     // units used for the profit gate
	MaxSize     float64 `yaml:"max_size"`      // cap for gap-scaled sizing
	GasCost     float64 `yaml:"gas_cost"`      // fallback when the observation omits it
}

type Strategies struct {
	OUArb  OUArb  `yaml:"ou_arb"`
	Sniper Sniper `yaml:"sniper"`
}

type Analyzer struct {
	ConsistencyBonus float64 `yaml:"consistency_bonus"` // added at zero dispersion, e.g. 0.15
	MaxConfidence    float64 `yaml:"max_confidence"`    // hard cap, e.g. 0.95
	DispersionFloor  float64 `yaml:"dispersion_floor"`  // horizon normalization floor, e.g. 0.1
	MaxPromptCases   int     `yaml:"max_prompt_cases"`  // case summaries sent to the reasoner
}

type Reasoning struct {
	Enabled            bool   `yaml:"enabled"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	APIKeyEnv          string `yaml:"api_key_env"` // key is only ever read from the environment
	TimeoutMs          int    `yaml:"timeout_ms"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	MaxRetries         int    `yaml:"max_retries"`
	BackoffBaseMs      int    `yaml:"backoff_base_ms"`
	BreakerMaxFailures int    `yaml:"breaker_max_failures"`
	BreakerOpenMs      int    `yaml:"breaker_open_ms"`
}

type Backtest struct {
	InitialCash float64 `yaml:"initial_cash"`
	SizingMode  string  `yaml:"sizing_mode"`  // off | risk_scale | kelly
	KellyPayoff float64 `yaml:"kelly_payoff"` // win/loss ratio b for kelly sizing
	DefaultMark float64 `yaml:"default_mark"` // mark when nothing is quoted, e.g. 0.5
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type Root struct {
	Decision   Decision   `yaml:"decision"`
	Strategies Strategies `yaml:"strategies"`
	Analyzer   Analyzer   `yaml:"analyzer"`
	Reasoning  Reasoning  `yaml:"reasoning"`
	Backtest   Backtest   `yaml:"backtest"`
	Logging    Logging    `yaml:"logging"`
}

// Load reads and unmarshals the config file, then applies defaults
// field by field. An empty path yields pure defaults.
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, err
		}
	}
	c.applyDefaults()
	return c, nil
}

// Default returns the built-in configuration.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func (c *Root) applyDefaults() {
	if c.Decision.WindowSize == 0 {
		c.Decision.WindowSize = 5
	}
	if c.Decision.RegimeWeight == 0 {
		c.Decision.RegimeWeight = 0.7
	}
	if c.Decision.PriorWeight == 0 {
		c.Decision.PriorWeight = 0.3
	}

	if c.Strategies.OUArb.MinProfitRate == 0 {
		c.Strategies.OUArb.MinProfitRate = 0.02
	}
	if c.Strategies.OUArb.DefaultSize == 0 {
		c.Strategies.OUArb.DefaultSize = 100
	}
	if c.Strategies.Sniper.MinPriceGap == 0 {
		c.Strategies.Sniper.MinPriceGap = 0.05
	}
	if c.Strategies.Sniper.BaseSize == 0 {
		c.Strategies.Sniper.BaseSize = 100
	}
	if c.Strategies.Sniper.MaxSize == 0 {
		c.Strategies.Sniper.MaxSize = 400
	}

	if c.Analyzer.ConsistencyBonus == 0 {
		c.Analyzer.ConsistencyBonus = 0.15
	}
	if c.Analyzer.MaxConfidence == 0 {
		c.Analyzer.MaxConfidence = 0.95
	}
	if c.Analyzer.DispersionFloor == 0 {
		c.Analyzer.DispersionFloor = 0.1
	}
	if c.Analyzer.MaxPromptCases == 0 {
		c.Analyzer.MaxPromptCases = 5
	}

	if c.Reasoning.BaseURL == "" {
		c.Reasoning.BaseURL = "http://localhost:8090"
	}
	if c.Reasoning.Model == "" {
		c.Reasoning.Model = "gemini-2.0-flash"
	}
	if c.Reasoning.APIKeyEnv == "" {
		c.Reasoning.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Reasoning.TimeoutMs == 0 {
		c.Reasoning.TimeoutMs = 8000
	}
	if c.Reasoning.RateLimitPerMinute == 0 {
		c.Reasoning.RateLimitPerMinute = 30
	}
	if c.Reasoning.MaxRetries == 0 {
		c.Reasoning.MaxRetries = 2
	}
	if c.Reasoning.BackoffBaseMs == 0 {
		c.Reasoning.BackoffBaseMs = 250
	}
	if c.Reasoning.BreakerMaxFailures == 0 {
		c.Reasoning.BreakerMaxFailures = 3
	}
	if c.Reasoning.BreakerOpenMs == 0 {
		c.Reasoning.BreakerOpenMs = 30000
	}

	if c.Backtest.InitialCash == 0 {
		c.Backtest.InitialCash = 10000
	}
	if c.Backtest.SizingMode == "" {
		c.Backtest.SizingMode = "off"
	}
	if c.Backtest.KellyPayoff == 0 {
		c.Backtest.KellyPayoff = 2.0
	}
	if c.Backtest.DefaultMark == 0 {
		c.Backtest.DefaultMark = 0.5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}
