package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/pm-router/internal/config"
	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/history"
	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/reasoning"
	"github.com/Rajchodisetti/pm-router/internal/strategy"
	"github.com/Rajchodisetti/pm-router/internal/stubs"
)

const version = "0.1.0"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string

	cfg config.Root
)

var rootCmd = &cobra.Command{
	Use:   "pmrouter",
	Short: "Prediction-market strategy router and backtester",
	Long: `pmrouter routes market observations between an orderbook/PM arbitrage
strategy and a discount sniper. A rule-based engine decides per tick from the
recent regime window and a historical prior; a reasoning model, when enabled,
may refine that decision but every failure falls back to the rule path.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if flagLogLevel != "" {
			cfg.Logging.Level = flagLogLevel
		}
		if flagLogFormat != "" {
			cfg.Logging.Format = flagLogFormat
		}
		observ.InitLogging(cfg.Logging.Level, cfg.Logging.Format)
		observ.SetVersion(version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config YAML (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "override logging.format (console, json)")
}

// Execute runs the CLI until completion or an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// llmEnabled resolves the model toggle: explicit flag, then the
// PMROUTER_USE_LLM environment variable, then the config file.
func llmEnabled(flagValue bool) bool {
	if flagValue {
		return true
	}
	switch strings.ToLower(os.Getenv("PMROUTER_USE_LLM")) {
	case "1", "true", "yes":
		return true
	}
	return cfg.Reasoning.Enabled
}

// buildGenerator wires the reasoning client when the model path is on. With
// stubReasoning set it first starts the in-process stub server and points
// the client at it. The returned stop func shuts the stub down.
func buildGenerator(useLLM, stubReasoning bool) (reasoning.Generator, func(), error) {
	stop := func() {}
	if !useLLM && !stubReasoning {
		return nil, stop, nil
	}

	rc := cfg.Reasoning
	key := os.Getenv(rc.APIKeyEnv)
	if stubReasoning {
		stub := stubs.NewReasoningServer()
		baseURL, stopStub, err := stub.Start()
		if err != nil {
			return nil, stop, fmt.Errorf("start stub reasoning server: %w", err)
		}
		stop = stopStub
		rc.BaseURL = baseURL
		if key == "" {
			key = "stub-key"
		}
	}
	if key == "" {
		stop()
		return nil, func() {}, fmt.Errorf("reasoning enabled but %s is not set", rc.APIKeyEnv)
	}

	client, err := reasoning.NewClient(reasoning.Config{
		BaseURL:            rc.BaseURL,
		Model:              rc.Model,
		APIKey:             key,
		TimeoutMs:          rc.TimeoutMs,
		RateLimitPerMinute: rc.RateLimitPerMinute,
		MaxRetries:         rc.MaxRetries,
		BackoffBaseMs:      rc.BackoffBaseMs,
		BreakerMaxFailures: rc.BreakerMaxFailures,
		BreakerOpenMs:      rc.BreakerOpenMs,
	})
	if err != nil {
		stop()
		return nil, func() {}, err
	}
	return client, stop, nil
}

func loadCases(path string) (*history.Store, error) {
	if path == "" {
		return history.NewStore(nil), nil
	}
	return history.LoadStore(path)
}

func analyzerConfig() history.Config {
	return history.Config{
		ConsistencyBonus: cfg.Analyzer.ConsistencyBonus,
		MaxConfidence:    cfg.Analyzer.MaxConfidence,
		DispersionFloor:  cfg.Analyzer.DispersionFloor,
		MaxPromptCases:   cfg.Analyzer.MaxPromptCases,
	}
}

func decisionConfig() decision.Config {
	return decision.Config{
		WindowSize:   cfg.Decision.WindowSize,
		RegimeWeight: cfg.Decision.RegimeWeight,
		PriorWeight:  cfg.Decision.PriorWeight,
	}
}

func newRegistry() *strategy.Registry {
	reg := strategy.NewRegistry()
	reg.Register(strategy.Noop{})
	reg.Register(strategy.NewOUArb(strategy.OUArbConfig{
		MinProfitRate: cfg.Strategies.OUArb.MinProfitRate,
		DefaultSize:   cfg.Strategies.OUArb.DefaultSize,
	}))
	reg.Register(strategy.NewSniper(strategy.SniperConfig{
		MinPriceGap: cfg.Strategies.Sniper.MinPriceGap,
		BaseSize:    cfg.Strategies.Sniper.BaseSize,
		MaxSize:     cfg.Strategies.Sniper.MaxSize,
		GasCost:     cfg.Strategies.Sniper.GasCost,
	}))
	return reg
}
