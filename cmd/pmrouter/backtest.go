package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/pm-router/internal/backtest"
	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/history"
	"github.com/Rajchodisetti/pm-router/internal/journal"
	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/router"
)

var (
	backtestObservations string
	backtestCases        string
	backtestSizing       string
	backtestSeed         uint64
	backtestMetricsAddr  string
	backtestTradeLog     string
	backtestJSON         bool
	backtestUseLLM       bool
	backtestStub         bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay an observation file through the router",
	Long: `Replays a JSON observation series through the full pipeline and fills
the resulting orders immediately at their stated prices. The same inputs and
seed always produce the same trade log.

Example usage:
  pmrouter backtest --observations testdata/observations.json
  pmrouter backtest --observations testdata/observations.json --cases testdata/cases.json --json
  pmrouter backtest --observations testdata/observations.json --stub-reasoning --sizing kelly`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestObservations, "observations", "", "path to a JSON observation file")
	backtestCmd.Flags().StringVar(&backtestCases, "cases", "", "path to a JSON case file backing priors")
	backtestCmd.Flags().StringVar(&backtestSizing, "sizing", "", "override backtest.sizing_mode (off, risk_scale, kelly)")
	backtestCmd.Flags().Uint64Var(&backtestSeed, "seed", 0, "trade ID entropy seed")
	backtestCmd.Flags().StringVar(&backtestMetricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address during the run")
	backtestCmd.Flags().StringVar(&backtestTradeLog, "trade-log", "", "append the run and its fills to this JSONL journal")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the full result as JSON")
	backtestCmd.Flags().BoolVar(&backtestUseLLM, "use-llm", false, "enable the reasoning model (also PMROUTER_USE_LLM=1)")
	backtestCmd.Flags().BoolVar(&backtestStub, "stub-reasoning", false, "run against the in-process stub reasoning server")
	_ = backtestCmd.MarkFlagRequired("observations")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	observations, err := backtest.LoadObservations(backtestObservations)
	if err != nil {
		return err
	}
	store, err := loadCases(backtestCases)
	if err != nil {
		return err
	}
	gen, stop, err := buildGenerator(llmEnabled(backtestUseLLM), backtestStub)
	if err != nil {
		return err
	}
	defer stop()

	if backtestMetricsAddr != "" {
		srv := serveMetrics(backtestMetricsAddr)
		defer srv.Close()
	}

	analyzer := history.NewAnalyzer(store, gen, analyzerConfig())
	engine := decision.New(decisionConfig(), gen)
	rt := router.New(engine, analyzer, newRegistry())

	sizing := cfg.Backtest.SizingMode
	if backtestSizing != "" {
		sizing = backtestSizing
	}
	bt := backtest.NewEngine(backtest.Config{
		InitialCash: cfg.Backtest.InitialCash,
		SizingMode:  sizing,
		KellyPayoff: cfg.Backtest.KellyPayoff,
		DefaultMark: cfg.Backtest.DefaultMark,
		Seed:        backtestSeed,
	}, rt)

	result, err := bt.Run(ctx, observations)
	if err != nil {
		return err
	}

	if backtestTradeLog != "" {
		if err := writeTradeLog(backtestTradeLog, sizing, len(observations), result); err != nil {
			return fmt.Errorf("trade log: %w", err)
		}
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printSummary(result)
	return nil
}

func writeTradeLog(path, sizing string, observations int, res backtest.Result) error {
	w, err := journal.NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(journal.EntryRunStart, journal.RunStart{
		Name:         res.StrategyName,
		InitialCash:  res.InitialCash,
		SizingMode:   sizing,
		Seed:         backtestSeed,
		Observations: observations,
	}); err != nil {
		return err
	}
	for _, trade := range res.Trades {
		if err := w.Write(journal.EntryTrade, trade); err != nil {
			return err
		}
	}
	return w.Write(journal.EntryRunEnd, journal.RunEnd{
		FinalEquity: res.FinalEquity,
		TotalReturn: res.TotalReturn,
		Trades:      res.TotalTrades,
		Wins:        res.WinningTrades,
		Losses:      res.LosingTrades,
		MaxDrawdown: res.MaxDrawdown,
	})
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observ.Handler())
	mux.Handle("/healthz", observ.HealthHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observ.Warn("metrics_server_error", map[string]any{"error": err.Error()})
		}
	}()
	observ.Log("metrics_listen", map[string]any{"addr": addr})
	return srv
}

func printSummary(res backtest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "strategy\t%s\n", res.StrategyName)
	fmt.Fprintf(w, "initial cash\t%.2f\n", res.InitialCash)
	fmt.Fprintf(w, "final equity\t%.2f\n", res.FinalEquity)
	fmt.Fprintf(w, "total return\t%.2f%%\n", res.TotalReturn*100)
	fmt.Fprintf(w, "trades\t%d (%d win / %d loss)\n", res.TotalTrades, res.WinningTrades, res.LosingTrades)
	fmt.Fprintf(w, "max drawdown\t%.2f%%\n", res.MaxDrawdown*100)
	w.Flush()

	fmt.Printf("\nrouting (%d ticks):\n", res.Routing.TotalTicks)
	names := make([]string, 0, len(res.Routing.Counts))
	for name := range res.Routing.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%d\t%.1f%%\n", name, res.Routing.Counts[name], res.Routing.Fractions[name]*100)
	}
	w.Flush()
}
