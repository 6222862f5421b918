package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rajchodisetti/pm-router/internal/decision"
	"github.com/Rajchodisetti/pm-router/internal/history"
)

var (
	decideSymbol string
	decideHints  string
	decideCases  string
	decideUseLLM bool
	decideStub   bool
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Run one routing decision and print it as JSON",
	Long: `Warms the regime window with the given hints, builds the historical
prior for the symbol, and prints the resulting decision.

Example usage:
  pmrouter decide --symbol BTC-OUTCOME --hints arb,arb,sniper
  pmrouter decide --symbol BTC-OUTCOME --cases testdata/cases.json --stub-reasoning`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVar(&decideSymbol, "symbol", "", "market symbol to decide for")
	decideCmd.Flags().StringVar(&decideHints, "hints", "", "comma-separated regime hints warming the window (arb, sniper)")
	decideCmd.Flags().StringVar(&decideCases, "cases", "", "path to a JSON case file backing the prior")
	decideCmd.Flags().BoolVar(&decideUseLLM, "use-llm", false, "enable the reasoning model (also PMROUTER_USE_LLM=1)")
	decideCmd.Flags().BoolVar(&decideStub, "stub-reasoning", false, "run against the in-process stub reasoning server")
	_ = decideCmd.MarkFlagRequired("symbol")
}

func runDecide(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := loadCases(decideCases)
	if err != nil {
		return err
	}
	gen, stop, err := buildGenerator(llmEnabled(decideUseLLM), decideStub)
	if err != nil {
		return err
	}
	defer stop()

	analyzer := history.NewAnalyzer(store, gen, analyzerConfig())
	engine := decision.New(decisionConfig(), gen)
	for _, hint := range strings.Split(decideHints, ",") {
		if hint = strings.TrimSpace(hint); hint != "" {
			engine.Observe(hint)
		}
	}

	symbol := strings.ToUpper(strings.TrimSpace(decideSymbol))
	prior := analyzer.Analyze(ctx, history.Filter{Symbol: symbol})
	dec := engine.Decide(ctx, prior)

	out := struct {
		Symbol   string            `json:"symbol"`
		Prior    history.Pattern   `json:"prior"`
		Decision decision.Decision `json:"decision"`
	}{Symbol: symbol, Prior: prior, Decision: dec}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
