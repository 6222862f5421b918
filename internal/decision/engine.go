package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rajchodisetti/pm-router/internal/history"
	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/reasoning"
)

// Strategy identifies which execution strategy a decision selects.
type Strategy string

const (
	StrategyOUArb  Strategy = "ou_arb"
	StrategySniper Strategy = "sniper"
	StrategyNone   Strategy = "none"
)

// RiskMode scales how aggressively the selected strategy trades.
type RiskMode string

const (
	RiskDefensive  RiskMode = "defensive"
	RiskNormal     RiskMode = "normal"
	RiskAggressive RiskMode = "aggressive"
)

// Regime hint values recognized in the observation window.
const (
	HintArb    = "arb"
	HintSniper = "sniper"
)

const maxReasonLen = 240

// Decision is the routing verdict for one observation.
type Decision struct {
	Strategy   Strategy `json:"chosen_strategy"`
	RiskMode   RiskMode `json:"risk_mode"`
	Confidence float64  `json:"confidence"` // [0..1]
	Reason     string   `json:"reason"`
	Method     string   `json:"method"` // rule_based or llm
}

// Config holds the window size and confidence blend weights.
type Config struct {
	WindowSize   int     // recent hints considered, default 5
	RegimeWeight float64 // weight of the window fraction, default 0.7
	PriorWeight  float64 // weight of the prior confidence, default 0.3
}

// Engine turns a window of regime hints plus a historical prior into a
// routing decision. The rule-based decision is always computed first; a
// reasoning model, when configured, may replace it with validated fields.
type Engine struct {
	config Config
	gen    reasoning.Generator // nil disables the model path

	window []string // ring of recent regime hints
	next   int
	filled int
}

func New(config Config, gen reasoning.Generator) *Engine {
	if config.WindowSize <= 0 {
		config.WindowSize = 5
	}
	if config.RegimeWeight == 0 {
		config.RegimeWeight = 0.7
	}
	if config.PriorWeight == 0 {
		config.PriorWeight = 0.3
	}
	return &Engine{
		config: config,
		gen:    gen,
		window: make([]string, config.WindowSize),
	}
}

// Observe pushes a regime hint into the fixed-size window, evicting the
// oldest once full.
func (e *Engine) Observe(hint string) {
	e.window[e.next] = hint
	e.next = (e.next + 1) % len(e.window)
	if e.filled < len(e.window) {
		e.filled++
	}
}

// WindowCounts reports how many hints in the window point at each regime.
func (e *Engine) WindowCounts() (arb, sniper int) {
	for i := 0; i < e.filled; i++ {
		switch e.window[i] {
		case HintArb:
			arb++
		case HintSniper:
			sniper++
		}
	}
	return arb, sniper
}

// Decide produces the decision for the current window and prior pattern.
// Model failures never propagate: the rule-based decision is returned with
// the bounded diagnostic appended to its reason.
func (e *Engine) Decide(ctx context.Context, prior history.Pattern) Decision {
	rule := e.decideRule(prior)

	final := rule
	if e.gen != nil {
		model, err := e.decideModel(ctx, rule, prior)
		if err != nil {
			diag := reasoning.Describe(err)
			observ.IncCounter("enrichment_fallbacks_total", map[string]string{"kind": diag.Kind})
			observ.Warn("decision_fallback", map[string]any{"kind": diag.Kind})
			rule.Reason += "; fallback_to_rule_based: " + diag.String()
			final = rule
		} else {
			final = model
		}
	}

	observ.IncCounter("decisions_total", map[string]string{
		"strategy": string(final.Strategy),
		"method":   final.Method,
	})
	return final
}

// decideRule counts regime hints and blends the window fraction with the
// prior's confidence. Ties, including an empty window, go to ou_arb.
func (e *Engine) decideRule(prior history.Pattern) Decision {
	arb, sniper := e.WindowCounts()

	chosen := StrategyOUArb
	maxCount := arb
	label := "Arb"
	if sniper > arb {
		chosen = StrategySniper
		maxCount = sniper
		label = "Sniper"
	}

	regimeFraction := float64(maxCount) / float64(len(e.window))
	confidence := clamp01(e.config.RegimeWeight*regimeFraction + e.config.PriorWeight*prior.Confidence)

	reason := fmt.Sprintf("%s regime detected (%d/%d recent ticks)", label, maxCount, len(e.window))
	if prior.Name != "" && prior.Name != "no_data" {
		reason += fmt.Sprintf("; prior %s avg_3d=%+.4f confidence=%s", prior.Name, prior.AvgReturn3D, prior.Bucket)
	}

	return Decision{
		Strategy:   chosen,
		RiskMode:   riskModeFor(prior, chosen),
		Confidence: confidence,
		Reason:     reason,
		Method:     reasoning.MethodRuleBased,
	}
}

// riskModeFor maps the prior's confidence bucket to a risk mode. Aggressive
// additionally requires the prior's dominant tag to agree with the chosen
// strategy.
func riskModeFor(prior history.Pattern, chosen Strategy) RiskMode {
	switch prior.Bucket {
	case history.BucketHigh:
		if familyOf(prior.DominantTag) == chosen {
			return RiskAggressive
		}
		return RiskNormal
	case history.BucketMedium:
		return RiskNormal
	default:
		return RiskDefensive
	}
}

// familyOf maps a case tag to the strategy family it points at.
func familyOf(tag string) Strategy {
	switch {
	case strings.Contains(tag, "arb"):
		return StrategyOUArb
	case strings.Contains(tag, "snip"):
		return StrategySniper
	default:
		return StrategyNone
	}
}

// modelDecision is the JSON payload the model must return.
type modelDecision struct {
	ChosenStrategy string   `json:"chosen_strategy"`
	RiskMode       string   `json:"risk_mode"`
	Confidence     *float64 `json:"confidence"`
	Reason         string   `json:"reason"`
}

func (e *Engine) decideModel(ctx context.Context, rule Decision, prior history.Pattern) (Decision, error) {
	arb, sniper := e.WindowCounts()
	prompt := buildDecisionPrompt(rule, prior, arb, sniper, len(e.window))

	text, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return Decision{}, err
	}
	var md modelDecision
	if err := reasoning.DecodeJSON(text, &md); err != nil {
		return Decision{}, err
	}
	return mergeModelDecision(md)
}

// mergeModelDecision validates the model payload into a Decision. It is
// pure: same payload, same decision.
func mergeModelDecision(md modelDecision) (Decision, error) {
	strategy := Strategy(md.ChosenStrategy)
	switch strategy {
	case StrategyOUArb, StrategySniper, StrategyNone:
	default:
		return Decision{}, reasoning.NewValidationError("chosen_strategy must be ou_arb, sniper, or none")
	}
	mode := RiskMode(md.RiskMode)
	switch mode {
	case RiskDefensive, RiskNormal, RiskAggressive:
	default:
		return Decision{}, reasoning.NewValidationError("risk_mode must be defensive, normal, or aggressive")
	}
	if md.Confidence == nil || *md.Confidence < 0 || *md.Confidence > 1 {
		return Decision{}, reasoning.NewValidationError("confidence outside [0,1]")
	}
	if md.Reason == "" {
		return Decision{}, reasoning.NewValidationError("reason is empty")
	}
	return Decision{
		Strategy:   strategy,
		RiskMode:   mode,
		Confidence: *md.Confidence,
		Reason:     reasoning.Truncate(md.Reason, maxReasonLen),
		Method:     reasoning.MethodLLM,
	}, nil
}

func buildDecisionPrompt(rule Decision, prior history.Pattern, arb, sniper, window int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recent regime hints: arb=%d sniper=%d window=%d\n", arb, sniper, window)
	fmt.Fprintf(&b, "Historical prior: pattern=%s avg_3d=%+.4f confidence=%.2f (%s) horizon=%s\n",
		prior.Name, prior.AvgReturn3D, prior.Confidence, prior.Bucket, prior.TypicalHorizon)
	fmt.Fprintf(&b, "Rule-based decision: strategy=%s risk=%s confidence=%.2f\n",
		rule.Strategy, rule.RiskMode, rule.Confidence)
	b.WriteString(`Respond with strict JSON only, no prose: {"chosen_strategy": "ou_arb"|"sniper"|"none", "risk_mode": "defensive"|"normal"|"aggressive", "confidence": number in [0,1], "reason": string}`)
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
