package history

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Rajchodisetti/pm-router/internal/observ"
	"github.com/Rajchodisetti/pm-router/internal/reasoning"
)

// Pattern is the aggregate read of similar historical cases.
type Pattern struct {
	Name           string               `json:"pattern_name"`
	Symbol         string               `json:"symbol,omitempty"`
	SampleCount    int                  `json:"sample_count"`
	AvgReturn1D    float64              `json:"avg_return_1d"`
	AvgReturn3D    float64              `json:"avg_return_3d"`
	AvgReturn7D    float64              `json:"avg_return_7d"`
	Confidence     float64              `json:"confidence"` // [0..1]
	Bucket         string               `json:"confidence_level"`
	TypicalHorizon string               `json:"typical_horizon"`
	Method         string               `json:"method"` // rule_based or llm
	Comment        string               `json:"comment,omitempty"`
	DominantTag    string               `json:"dominant_tag,omitempty"`
	Err            reasoning.Diagnostic `json:"err,omitzero"`
}

// Confidence buckets, thresholded on the confidence value.
const (
	BucketLow    = "low"
	BucketMedium = "medium"
	BucketHigh   = "high"

	BucketMediumMin = 0.5
	BucketHighMin   = 0.75
)

// BucketFor maps a confidence value to its bucket.
func BucketFor(confidence float64) string {
	switch {
	case confidence >= BucketHighMin:
		return BucketHigh
	case confidence >= BucketMediumMin:
		return BucketMedium
	default:
		return BucketLow
	}
}

// Base confidence steps by sample count.
const (
	baseConfidenceSmall  = 0.4
	baseConfidenceMedium = 0.6
	baseConfidenceLarge  = 0.8
	minSampleMedium      = 3
	minSampleLarge       = 10
)

const maxCommentLen = 200

// Config tunes the rule path and prompt assembly.
type Config struct {
	ConsistencyBonus float64 // confidence boost scale for one-sided returns
	MaxConfidence    float64
	DispersionFloor  float64 // lower bound when normalizing horizon scores
	MaxPromptCases   int
}

// Analyzer builds patterns from historical cases, optionally enriched by a
// reasoning model. Enrichment failures never propagate: the rule-based
// pattern is returned with a bounded diagnostic attached.
type Analyzer struct {
	store  *Store
	gen    reasoning.Generator // nil disables enrichment
	config Config
}

func NewAnalyzer(store *Store, gen reasoning.Generator, config Config) *Analyzer {
	if config.ConsistencyBonus == 0 {
		config.ConsistencyBonus = 0.15
	}
	if config.MaxConfidence == 0 {
		config.MaxConfidence = 0.95
	}
	if config.DispersionFloor == 0 {
		config.DispersionFloor = 0.1
	}
	if config.MaxPromptCases == 0 {
		config.MaxPromptCases = 5
	}
	return &Analyzer{store: store, gen: gen, config: config}
}

// Analyze selects matching cases and builds their pattern. The rule-based
// pattern is always computed first; enrichment, when configured, overlays
// validated model fields on top of it.
func (a *Analyzer) Analyze(ctx context.Context, f Filter) Pattern {
	cases := a.store.Select(f)
	rule := a.BuildRule(f.Symbol, cases)
	if a.gen == nil || len(cases) == 0 {
		return rule
	}

	enriched, err := a.enrich(ctx, rule, cases)
	if err != nil {
		kind := reasoning.KindOf(err)
		observ.IncCounter("enrichment_fallbacks_total", map[string]string{"kind": kind})
		observ.Warn("enrichment_fallback", map[string]any{
			"symbol": f.Symbol,
			"kind":   kind,
		})
		rule.Err = reasoning.Describe(err)
		return rule
	}
	return enriched
}

// BuildRule computes the deterministic rule-based pattern for cases.
func (a *Analyzer) BuildRule(symbol string, cases []CaseRecord) Pattern {
	if len(cases) == 0 {
		return Pattern{
			Name:           "no_data",
			Symbol:         symbol,
			Bucket:         BucketLow,
			TypicalHorizon: "3d",
			Method:         reasoning.MethodRuleBased,
		}
	}
	st := Summarize(cases)

	base := baseConfidenceSmall
	switch {
	case st.Count >= minSampleLarge:
		base = baseConfidenceLarge
	case st.Count >= minSampleMedium:
		base = baseConfidenceMedium
	}
	// signDispersion is 0 when every 3d return has the same sign, 1 when
	// they split evenly.
	signDispersion := 1 - math.Abs(2*st.Horizons[1].PosRatio-1)
	confidence := base + (1-signDispersion)*a.config.ConsistencyBonus
	if confidence > a.config.MaxConfidence {
		confidence = a.config.MaxConfidence
	}

	return Pattern{
		Name:           deriveName(st.DominantTag),
		Symbol:         symbol,
		SampleCount:    st.Count,
		AvgReturn1D:    st.Horizons[0].Mean,
		AvgReturn3D:    st.Horizons[1].Mean,
		AvgReturn7D:    st.Horizons[2].Mean,
		Confidence:     confidence,
		Bucket:         BucketFor(confidence),
		TypicalHorizon: a.typicalHorizon(st),
		Method:         reasoning.MethodRuleBased,
		DominantTag:    st.DominantTag,
	}
}

// typicalHorizon picks the horizon with the strongest normalized mean
// return. Ties go to the longer horizon.
func (a *Analyzer) typicalHorizon(st Stats) string {
	best := st.Horizons[0].Label
	bestScore := math.Inf(-1)
	for _, h := range st.Horizons {
		d := h.Dispersion
		if d < a.config.DispersionFloor {
			d = a.config.DispersionFloor
		}
		score := math.Abs(h.Mean) / d
		if score >= bestScore {
			best, bestScore = h.Label, score
		}
	}
	return best
}

// deriveName turns a tag like "pm_arbitrage_reversion" into a pattern name
// by dropping the venue prefix.
func deriveName(tag string) string {
	parts := strings.Split(tag, "_")
	if len(parts) < 2 {
		return tag
	}
	return strings.Join(parts[1:], "_")
}

// modelPattern is the JSON payload the model must return.
type modelPattern struct {
	PatternName    string   `json:"pattern_name"`
	Confidence     *float64 `json:"confidence"`
	TypicalHorizon string   `json:"typical_horizon"`
	Comment        string   `json:"comment"`
}

func (a *Analyzer) enrich(ctx context.Context, rule Pattern, cases []CaseRecord) (Pattern, error) {
	prompt := BuildPrompt(rule, cases, a.config.MaxPromptCases)
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return Pattern{}, err
	}
	var mp modelPattern
	if err := reasoning.DecodeJSON(text, &mp); err != nil {
		return Pattern{}, err
	}
	return mergeModelPattern(rule, mp)
}

// mergeModelPattern overlays validated model fields onto the rule pattern.
// It is pure: same inputs, same output.
func mergeModelPattern(rule Pattern, mp modelPattern) (Pattern, error) {
	if mp.PatternName == "" {
		return Pattern{}, reasoning.NewValidationError("pattern_name is empty")
	}
	if mp.Confidence == nil || *mp.Confidence < 0 || *mp.Confidence > 1 {
		return Pattern{}, reasoning.NewValidationError("confidence outside [0,1]")
	}
	if !validHorizon(mp.TypicalHorizon) {
		return Pattern{}, reasoning.NewValidationError("typical_horizon must be one of 1d, 3d, 7d")
	}
	out := rule
	out.Name = mp.PatternName
	out.Confidence = *mp.Confidence
	out.Bucket = BucketFor(*mp.Confidence)
	out.TypicalHorizon = mp.TypicalHorizon
	out.Comment = reasoning.Truncate(mp.Comment, maxCommentLen)
	out.Method = reasoning.MethodLLM
	return out, nil
}

func validHorizon(label string) bool {
	for _, h := range Horizons {
		if label == h {
			return true
		}
	}
	return false
}

// BuildPrompt renders the case digest the model sees. At most maxCases are
// listed in full.
func BuildPrompt(rule Pattern, cases []CaseRecord, maxCases int) string {
	shown := len(cases)
	if maxCases > 0 && maxCases < shown {
		shown = maxCases
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Historical cases matching %q (%d total, %d shown):\n", rule.Name, len(cases), shown)
	for _, c := range cases[:shown] {
		fmt.Fprintf(&b, "- %s %s tag=%s regime=%s r1d=%+.4f r3d=%+.4f r7d=%+.4f %s\n",
			c.Date, c.Symbol, c.Tag, c.Regime, c.Return1D, c.Return3D, c.Return7D, c.Summary)
	}
	fmt.Fprintf(&b, "Rule-based read: avg_3d=%+.4f confidence=%.2f horizon=%s\n",
		rule.AvgReturn3D, rule.Confidence, rule.TypicalHorizon)
	b.WriteString(`Respond with strict JSON only, no prose: {"pattern_name": string, "confidence": number in [0,1], "typical_horizon": "1d"|"3d"|"7d", "comment": string}`)
	return b.String()
}
