package services

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultSuicidalKeywords are literal red-flag phrases that force-raise
// the suicidal flag independent of model confidence.
var DefaultSuicidalKeywords = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"end it all",
	"want to die",
	"wish i was dead",
	"wish i were dead",
	"take my life",
	"never wake up",
}

// HighRiskRule decides whether a set of raised flags constitutes a
// high-risk event. Exposed so the composite rule stays testable and
// overridable rather than hard-coded.
type HighRiskRule func(flags map[Label]float64) bool

// Policy is the risk-evaluation configuration. Zero values are filled with
// defaults by NewRiskEvaluator; invalid values are rejected there.
type Policy struct {
	// MentalThresholdPct raises a label's flag once its percent score
	// reaches this value. Default 50.
	MentalThresholdPct float64
	// SuicidalAutoThresholdPct is the floor the depression score is lifted
	// to when a suicidal keyword matches. Default 70.
	SuicidalAutoThresholdPct float64
	// SuicidalKeywords are matched case-insensitively on word boundaries.
	SuicidalKeywords []string
	// MultiLabel, when false, considers only the single highest-scoring
	// mental-health label for threshold flagging.
	MultiLabel bool
	// HighSeverity labels flag a high-risk event on their own.
	// Default {suicidal, depression}.
	HighSeverity []Label
	// HighRiskRule overrides the composite predicate. Default: any flag in
	// HighSeverity, or more than one flag outside it.
	HighRiskRule HighRiskRule
}

// DefaultPolicy mirrors the served configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		MentalThresholdPct:       50,
		SuicidalAutoThresholdPct: 70,
		SuicidalKeywords:         DefaultSuicidalKeywords,
		MultiLabel:               true,
		HighSeverity:             []Label{LabelSuicidal, LabelDepression},
	}
}

// RiskEvaluator applies threshold and keyword-override policy to an
// AnalysisResult. Pure and deterministic; all validation happens at
// construction.
type RiskEvaluator struct {
	policy       Policy
	keywords     []string
	highSeverity map[Label]bool
	rule         HighRiskRule
}

func NewRiskEvaluator(p Policy) (*RiskEvaluator, error) {
	if p.MentalThresholdPct == 0 {
		p.MentalThresholdPct = 50
	}
	if p.SuicidalAutoThresholdPct == 0 {
		p.SuicidalAutoThresholdPct = 70
	}
	if p.SuicidalKeywords == nil {
		p.SuicidalKeywords = DefaultSuicidalKeywords
	}
	if p.HighSeverity == nil {
		p.HighSeverity = []Label{LabelSuicidal, LabelDepression}
	}
	if p.MentalThresholdPct < 0 || p.MentalThresholdPct > 100 {
		return nil, NewPolicyConfigError(fmt.Sprintf("mental threshold %.1f outside 0..100", p.MentalThresholdPct))
	}
	if p.SuicidalAutoThresholdPct < 0 || p.SuicidalAutoThresholdPct > 100 {
		return nil, NewPolicyConfigError(fmt.Sprintf("suicidal auto threshold %.1f outside 0..100", p.SuicidalAutoThresholdPct))
	}
	keywords := make([]string, 0, len(p.SuicidalKeywords))
	for _, kw := range p.SuicidalKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return nil, NewPolicyConfigError("empty suicidal keyword")
		}
		keywords = append(keywords, kw)
	}
	hs := make(map[Label]bool, len(p.HighSeverity))
	for _, l := range p.HighSeverity {
		hs[l] = true
	}
	ev := &RiskEvaluator{policy: p, keywords: keywords, highSeverity: hs}
	ev.rule = p.HighRiskRule
	if ev.rule == nil {
		ev.rule = ev.defaultRule
	}
	return ev, nil
}

func (ev *RiskEvaluator) Policy() Policy { return ev.policy }

// Evaluate derives a RiskDecision for one analyzed submission. The
// keyword override runs first and can only add flags; threshold flags are
// evaluated afterwards on the (possibly uplifted) scores.
func (ev *RiskEvaluator) Evaluate(result *AnalysisResult, text string) *RiskDecision {
	scores := make(map[Label]float64, len(result.MentalHealth))
	for l, v := range result.MentalHealth {
		scores[l] = v
	}

	flags := map[Label]float64{}
	keywordHit := ev.matchKeyword(text)
	if keywordHit {
		// Never under-call on a literal red-flag phrase: force the flag
		// and lift depression to the auto threshold for severity ranking.
		flags[LabelSuicidal] = scores[LabelSuicidal]
		if scores[LabelDepression] < ev.policy.SuicidalAutoThresholdPct {
			scores[LabelDepression] = ev.policy.SuicidalAutoThresholdPct
		}
	}

	for _, l := range ev.candidateLabels(scores) {
		if scores[l] >= ev.policy.MentalThresholdPct {
			if cur, ok := flags[l]; !ok || scores[l] > cur {
				flags[l] = scores[l]
			}
		}
	}

	decision := &RiskDecision{Flags: flags}
	if len(flags) == 0 {
		return decision
	}
	decision.HighRisk = ev.rule(flags)
	decision.TriggerLabel = triggerLabel(flags)
	decision.TriggerReason = TriggerThreshold
	if keywordHit && decision.TriggerLabel == LabelSuicidal {
		decision.TriggerReason = TriggerKeywordOverride
	}
	return decision
}

// candidateLabels returns the labels eligible for threshold flagging:
// every mental label in multi-label mode, otherwise only the top scorer.
func (ev *RiskEvaluator) candidateLabels(scores map[Label]float64) []Label {
	if ev.policy.MultiLabel {
		return MentalLabels
	}
	var top Label
	best := -1.0
	for _, l := range MentalLabels {
		if v, ok := scores[l]; ok && v > best {
			top, best = l, v
		}
	}
	if top == "" {
		return nil
	}
	return []Label{top}
}

func (ev *RiskEvaluator) defaultRule(flags map[Label]float64) bool {
	other := 0
	for l := range flags {
		if ev.highSeverity[l] {
			return true
		}
		other++
	}
	return other > 1
}

// triggerLabel tie-break: suicidal first, then numerically highest score,
// then canonical label order.
func triggerLabel(flags map[Label]float64) Label {
	if _, ok := flags[LabelSuicidal]; ok {
		return LabelSuicidal
	}
	var trigger Label
	best := -1.0
	for _, l := range MentalLabels {
		if v, ok := flags[l]; ok && v > best {
			trigger, best = l, v
		}
	}
	return trigger
}

// matchKeyword does case-insensitive, word-boundary substring matching.
// Boundary semantics are a documented policy choice: a keyword matches
// only when not embedded inside a longer alphanumeric run.
func (ev *RiskEvaluator) matchKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ev.keywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

func containsWord(text, phrase string) bool {
	for from := 0; ; {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r := rune(text[i-1])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r := rune(text[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
