package services

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// ScoreAggregator turns the three raw model outputs into one normalized
// AnalysisResult. Pure apart from logging dropped labels.
type ScoreAggregator struct {
	logf func(format string, args ...any)
}

func NewScoreAggregator() *ScoreAggregator {
	return &ScoreAggregator{logf: log.Printf}
}

// Aggregate clamps stress to the 0..5 scale and converts probability maps
// to percentages over the closed label sets. Unknown labels are logged and
// dropped, never renamed. A missing or non-finite input aborts with a
// malformed-score error.
func (a *ScoreAggregator) Aggregate(stress *StressScore, mental, emotions LabelScores) (*AnalysisResult, error) {
	if stress == nil {
		return nil, NewMalformedScoreError("stress score missing")
	}
	if math.IsNaN(stress.Scale) || math.IsInf(stress.Scale, 0) {
		return nil, NewMalformedScoreError("stress score is not a finite number")
	}
	mh, err := a.toPercentages("mental health", mental, MentalLabels)
	if err != nil {
		return nil, err
	}
	em, err := a.toPercentages("emotion", emotions, EmotionLabels)
	if err != nil {
		return nil, err
	}
	return &AnalysisResult{
		StressScale:  clamp(stress.Scale, 0, 5),
		MentalHealth: mh,
		Emotions:     em,
	}, nil
}

func (a *ScoreAggregator) toPercentages(source string, raw LabelScores, known []Label) (map[Label]float64, error) {
	if raw == nil {
		return nil, NewMalformedScoreError(source + " scores missing")
	}
	out := make(map[Label]float64, len(known))
	for key, prob := range raw {
		if math.IsNaN(prob) || math.IsInf(prob, 0) || prob < 0 || prob > 1 {
			return nil, NewMalformedScoreError(fmt.Sprintf("%s probability for %q out of range: %v", source, key, prob))
		}
		label, ok := matchLabel(key, known)
		if !ok {
			a.logf("aggregate: dropping unknown %s label %q", source, key)
			continue
		}
		out[label] = prob * 100
	}
	return out, nil
}

func matchLabel(key string, known []Label) (Label, bool) {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, l := range known {
		if lower == string(l) {
			return l, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
