package services

import "context"

// StressScore is the raw academic-stress output of the external stress
// model: a calibrated position on the 0..5 scale.
type StressScore struct {
	Scale float64
}

// LabelScores holds calibrated per-label probabilities in [0,1] keyed by
// the model's own label strings. Labels are matched case-insensitively
// against the closed label sets at aggregation.
type LabelScores map[string]float64

// The three scorers are external collaborators. Implementations may block
// or call out over the network; unavailability must surface as a
// scoring_unavailable error and is never substituted with a default score.
type StressScorer interface {
	ScoreStress(ctx context.Context, text string) (*StressScore, error)
}

type MentalScorer interface {
	ScoreMentalHealth(ctx context.Context, text string) (LabelScores, error)
}

type EmotionScorer interface {
	ScoreEmotions(ctx context.Context, text string) (LabelScores, error)
}

type StressScorerFunc func(ctx context.Context, text string) (*StressScore, error)

func (f StressScorerFunc) ScoreStress(ctx context.Context, text string) (*StressScore, error) {
	return f(ctx, text)
}

type MentalScorerFunc func(ctx context.Context, text string) (LabelScores, error)

func (f MentalScorerFunc) ScoreMentalHealth(ctx context.Context, text string) (LabelScores, error) {
	return f(ctx, text)
}

type EmotionScorerFunc func(ctx context.Context, text string) (LabelScores, error)

func (f EmotionScorerFunc) ScoreEmotions(ctx context.Context, text string) (LabelScores, error) {
	return f(ctx, text)
}
