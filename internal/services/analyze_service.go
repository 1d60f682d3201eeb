package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnalyzeRequest carries one inbound submission.
type AnalyzeRequest struct {
	StudentID string
	Text      string
	// Consent, when set, records the student's consent on the roster
	// before analysis runs.
	Consent bool
}

// AnalyzeResult is the caller-visible outcome. Warnings surface degraded
// alerting (encryption disabled, persistence failure) explicitly; a
// high-risk decision is never swallowed by a write failure.
type AnalyzeResult struct {
	SubmissionID string          `json:"submission_id"`
	StudentID    string          `json:"student_id"`
	Result       *AnalysisResult `json:"result"`
	Decision     *RiskDecision   `json:"decision"`
	Alert        *AlertRecord    `json:"alert,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// AnalyzeService runs the submission pipeline: roster gate, concurrent
// scoring, aggregation, risk evaluation, alert creation and history
// append. The three scorer calls fan out and are joined before the
// evaluator or vault run.
type AnalyzeService struct {
	roster     *RosterLedger
	stress     StressScorer
	mental     MentalScorer
	emotion    EmotionScorer
	aggregator *ScoreAggregator
	evaluator  *RiskEvaluator
	vault      *AlertVault
	history    *SubmissionHistory
	minWords   int

	now   func() time.Time
	idGen func() string
	logf  func(format string, args ...any)
}

type AnalyzeDeps struct {
	Roster     *RosterLedger
	Stress     StressScorer
	Mental     MentalScorer
	Emotion    EmotionScorer
	Aggregator *ScoreAggregator
	Evaluator  *RiskEvaluator
	Vault      *AlertVault
	History    *SubmissionHistory
	// MinWords rejects submissions below a word count; zero disables the
	// gate.
	MinWords int
}

func NewAnalyzeService(deps AnalyzeDeps) *AnalyzeService {
	agg := deps.Aggregator
	if agg == nil {
		agg = NewScoreAggregator()
	}
	return &AnalyzeService{
		roster:     deps.Roster,
		stress:     deps.Stress,
		mental:     deps.Mental,
		emotion:    deps.Emotion,
		aggregator: agg,
		evaluator:  deps.Evaluator,
		vault:      deps.Vault,
		history:    deps.History,
		minWords:   deps.MinWords,
		now:        func() time.Time { return time.Now().UTC() },
		idGen:      func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
		logf:       log.Printf,
	}
}

// Analyze runs one submission to completion. Scoring failures propagate;
// a missing model score is never defaulted. Analyses are fire-to-
// completion: no cancellation once scoring has been joined.
func (s *AnalyzeService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	entry, err := s.roster.Validate(req.StudentID)
	if err != nil {
		return nil, err
	}
	if !entry.Consent {
		if !req.Consent {
			return nil, NewForbiddenError("consent required before analysis")
		}
		if err := s.roster.SetConsent(entry.StudentID, true); err != nil {
			return nil, err
		}
	}
	if s.minWords > 0 && wordCount(req.Text) < s.minWords {
		return nil, NewInvalidError(fmt.Sprintf("submission must contain at least %d words", s.minWords))
	}

	stress, mental, emotions, err := s.scoreAll(ctx, req.Text)
	if err != nil {
		return nil, err
	}
	result, err := s.aggregator.Aggregate(stress, mental, emotions)
	if err != nil {
		return nil, err
	}
	decision := s.evaluator.Evaluate(result, req.Text)

	out := &AnalyzeResult{
		SubmissionID: s.idGen(),
		StudentID:    entry.StudentID,
		Result:       result,
		Decision:     decision,
	}
	if decision.HighRisk {
		rec, err := s.vault.Create(entry.StudentID, req.Text, decision)
		switch {
		case err != nil:
			// Detection must never be swallowed by a write failure: keep
			// the decision, surface the degradation.
			s.logf("analyze: WARNING alert persistence failed for %s: %v", out.SubmissionID, err)
			out.Warnings = append(out.Warnings, "alert persistence failed: "+err.Error())
		case rec.Suppressed:
			out.Alert = rec
			out.Warnings = append(out.Warnings, "alerting degraded: encryption disabled, suppressed marker written")
		default:
			out.Alert = rec
		}
	}

	s.history.Append(&HistoryEntry{
		StudentID: entry.StudentID,
		Result:    result,
		Decision:  decision,
		Timestamp: s.now(),
	})
	return out, nil
}

// scoreAll is the join point over the three independent scorer calls.
func (s *AnalyzeService) scoreAll(ctx context.Context, text string) (*StressScore, LabelScores, LabelScores, error) {
	var (
		wg                               sync.WaitGroup
		stress                           *StressScore
		mental, emotions                 LabelScores
		stressErr, mentalErr, emotionErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		stress, stressErr = s.stress.ScoreStress(ctx, text)
	}()
	go func() {
		defer wg.Done()
		mental, mentalErr = s.mental.ScoreMentalHealth(ctx, text)
	}()
	go func() {
		defer wg.Done()
		emotions, emotionErr = s.emotion.ScoreEmotions(ctx, text)
	}()
	wg.Wait()
	for _, err := range []error{stressErr, mentalErr, emotionErr} {
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return stress, mental, emotions, nil
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
