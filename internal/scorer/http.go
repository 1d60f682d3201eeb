// Package scorer holds the HTTP clients for the three external scoring
// models. Each model is a separate service reached by POSTing the raw
// submission text as JSON; unavailability surfaces as a
// scoring_unavailable error and a malformed response body as
// malformed_score, so the caller can tell the two apart.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campuswell/sentinel/internal/services"
)

const defaultTimeout = 30 * time.Second

type client struct {
	url  string
	http *http.Client
}

func newClient(url string, hc *http.Client) client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return client{url: url, http: hc}
}

// post sends {"text": ...} and returns the raw response body.
func (c client) post(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, services.NewScoringUnavailableError("build scoring request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.NewScoringUnavailableError("scoring service unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.NewScoringUnavailableError("read scoring response: " + err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.NewScoringUnavailableError(
			fmt.Sprintf("scoring service returned %d", resp.StatusCode))
	}
	return raw, nil
}

// StressClient talks to the academic-stress model, which answers with a
// position on the 0..5 scale.
type StressClient struct {
	client
}

func NewStressClient(url string, hc *http.Client) *StressClient {
	return &StressClient{client: newClient(url, hc)}
}

func (c *StressClient) ScoreStress(ctx context.Context, text string) (*services.StressScore, error) {
	raw, err := c.post(ctx, text)
	if err != nil {
		return nil, err
	}
	var out struct {
		StressScale *float64 `json:"stress_scale"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, services.NewMalformedScoreError("decode stress response: " + err.Error())
	}
	if out.StressScale == nil {
		return nil, services.NewMalformedScoreError("stress response missing stress_scale")
	}
	return &services.StressScore{Scale: *out.StressScale}, nil
}

// MentalClient talks to the mental-health classifier.
type MentalClient struct {
	client
}

func NewMentalClient(url string, hc *http.Client) *MentalClient {
	return &MentalClient{client: newClient(url, hc)}
}

func (c *MentalClient) ScoreMentalHealth(ctx context.Context, text string) (services.LabelScores, error) {
	raw, err := c.post(ctx, text)
	if err != nil {
		return nil, err
	}
	return decodeLabelScores(raw)
}

// EmotionClient talks to the emotion classifier.
type EmotionClient struct {
	client
}

func NewEmotionClient(url string, hc *http.Client) *EmotionClient {
	return &EmotionClient{client: newClient(url, hc)}
}

func (c *EmotionClient) ScoreEmotions(ctx context.Context, text string) (services.LabelScores, error) {
	raw, err := c.post(ctx, text)
	if err != nil {
		return nil, err
	}
	return decodeLabelScores(raw)
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// decodeLabelScores accepts the two shapes classifier services emit: a
// flat [{"label","score"},...] list, or the same list nested one level
// deep as the first element of an outer array.
func decodeLabelScores(raw []byte) (services.LabelScores, error) {
	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		var nested [][]labelScore
		if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
			return nil, services.NewMalformedScoreError("decode classifier response")
		}
		flat = nested[0]
	}
	if len(flat) == 0 {
		return nil, services.NewMalformedScoreError("classifier response carried no labels")
	}
	scores := make(services.LabelScores, len(flat))
	for _, ls := range flat {
		if ls.Label == "" {
			return nil, services.NewMalformedScoreError("classifier response carried an unnamed label")
		}
		scores[ls.Label] = ls.Score
	}
	return scores, nil
}
