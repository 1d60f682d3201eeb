package services

import "time"

// Label identifies one classification output from the mental-health or
// emotion models. The label sets are closed: unknown labels coming back
// from a model are dropped at the aggregation boundary.
type Label string

const (
	LabelDepression Label = "depression"
	LabelAnxiety    Label = "anxiety"
	LabelLoneliness Label = "loneliness"
	LabelStress     Label = "stress"
	LabelSuicidal   Label = "suicidal"

	LabelAnger    Label = "anger"
	LabelDisgust  Label = "disgust"
	LabelFear     Label = "fear"
	LabelJoy      Label = "joy"
	LabelNeutral  Label = "neutral"
	LabelSadness  Label = "sadness"
	LabelSurprise Label = "surprise"
)

// MentalLabels is the canonical order used for display and trigger
// tie-breaking.
var MentalLabels = []Label{LabelDepression, LabelAnxiety, LabelLoneliness, LabelStress, LabelSuicidal}

var EmotionLabels = []Label{LabelAnger, LabelDisgust, LabelFear, LabelJoy, LabelNeutral, LabelSadness, LabelSurprise}

// AnalysisResult is the normalized output of one submission's scoring
// pass. Percent values are independent per label and need not sum to 100.
// Immutable once produced by the aggregator.
type AnalysisResult struct {
	StressScale  float64           `json:"stress_scale"`
	MentalHealth map[Label]float64 `json:"mental_health"`
	Emotions     map[Label]float64 `json:"emotions"`
}

// TriggerReason records which policy path raised the triggering flag.
type TriggerReason string

const (
	TriggerThreshold       TriggerReason = "threshold"
	TriggerKeywordOverride TriggerReason = "keyword_override"
)

// RiskDecision is derived deterministically from an AnalysisResult plus
// policy configuration. Flags map each raised label to the score it
// carried when flagged (after any keyword uplift).
type RiskDecision struct {
	Flags         map[Label]float64 `json:"flags"`
	HighRisk      bool              `json:"high_risk"`
	TriggerLabel  Label             `json:"trigger_label,omitempty"`
	TriggerReason TriggerReason     `json:"trigger_reason,omitempty"`
}

// FlaggedLabels returns raised labels in canonical order.
func (d *RiskDecision) FlaggedLabels() []Label {
	out := make([]Label, 0, len(d.Flags))
	for _, l := range MentalLabels {
		if _, ok := d.Flags[l]; ok {
			out = append(out, l)
		}
	}
	return out
}

// AlertRecord references one encrypted high-risk artifact pair. Records
// are never mutated after creation. Suppressed marks a marker record
// written while encryption was administratively disabled.
type AlertRecord struct {
	AlertID        string    `json:"alert_id"`
	StudentID      string    `json:"student_id"`
	CreatedAt      time.Time `json:"created_at"`
	TriggerLabel   Label     `json:"trigger_label,omitempty"`
	CiphertextPath string    `json:"ciphertext_path,omitempty"`
	KeyPath        string    `json:"key_path,omitempty"`
	Suppressed     bool      `json:"suppressed,omitempty"`
}

// ClassCredit is one class on a student's roster row together with its
// extra-credit counter.
type ClassCredit struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// RosterEntry is the authoritative per-student ledger row.
type RosterEntry struct {
	StudentID string        `json:"student_id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Consent   bool          `json:"consent"`
	HasExtra  bool          `json:"has_extra"`
	Classes   []ClassCredit `json:"classes,omitempty"`
}

// TotalExtraCredit sums the per-class counters; the grant policy caps
// this at one per student.
func (e *RosterEntry) TotalExtraCredit() int {
	total := 0
	for _, c := range e.Classes {
		total += c.Points
	}
	return total
}

// HistoryEntry is one analyzed submission as kept by the bounded
// in-memory history. Raw text is deliberately absent; only the encrypted
// alert artifact retains it.
type HistoryEntry struct {
	StudentID string          `json:"student_id"`
	Result    *AnalysisResult `json:"result"`
	Decision  *RiskDecision   `json:"decision"`
	Timestamp time.Time       `json:"timestamp"`
}

// TherapistCredential is one row of the therapist ledger. Password may be
// a bcrypt hash or a legacy plaintext value.
type TherapistCredential struct {
	Username       string
	Password       string
	FirstResponder bool
}

// TherapistIdentity is the authorized view of a session token.
type TherapistIdentity struct {
	Username       string `json:"username"`
	FirstResponder bool   `json:"first_responder"`
}
