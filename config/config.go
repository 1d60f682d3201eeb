// Package config loads the server configuration from SENTINEL_* env
// vars. Invalid values are errors, not warnings: a misread threshold
// must stop the server rather than silently loosen the risk policy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/campuswell/sentinel/internal/services"
)

type Config struct {
	Addr string

	// Ledger backing. SQLitePath selects the SQLite store; when empty the
	// CSV files are authoritative.
	StudentRoster string
	TherapistCSV  string
	SQLitePath    string

	// Alerting.
	AlertDir       string
	EncryptOnAlert bool

	// Pipeline.
	HistoryLimit     int
	MinResponseWords int

	// Risk policy.
	MentalThreshold       float64
	SuicidalAutoThreshold float64
	MultiLabel            bool
	SuicidalKeywords      []string

	// External scoring services.
	StressURL  string
	MentalURL  string
	EmotionURL string

	// Sessions.
	SessionTTL time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:             envStr("SENTINEL_ADDR", ":8080"),
		StudentRoster:    envStr("SENTINEL_STUDENT_ROSTER", "data/roster.csv"),
		TherapistCSV:     envStr("SENTINEL_THERAPIST_CSV", "data/therapists.csv"),
		SQLitePath:       envStr("SENTINEL_SQLITE_PATH", ""),
		AlertDir:         envStr("SENTINEL_ALERT_DIR", "alerts"),
		StressURL:        envStr("SENTINEL_STRESS_URL", "http://127.0.0.1:8601/stress"),
		MentalURL:        envStr("SENTINEL_MENTAL_URL", "http://127.0.0.1:8602/mental"),
		EmotionURL:       envStr("SENTINEL_EMOTION_URL", "http://127.0.0.1:8603/emotion"),
		SuicidalKeywords: services.DefaultSuicidalKeywords,
	}
	var err error
	if cfg.EncryptOnAlert, err = envBool("SENTINEL_ENCRYPT_ON_ALERT", true); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = envInt("SENTINEL_HISTORY_LIMIT", services.DefaultHistoryLimit); err != nil {
		return nil, err
	}
	if cfg.MinResponseWords, err = envInt("SENTINEL_MIN_RESPONSE_WORDS", 0); err != nil {
		return nil, err
	}
	if cfg.MentalThreshold, err = envFloat("SENTINEL_MENTAL_THRESHOLD", 50); err != nil {
		return nil, err
	}
	if cfg.SuicidalAutoThreshold, err = envFloat("SENTINEL_SUICIDAL_AUTO_THRESHOLD", 70); err != nil {
		return nil, err
	}
	if cfg.MultiLabel, err = envBool("SENTINEL_MULTI_LABEL", true); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = envDuration("SENTINEL_SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if raw := strings.TrimSpace(os.Getenv("SENTINEL_SUICIDAL_KEYWORDS")); raw != "" {
		var kws []string
		for _, kw := range strings.Split(raw, ",") {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				return nil, services.NewPolicyConfigError("SENTINEL_SUICIDAL_KEYWORDS contains an empty entry")
			}
			kws = append(kws, kw)
		}
		cfg.SuicidalKeywords = kws
	}
	if cfg.HistoryLimit <= 0 {
		return nil, services.NewPolicyConfigError("SENTINEL_HISTORY_LIMIT must be positive")
	}
	if cfg.MinResponseWords < 0 {
		return nil, services.NewPolicyConfigError("SENTINEL_MIN_RESPONSE_WORDS must not be negative")
	}
	return cfg, nil
}

// Policy builds the risk-evaluation policy; range validation happens in
// services.NewRiskEvaluator.
func (c *Config) Policy() services.Policy {
	return services.Policy{
		MentalThresholdPct:       c.MentalThreshold,
		SuicidalAutoThresholdPct: c.SuicidalAutoThreshold,
		SuicidalKeywords:         c.SuicidalKeywords,
		MultiLabel:               c.MultiLabel,
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, services.NewPolicyConfigError(fmt.Sprintf("%s=%q is not a boolean", key, raw))
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.NewPolicyConfigError(fmt.Sprintf("%s=%q is not an integer", key, raw))
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, services.NewPolicyConfigError(fmt.Sprintf("%s=%q is not a number", key, raw))
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, services.NewPolicyConfigError(fmt.Sprintf("%s=%q is not a duration", key, raw))
	}
	return v, nil
}
