package config

import (
	"testing"
	"time"

	"github.com/campuswell/sentinel/internal/services"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if !cfg.EncryptOnAlert || !cfg.MultiLabel {
		t.Fatalf("boolean defaults wrong: %+v", cfg)
	}
	if cfg.MentalThreshold != 50 || cfg.SuicidalAutoThreshold != 70 {
		t.Fatalf("threshold defaults wrong: %+v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("ttl = %v", cfg.SessionTTL)
	}
	if _, err := services.NewRiskEvaluator(cfg.Policy()); err != nil {
		t.Fatalf("default policy must construct an evaluator: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SENTINEL_ADDR", ":9090")
	t.Setenv("SENTINEL_MENTAL_THRESHOLD", "65.5")
	t.Setenv("SENTINEL_MULTI_LABEL", "false")
	t.Setenv("SENTINEL_SUICIDAL_KEYWORDS", "phrase one, phrase two")
	t.Setenv("SENTINEL_SESSION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.MentalThreshold != 65.5 || cfg.MultiLabel {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.SuicidalKeywords) != 2 || cfg.SuicidalKeywords[1] != "phrase two" {
		t.Fatalf("keywords = %v", cfg.SuicidalKeywords)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("ttl = %v", cfg.SessionTTL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SENTINEL_MENTAL_THRESHOLD":  "very high",
		"SENTINEL_HISTORY_LIMIT":     "0",
		"SENTINEL_MULTI_LABEL":       "maybe",
		"SENTINEL_SESSION_TTL":       "soon",
		"SENTINEL_SUICIDAL_KEYWORDS": "ok,,also",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); !services.HasErrorCode(err, services.ErrorPolicyConfig) {
				t.Fatalf("expected policy_config for %s=%q, got %v", key, val, err)
			}
		})
	}
}
