package config_test

import (
	"strings"
	"testing"

	"autoqa/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.TestCount("quick") != 60 || cfg.TestCount("standard") != 120 || cfg.TestCount("exhaustive") != 200 {
		t.Fatalf("depth counts = %d/%d/%d", cfg.TestCount("quick"), cfg.TestCount("standard"), cfg.TestCount("exhaustive"))
	}
	if cfg.TestCount("bogus") != 120 {
		t.Fatalf("unknown depth count = %d, want default depth's", cfg.TestCount("bogus"))
	}
	if cfg.PassRate("security") != 0.6 || cfg.PassRate("functional") != 0.75 {
		t.Fatalf("pass rates = %v/%v", cfg.PassRate("security"), cfg.PassRate("functional"))
	}
}

func TestFromYAMLRejectsBadConfig(t *testing.T) {
	for name, yaml := range map[string]string{
		"missing depth": `
depths: {quick: 60, standard: 120}
simulator:
  pass_rates: {default: 0.75}
  min_execution_ms: 500
  max_execution_ms: 3500
  threshold_ms: 1000
limits: {url_length: 2048, credential_length: 255, otp_length: 10, validation_rules_length: 1000}
defaults: {depth: standard}
`,
		"rate out of range": `
depths: {quick: 60, standard: 120, exhaustive: 200}
simulator:
  pass_rates: {default: 1.5}
  min_execution_ms: 500
  max_execution_ms: 3500
  threshold_ms: 1000
limits: {url_length: 2048, credential_length: 255, otp_length: 10, validation_rules_length: 1000}
defaults: {depth: standard}
`,
		"inverted window": `
depths: {quick: 60, standard: 120, exhaustive: 200}
simulator:
  pass_rates: {default: 0.75}
  min_execution_ms: 3500
  max_execution_ms: 500
  threshold_ms: 1000
limits: {url_length: 2048, credential_length: 255, otp_length: 10, validation_rules_length: 1000}
defaults: {depth: standard}
`,
	} {
		if _, err := config.FromYAML([]byte(strings.TrimSpace(yaml))); err == nil {
			t.Fatalf("%s: config accepted, want error", name)
		}
	}
}
