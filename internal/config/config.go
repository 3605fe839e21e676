package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models autoqa.yml.
type Config struct {
	Defaults struct {
		Framework string `yaml:"framework"`
		Browser   string `yaml:"browser"`
		Depth     string `yaml:"depth"`
		TestType  string `yaml:"test_type"`
		AIModel   string `yaml:"ai_model"`
	} `yaml:"defaults"`
	Depths    map[string]int `yaml:"depths"`
	Simulator struct {
		// Pass probabilities per test type, 0..1. "default" covers the rest.
		PassRates      map[string]float64 `yaml:"pass_rates"`
		MinExecutionMs int                `yaml:"min_execution_ms"`
		MaxExecutionMs int                `yaml:"max_execution_ms"`
		ThresholdMs    int                `yaml:"threshold_ms"`
	} `yaml:"simulator"`
	Limits struct {
		URLLength             int `yaml:"url_length"`
		CredentialLength      int `yaml:"credential_length"`
		OTPLength             int `yaml:"otp_length"`
		ValidationRulesLength int `yaml:"validation_rules_length"`
	} `yaml:"limits"`
	Automation struct {
		Endpoint string `yaml:"endpoint"`
		Token    string `yaml:"token"`
	} `yaml:"automation"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; write one with aq config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	for _, depth := range []string{"quick", "standard", "exhaustive"} {
		n, ok := c.Depths[depth]
		if !ok {
			return fmt.Errorf("config.depths.%s is required", depth)
		}
		if n <= 0 {
			return fmt.Errorf("config.depths.%s must be positive", depth)
		}
	}
	if _, ok := c.Depths[c.Defaults.Depth]; !ok {
		return fmt.Errorf("config.defaults.depth %s has no depths entry", c.Defaults.Depth)
	}
	if c.Simulator.PassRates == nil {
		return fmt.Errorf("config.simulator.pass_rates is required")
	}
	if _, ok := c.Simulator.PassRates["default"]; !ok {
		return fmt.Errorf("config.simulator.pass_rates must include default")
	}
	for testType, rate := range c.Simulator.PassRates {
		if rate < 0 || rate > 1 {
			return fmt.Errorf("pass rate for %s must be in [0,1]", testType)
		}
	}
	if c.Simulator.MinExecutionMs < 0 || c.Simulator.MaxExecutionMs <= c.Simulator.MinExecutionMs {
		return fmt.Errorf("config.simulator execution window is invalid")
	}
	if c.Simulator.ThresholdMs <= 0 {
		return fmt.Errorf("config.simulator.threshold_ms must be positive")
	}
	if c.Limits.URLLength <= 0 || c.Limits.CredentialLength <= 0 || c.Limits.OTPLength <= 0 || c.Limits.ValidationRulesLength <= 0 {
		return fmt.Errorf("config.limits must all be positive")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "autoqa.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the built-in Config struct.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(err)
	}
	return cfg
}

// PassRate returns the simulator pass probability for a test type.
func (c *Config) PassRate(testType string) float64 {
	if rate, ok := c.Simulator.PassRates[testType]; ok {
		return rate
	}
	return c.Simulator.PassRates["default"]
}

// TestCount returns how many test cases a depth synthesizes.
func (c *Config) TestCount(depth string) int {
	if n, ok := c.Depths[depth]; ok {
		return n
	}
	return c.Depths[c.Defaults.Depth]
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `defaults:
  framework: playwright
  browser: chromium
  depth: standard
  test_type: functional
  ai_model: hackathon-gemini-2.5-flash

depths:
  quick: 60
  standard: 120
  exhaustive: 200

simulator:
  pass_rates:
    security: 0.6
    performance: 0.7
    load: 0.7
    accessibility: 0.65
    default: 0.75
  min_execution_ms: 500
  max_execution_ms: 3500
  threshold_ms: 1000

limits:
  url_length: 2048
  credential_length: 255
  otp_length: 10
  validation_rules_length: 1000

automation:
  endpoint: ""
  token: ""
`
