package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"wsconnector/internal/ping"
	"wsconnector/internal/retry"
)

// retryConfig describes the retry.RetryPolicy to build, read from the
// optional YAML policy file (spec's Configuration ambient stack: the core
// takes no files itself, but the demo host is free to).
type retryConfig struct {
	Policy   string        `yaml:"policy"` // linear|equal|random|exponential
	Base     float64       `yaml:"base"`
	Scale    time.Duration `yaml:"scale"`
	Interval time.Duration `yaml:"interval"`
	Min      time.Duration `yaml:"min"`
	Max      time.Duration `yaml:"max"`
	Limits   uint32        `yaml:"limits"`
}

func (rc retryConfig) build() retry.RetryPolicy {
	var policy retry.Policy
	switch strings.ToLower(rc.Policy) {
	case "linear":
		policy = retry.Linear{Scale: rc.Scale}
	case "random":
		policy = retry.Random{Min: rc.Min, Max: rc.Max}
	case "exponential":
		policy = retry.Exponential{Base: rc.Base, Scale: rc.Scale}
	case "equal":
		policy = retry.Equal{Interval: rc.Interval}
	default:
		return retry.RetryPolicy{}
	}
	return retry.RetryPolicy{Policy: policy, Limits: rc.Limits}
}

type pingingConfig struct {
	Mode     string        `yaml:"mode"` // standard|provider
	Timeout  time.Duration `yaml:"timeout"`
	Interval time.Duration `yaml:"interval"`
}

func (pc pingingConfig) build() (ping.Config, bool) {
	if pc.Timeout <= 0 || pc.Interval <= 0 {
		return ping.Config{}, false
	}
	mode := ping.ModeStandard
	if strings.ToLower(pc.Mode) == "provider" {
		mode = ping.ModeProvider
	}
	return ping.Config{Mode: mode, Timeout: pc.Timeout, Interval: pc.Interval}, true
}

type reconnectLimiterConfig struct {
	RatePerSecond float64 `yaml:"rate"`
	Burst         int     `yaml:"burst"`
}

// policyConfig is the demo's own configuration surface, entirely separate
// from the connector's Non-goal-bound core: it only ever feeds Options.
type policyConfig struct {
	Retry            retryConfig             `yaml:"retry"`
	Pinging          pingingConfig           `yaml:"pinging"`
	ReconnectLimiter reconnectLimiterConfig  `yaml:"reconnect_limiter"`
	Log              struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	MaxRuntime time.Duration `yaml:"max_runtime"`
}

func defaultPolicyConfig() policyConfig {
	return policyConfig{
		Retry: retryConfig{Policy: "exponential", Base: 1.5, Scale: 500 * time.Millisecond, Limits: 10},
		Pinging: pingingConfig{
			Mode: "standard", Timeout: 5 * time.Second, Interval: 30 * time.Second,
		},
	}
}

// loadPolicy reads path as YAML if non-empty and present, overlaying it onto
// defaultPolicyConfig. A missing path is not an error: the demo runs with
// sane defaults, matching godotenv.Load's "absent .env is fine" stance.
func loadPolicy(path string) (policyConfig, error) {
	cfg := defaultPolicyConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("wsdemo: reading policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("wsdemo: parsing policy file: %w", err)
	}
	return cfg, nil
}
