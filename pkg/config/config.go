// Package config loads the YAML configuration controlling transport
// timeouts, retry budgets, dialog policy, extraction limits, and the
// navigation allowlist.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Zero values are replaced with
// defaults at load time, so a partial file only overrides what it names.
type Config struct {
	Transport  TransportConfig  `yaml:"transport"`
	Retry      RetryConfig      `yaml:"retry"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Navigation NavigationConfig `yaml:"navigation"`
}

// TransportConfig bounds individual transport attempts.
type TransportConfig struct {
	// CommandTimeoutMs bounds one attempt of an element-interaction call.
	CommandTimeoutMs int `yaml:"command_timeout_ms"`

	// PageLoadTimeoutMs bounds one attempt of a navigation-class call.
	PageLoadTimeoutMs int `yaml:"page_load_timeout_ms"`

	// ScriptTimeoutMs bounds a script round-trip.
	ScriptTimeoutMs int `yaml:"script_timeout_ms"`

	// HealthProbeTimeoutMs bounds the liveness probe.
	HealthProbeTimeoutMs int `yaml:"health_probe_timeout_ms"`
}

// RetryConfig bounds the dispatcher retry loop.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms"`
}

// DialogConfig selects the dialog policy and poll cadence.
type DialogConfig struct {
	// Policy is one of "accept", "dismiss", "block".
	Policy string `yaml:"policy"`

	PollIntervalMs  int `yaml:"poll_interval_ms"`
	SweepMaxWaitMs  int `yaml:"sweep_max_wait_ms"`
	SweepIntervalMs int `yaml:"sweep_interval_ms"`
}

// ExtractionConfig tunes the extraction pass. The visibility thresholds are
// tunables, not invariants.
type ExtractionConfig struct {
	MaxElements    int     `yaml:"max_elements"`
	MaxTextLength  int     `yaml:"max_text_length"`
	MinVisibleArea float64 `yaml:"min_visible_area"`
	OpacityCutoff  float64 `yaml:"opacity_cutoff"`
}

// NavigationConfig gates navigation targets. An empty pattern list allows
// every URL.
type NavigationConfig struct {
	// AllowedURLPatterns are glob patterns matched against the full URL,
	// e.g. "https://*.example.com/*".
	AllowedURLPatterns []string `yaml:"allowed_url_patterns"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			CommandTimeoutMs:     15000,
			PageLoadTimeoutMs:    60000,
			ScriptTimeoutMs:      30000,
			HealthProbeTimeoutMs: 3000,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 150,
			MaxDelayMs:  2000,
		},
		Dialog: DialogConfig{
			Policy:          "accept",
			PollIntervalMs:  500,
			SweepMaxWaitMs:  800,
			SweepIntervalMs: 150,
		},
		Extraction: ExtractionConfig{
			MaxElements:    400,
			MaxTextLength:  300,
			MinVisibleArea: 1,
			OpacityCutoff:  0,
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	switch c.Dialog.Policy {
	case "accept", "dismiss", "block":
	default:
		return fmt.Errorf("dialog.policy must be accept, dismiss, or block, got %q", c.Dialog.Policy)
	}
	if c.Extraction.MaxElements < 1 {
		return fmt.Errorf("extraction.max_elements must be at least 1, got %d", c.Extraction.MaxElements)
	}
	if c.Extraction.OpacityCutoff < 0 || c.Extraction.OpacityCutoff >= 1 {
		return fmt.Errorf("extraction.opacity_cutoff must be in [0, 1), got %v", c.Extraction.OpacityCutoff)
	}
	if _, err := NewAllowlist(c.Navigation.AllowedURLPatterns); err != nil {
		return err
	}
	return nil
}

// CommandTimeout returns the interaction-class attempt bound.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Transport.CommandTimeoutMs) * time.Millisecond
}

// PageLoadTimeout returns the navigation-class attempt bound.
func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.Transport.PageLoadTimeoutMs) * time.Millisecond
}

// ScriptTimeout returns the script round-trip bound.
func (c *Config) ScriptTimeout() time.Duration {
	return time.Duration(c.Transport.ScriptTimeoutMs) * time.Millisecond
}

// HealthProbeTimeout returns the liveness probe bound.
func (c *Config) HealthProbeTimeout() time.Duration {
	return time.Duration(c.Transport.HealthProbeTimeoutMs) * time.Millisecond
}
