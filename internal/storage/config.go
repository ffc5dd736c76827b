// Manages engine configuration stored in config.yaml.

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yaml"

// Config stores all engine-wide configuration.
// Loaded from config.yaml in the data directory, created with defaults if
// missing.
type Config struct {
	// Limits defines per-upload size ceilings.
	Limits Limits `yaml:"limits"`

	// RateLimits defines rate limiting configuration.
	RateLimits RateLimits `yaml:"rate_limits"`

	// Analysis configures the derived-metadata provider.
	Analysis AnalysisConfig `yaml:"analysis"`
}

// Limits defines per-upload size ceilings, tunable independently per
// document kind.
type Limits struct {
	// MaxTextBytes limits a single text document. 0 uses the default.
	MaxTextBytes int64 `yaml:"max_text_bytes"`

	// MaxImageBytes limits a single image document. 0 uses the default.
	MaxImageBytes int64 `yaml:"max_image_bytes"`

	// MaxBatchBytes limits the aggregate size of one upload batch.
	MaxBatchBytes int64 `yaml:"max_batch_bytes"`
}

// Validate checks that limit values are non-negative.
func (l *Limits) Validate() error {
	if l.MaxTextBytes < 0 {
		return errors.New("max_text_bytes must be non-negative")
	}
	if l.MaxImageBytes < 0 {
		return errors.New("max_image_bytes must be non-negative")
	}
	if l.MaxBatchBytes < 0 {
		return errors.New("max_batch_bytes must be non-negative")
	}
	return nil
}

// DefaultLimits returns the default size ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxTextBytes:  2 * 1024 * 1024,  // 2 MiB
		MaxImageBytes: 10 * 1024 * 1024, // 10 MiB
		MaxBatchBytes: 50 * 1024 * 1024, // 50 MiB
	}
}

// ForKind returns the single-file ceiling for a document kind.
func (l *Limits) ForKind(isImage bool) int64 {
	if isImage {
		return l.MaxImageBytes
	}
	return l.MaxTextBytes
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// WriteRatePerMin limits mutating operations (upload, replace, trash,
	// GC). 0 means unlimited.
	WriteRatePerMin int `yaml:"write_rate_per_min"`

	// AnalyzeRatePerMin limits analysis requests, which fan out to the
	// external provider. 0 means unlimited.
	AnalyzeRatePerMin int `yaml:"analyze_rate_per_min"`

	// ReadRatePerMin limits read operations. 0 means unlimited.
	ReadRatePerMin int `yaml:"read_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	if r.AnalyzeRatePerMin < 0 {
		return errors.New("analyze_rate_per_min must be non-negative")
	}
	if r.ReadRatePerMin < 0 {
		return errors.New("read_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		WriteRatePerMin:   120,
		AnalyzeRatePerMin: 30,
		ReadRatePerMin:    6000,
	}
}

// AnalysisConfig configures the external text/vision provider and the
// summary feature.
type AnalysisConfig struct {
	// BaseURL of the provider API. Empty disables analysis entirely.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the provider. May also come from the
	// environment at startup.
	APIKey string `yaml:"api_key"`

	// Model names the generation model to request.
	Model string `yaml:"model"`

	// TimeoutSeconds bounds every provider call. 0 uses the default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// EnableSummaries turns on text summary generation. Image descriptions
	// are always on when a provider is configured.
	EnableSummaries bool `yaml:"enable_summaries"`

	// SummaryMaxInputChars truncates oversized summary input. 0 uses the
	// default.
	SummaryMaxInputChars int `yaml:"summary_max_input_chars"`
}

// Validate checks that analysis values are sane.
func (a *AnalysisConfig) Validate() error {
	if a.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must be non-negative")
	}
	if a.SummaryMaxInputChars < 0 {
		return errors.New("summary_max_input_chars must be non-negative")
	}
	return nil
}

// DefaultAnalysisConfig returns analysis defaults. The provider stays
// disabled until a base URL is configured.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Model:                "claude-haiku-4-5",
		TimeoutSeconds:       60,
		EnableSummaries:      true,
		SummaryMaxInputChars: 20000,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Limits:     DefaultLimits(),
		RateLimits: DefaultRateLimits(),
		Analysis:   DefaultAnalysisConfig(),
	}
}

// LoadConfig loads configuration from dataDir/config.yaml.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, configFileName)
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config.yaml: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to dataDir/config.yaml.
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dataDir, configFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return nil
}
