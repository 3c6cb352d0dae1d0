// Package config loads the application configuration from a YAML file,
// applies defaults and prepares the working directories.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the loader looks when no --config flag is given.
const DefaultPath = "config.yaml"

// Config holds the global application configuration.
type Config struct {
	// TallyURL is the import endpoint of the target Tally instance.
	TallyURL string `yaml:"tally_url"`

	// CompanyName scopes generated envelopes. Empty selects the company
	// currently active in Tally.
	CompanyName string `yaml:"company_name"`

	// HomeStateCode is the two-digit GSTIN state code of the home
	// jurisdiction. GSTINs starting with a different code are inter-state.
	HomeStateCode string `yaml:"home_state_code"`

	// DefaultTaxRate is applied to rows that carry no tax rate column.
	DefaultTaxRate float64 `yaml:"default_tax_rate"`

	// PushTimeoutSeconds bounds the import round trip to Tally.
	PushTimeoutSeconds int `yaml:"push_timeout_seconds"`

	// OutputDir receives generated XML documents.
	OutputDir string `yaml:"output_dir"`

	// ArchiveDir receives successfully processed input files.
	ArchiveDir string `yaml:"archive_dir"`

	// ListenAddr is the bind address for serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// PushTimeout returns the configured push timeout as a duration.
func (c *Config) PushTimeout() time.Duration {
	return time.Duration(c.PushTimeoutSeconds) * time.Second
}

// Load reads the configuration at path. When path is the default location
// and the file does not exist, the built-in defaults are returned so the
// tool works out of the box against a local Tally.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			cfg := &Config{}
			applyDefaults(cfg)
			return cfg, validate(cfg)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.TallyURL == "" {
		cfg.TallyURL = "http://localhost:9000"
	}
	if cfg.HomeStateCode == "" {
		cfg.HomeStateCode = "27"
	}
	if cfg.DefaultTaxRate == 0 {
		cfg.DefaultTaxRate = 18
	}
	if cfg.PushTimeoutSeconds == 0 {
		cfg.PushTimeoutSeconds = 30
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = "./archive"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	if len(cfg.HomeStateCode) != 2 {
		return fmt.Errorf("home_state_code must be a two-digit GSTIN state code, got %q", cfg.HomeStateCode)
	}
	if cfg.DefaultTaxRate < 0 || cfg.DefaultTaxRate > 100 {
		return fmt.Errorf("default_tax_rate must be between 0 and 100, got %v", cfg.DefaultTaxRate)
	}
	for _, dir := range []string{cfg.OutputDir, cfg.ArchiveDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return nil
}
