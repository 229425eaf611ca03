package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort      = 8321
	defaultRateLimit = 30
	defaultFormat    = "report"
)

type Config struct {
	// Categories is an optional path to a YAML file replacing the
	// built-in category table.
	Categories string  `yaml:"categories,omitempty"`
	Options    Options `yaml:"options,omitempty"`
	Web        Web     `yaml:"web,omitempty"`
}

type Options struct {
	Format string `yaml:"format"` // "json" or "report"
}

// Web holds settings for the local web UI. RateLimit caps parses per
// client per minute.
type Web struct {
	Port      int `yaml:"port"`
	RateLimit int `yaml:"rate_limit"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Options: Options{Format: defaultFormat},
		Web:     Web{Port: defaultPort, RateLimit: defaultRateLimit},
	}
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".triage", "config.yaml")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Options.Format == "" {
		cfg.Options.Format = defaultFormat
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = defaultPort
	}
	if cfg.Web.RateLimit == 0 {
		cfg.Web.RateLimit = defaultRateLimit
	}

	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) Validate() error {
	if c.Options.Format != "json" && c.Options.Format != "report" {
		return fmt.Errorf("options: unknown format %q (expected json or report)", c.Options.Format)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web: port %d is out of range", c.Web.Port)
	}
	if c.Web.RateLimit < 1 {
		return fmt.Errorf("web: rate_limit must be positive")
	}
	return nil
}
