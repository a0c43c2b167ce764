package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gyeh/billcheck/internal/model"
	"github.com/gyeh/billcheck/internal/pivot"
)

// DefaultHospital is the price list used when a request names none.
const DefaultHospital = "nch_data"

// Config holds all runtime configuration for a billcheck run.
type Config struct {
	DSN        string
	LogFormat  string // "text" or "json"
	LogLevel   string
	ConfigFile string

	// ingest / plan
	FilePath        string
	HospitalKey     string
	ActivateVersion bool
	Force           bool
	CodeTypes       []string // subset of AllCodeTypes to load

	// reconciliation
	DefaultHospital     string
	Thresholds          pivot.Thresholds
	ExcludePublicPayers bool

	Completion CompletionConfig

	// serve
	ListenAddr      string
	ShutdownTimeout time.Duration
	CacheMaxBytes   int64
	DescriptionTTL  time.Duration
}

// CompletionConfig points at an OpenAI-compatible chat completions endpoint.
type CompletionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	CodeTypes           []string `yaml:"code_types"`
	DefaultHospital     string   `yaml:"default_hospital"`
	ExcludePublicPayers *bool    `yaml:"exclude_public_payers"`
	SuspiciousRatio     *float64 `yaml:"suspicious_ratio"`
	CashFallbackFactor  *float64 `yaml:"cash_fallback_factor"`
	Completion          struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"completion"`
	Cache struct {
		MaxBytes       int64  `yaml:"max_bytes"`
		DescriptionTTL string `yaml:"description_ttl"`
	} `yaml:"cache"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// Values absent from the file leave the current settings untouched.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if yc.CodeTypes != nil {
		c.CodeTypes = yc.CodeTypes
	}
	if yc.DefaultHospital != "" {
		c.DefaultHospital = yc.DefaultHospital
	}
	if yc.ExcludePublicPayers != nil {
		c.ExcludePublicPayers = *yc.ExcludePublicPayers
	}
	if yc.SuspiciousRatio != nil {
		c.Thresholds.SuspiciousRatio = decimal.NewFromFloat(*yc.SuspiciousRatio)
	}
	if yc.CashFallbackFactor != nil {
		c.Thresholds.CashFallbackFactor = decimal.NewFromFloat(*yc.CashFallbackFactor)
	}
	if yc.Completion.BaseURL != "" {
		c.Completion.BaseURL = yc.Completion.BaseURL
	}
	if yc.Completion.Model != "" {
		c.Completion.Model = yc.Completion.Model
	}
	if yc.Completion.Timeout != "" {
		d, err := time.ParseDuration(yc.Completion.Timeout)
		if err != nil {
			return fmt.Errorf("parse completion.timeout: %w", err)
		}
		c.Completion.Timeout = d
	}
	if yc.Cache.MaxBytes > 0 {
		c.CacheMaxBytes = yc.Cache.MaxBytes
	}
	if yc.Cache.DescriptionTTL != "" {
		d, err := time.ParseDuration(yc.Cache.DescriptionTTL)
		if err != nil {
			return fmt.Errorf("parse cache.description_ttl: %w", err)
		}
		c.DescriptionTTL = d
	}

	if err := c.ValidateThresholds(); err != nil {
		return err
	}
	return c.validateCodeTypes()
}

// validateCodeTypes checks that every entry in CodeTypes is a known code type name.
// If CodeTypes is empty, it defaults to DefaultCodeTypes.
func (c *Config) validateCodeTypes() error {
	if len(c.CodeTypes) == 0 {
		c.CodeTypes = append([]string(nil), model.DefaultCodeTypes...)
		return nil
	}
	for _, name := range c.CodeTypes {
		if _, ok := model.CodeTypeByName(name); !ok {
			return fmt.Errorf("unknown code type %q in config", name)
		}
	}
	return nil
}

// ValidateThresholds rejects a negative suspicious ratio and a cash fallback
// factor outside [0, 1].
func (c *Config) ValidateThresholds() error {
	if c.Thresholds.SuspiciousRatio.IsNegative() {
		return fmt.Errorf("suspicious_ratio must not be negative, got %s", c.Thresholds.SuspiciousRatio)
	}
	f := c.Thresholds.CashFallbackFactor
	if f.IsNegative() || f.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("cash_fallback_factor must be within [0, 1], got %s", f)
	}
	return nil
}

// Hospital returns the requested hospital key, falling back to the default.
func (c *Config) Hospital(requested string) string {
	if requested != "" {
		return requested
	}
	if c.DefaultHospital != "" {
		return c.DefaultHospital
	}
	return DefaultHospital
}

// Validate checks the fields needed to read a price file.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if err := c.ValidateThresholds(); err != nil {
		return err
	}
	return c.validateCodeTypes()
}

// ValidateWithDSN checks both file and DSN fields.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.RequireDSN()
}

// RequireDSN reports a usage error when no connection string is configured.
func (c *Config) RequireDSN() error {
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
