// Package config defines client configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load layers .env, an optional YAML file and ATSCHECK_ env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Default values for the analyzer client and the web host.
const (
	defaultAnalyzerURL     = "http://localhost:5000"
	defaultAnalyzePath     = "/api/analyze"
	defaultMaxKeywords     = 50
	defaultMaxUploadBytes  = 10 << 20
	defaultTokenLedgerSize = 10_000
)

// Config contains process configuration shared by the CLI and the web host.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the web host listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// AnalyzerURL is the origin of the remote analysis service.
	AnalyzerURL string `koanf:"analyzer_url"`

	// AnalyzePath is appended to AnalyzerURL for submissions.
	AnalyzePath string `koanf:"analyze_path"`

	// RequestTimeoutMS bounds a single submission. Zero disables the timeout.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxKeywords caps how many missing keywords are rendered.
	MaxKeywords int `koanf:"max_keywords"`

	// SubmitLabel and BusyLabel are the idle and in-progress submit labels.
	SubmitLabel string `koanf:"submit_label"`
	BusyLabel   string `koanf:"busy_label"`

	// MaxUploadBytes caps the multipart body accepted by the web host.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// TokenLedgerSize bounds the number of remembered form tokens.
	TokenLedgerSize int `koanf:"token_ledger_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		AnalyzerURL:      defaultAnalyzerURL,
		AnalyzePath:      defaultAnalyzePath,
		RequestTimeoutMS: 0,
		MaxKeywords:      defaultMaxKeywords,
		SubmitLabel:      "Analyze",
		BusyLabel:        "Analyzing...",
		MaxUploadBytes:   defaultMaxUploadBytes,
		TokenLedgerSize:  defaultTokenLedgerSize,
	}
}

// RequestTimeout returns the per-submission timeout; zero means none.
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.AnalyzerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: analyzer_url must be an absolute URL, got %q", ErrInvalidConfig, c.AnalyzerURL)
	}
	if !strings.HasPrefix(c.AnalyzePath, "/") {
		return fmt.Errorf("%w: analyze_path must start with /", ErrInvalidConfig)
	}
	if c.MaxKeywords <= 0 {
		return fmt.Errorf("%w: max_keywords must be positive", ErrInvalidConfig)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

// Endpoint joins AnalyzerURL and AnalyzePath.
func (c *Config) Endpoint() string {
	return strings.TrimRight(c.AnalyzerURL, "/") + c.AnalyzePath
}
