// Package config provides configuration loading and validation for the CLI
// and HTTP server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by MergeWithDefaults.
const (
	DefaultMaxFileSizeMB        = 5
	DefaultAllowedExtensions    = "pdf,doc,docx,jpg,jpeg,png"
	DefaultReplayTimeoutSeconds = 30
	DefaultPort                 = 8080
)

// Config represents the configuration that can be loaded from a JSON or
// YAML file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Conversion
	MaxFileSizeMB     int    `json:"max_file_size_mb,omitempty" yaml:"max_file_size_mb,omitempty"`       // Upload size limit for fileupload fields
	AllowedExtensions string `json:"allowed_extensions,omitempty" yaml:"allowed_extensions,omitempty"` // Comma-separated upload extensions

	// Retrieval
	UseBrowser bool `json:"use_browser,omitempty" yaml:"use_browser,omitempty"` // Render webform pages in a headless browser

	// Replay
	ReplayTimeoutSeconds int               `json:"replay_timeout_seconds,omitempty" yaml:"replay_timeout_seconds,omitempty"`
	ReplayBoundary       string            `json:"replay_boundary,omitempty" yaml:"replay_boundary,omitempty"`
	ReplayHeaders        map[string]string `json:"replay_headers,omitempty" yaml:"replay_headers,omitempty"`
	InsecureSkipVerify   bool              `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"` // Skip TLS checks for self-signed CRMs

	// Storage and server
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by the
// file extension. Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxFileSizeMB < 0 {
		return fmt.Errorf("config error: 'max_file_size_mb' must be non-negative")
	}
	if c.ReplayTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'replay_timeout_seconds' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	for _, ext := range c.Extensions() {
		if strings.ContainsAny(ext, " ./") {
			return fmt.Errorf("config error: invalid extension %q in 'allowed_extensions'", ext)
		}
	}
	if len(c.ReplayBoundary) > 70 {
		return fmt.Errorf("config error: 'replay_boundary' must be at most 70 characters")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults, falling back to the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.AllowedExtensions == "" {
		result.AllowedExtensions = firstNonEmpty(defaults.AllowedExtensions, DefaultAllowedExtensions)
	}
	if result.ReplayBoundary == "" {
		result.ReplayBoundary = defaults.ReplayBoundary
	}

	if result.MaxFileSizeMB == 0 {
		result.MaxFileSizeMB = firstPositive(defaults.MaxFileSizeMB, DefaultMaxFileSizeMB)
	}
	if result.ReplayTimeoutSeconds == 0 {
		result.ReplayTimeoutSeconds = firstPositive(defaults.ReplayTimeoutSeconds, DefaultReplayTimeoutSeconds)
	}
	if result.Port == 0 {
		result.Port = firstPositive(defaults.Port, DefaultPort)
	}

	if len(result.ReplayHeaders) == 0 && len(defaults.ReplayHeaders) > 0 {
		result.ReplayHeaders = make(map[string]string, len(defaults.ReplayHeaders))
		for k, v := range defaults.ReplayHeaders {
			result.ReplayHeaders[k] = v
		}
	}

	// Bool fields: true in either wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.InsecureSkipVerify = result.InsecureSkipVerify || defaults.InsecureSkipVerify
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Extensions returns the allowed upload extensions as a list.
func (c *Config) Extensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.AllowedExtensions, ",") {
		if ext = strings.TrimSpace(ext); ext != "" {
			exts = append(exts, strings.ToLower(ext))
		}
	}
	return exts
}

// ReplayTimeout returns the replay timeout as a duration.
func (c *Config) ReplayTimeout() time.Duration {
	return time.Duration(c.ReplayTimeoutSeconds) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
