// ABOUTME: Configuration loading and parsing for parley-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/2389/parley-gateway/internal/objstore"
)

// Config represents the complete parley-gateway configuration
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Storage  objstore.Config `yaml:"storage"`
	AI       AIConfig        `yaml:"ai"`
	Identity IdentityConfig  `yaml:"identity"`
	Context  ContextConfig   `yaml:"context"`
	Extract  ExtractConfig   `yaml:"extract"`
	Pipeline PipelineConfig  `yaml:"pipeline"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AIConfig holds the model endpoint configuration
type AIConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IdentityConfig holds session token verification configuration
type IdentityConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// ContextConfig tunes conversation context assembly
type ContextConfig struct {
	FetchWindow    int     `yaml:"fetch_window"`
	RetainFraction float64 `yaml:"retain_fraction"`
}

// ExtractConfig bounds attachment extraction. Zero values fall back to the
// extractor defaults.
type ExtractConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"`
	MaxItems      int `yaml:"max_items"`
	MaxPages      int `yaml:"max_pages"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// PipelineConfig holds whole-pipeline limits
type PipelineConfig struct {
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling; empty disables the deadline
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage.endpoint is set")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if c.Context.RetainFraction < 0 || c.Context.RetainFraction > 1 {
		return fmt.Errorf("context.retain_fraction must be between 0 and 1")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Extract.TimeoutRaw != "" {
		cfg.Extract.Timeout, err = time.ParseDuration(cfg.Extract.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing extract.timeout %q: %w", cfg.Extract.TimeoutRaw, err)
		}
	}

	if cfg.Pipeline.TimeoutRaw != "" {
		cfg.Pipeline.Timeout, err = time.ParseDuration(cfg.Pipeline.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing pipeline.timeout %q: %w", cfg.Pipeline.TimeoutRaw, err)
		}
	}

	return nil
}
