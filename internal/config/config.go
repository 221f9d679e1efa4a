package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gravitrone/ledgerdesk/internal/api"
)

// Defaults for the preview pipeline.
const (
	DefaultDebounceMS   = 1000
	DefaultMaxRetries   = 3
	DefaultRetryStepMS  = 2000
	DefaultErrorLogSize = 20
	DefaultTimeoutSecs  = 30
)

// Config holds CLI configuration stored at ~/.ledgerdesk/config.
type Config struct {
	APIURL         string        `yaml:"api_url"`
	APIKey         string        `yaml:"api_key,omitempty"`
	TimeoutSeconds int           `yaml:"timeout_seconds,omitempty"`
	LogFile        string        `yaml:"log_file,omitempty"`
	LogLevel       string        `yaml:"log_level,omitempty"`
	Currency       string        `yaml:"currency,omitempty"`
	Preview        PreviewConfig `yaml:"preview"`
}

// PreviewConfig tunes the live preview scheduler.
type PreviewConfig struct {
	DebounceMS   int `yaml:"debounce_ms,omitempty"`
	MaxRetries   int `yaml:"max_retries,omitempty"`
	RetryStepMS  int `yaml:"retry_step_ms,omitempty"`
	ErrorLogSize int `yaml:"error_log_size,omitempty"`
}

// Dir returns the directory holding config and logs.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ledgerdesk")
}

// Path returns the config file path.
func Path() string {
	return filepath.Join(Dir(), "config")
}

// Default returns a config with every field at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file. Returns an error wrapping
// os.ErrNotExist when the file is missing, or an error if it is insecure.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load for an explicit path.
func LoadFrom(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config not found: %w", err)
	}

	perm := info.Mode().Perm()
	if perm != 0600 {
		return nil, fmt.Errorf("config permissions too open: %04o (want 0600)", perm)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadOrDefault is Load, falling back to defaults when no file exists.
// Environment overrides are applied in both cases.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv lets LEDGERDESK_API_URL and LEDGERDESK_API_KEY override the file.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("LEDGERDESK_API_URL")); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LEDGERDESK_API_KEY")); v != "" {
		c.APIKey = v
	}
}

// Save writes the config to disk with secure permissions.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo is Save for an explicit path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0600)
}

// Timeout is the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Debounce is the quiet period before a preview render.
func (p PreviewConfig) Debounce() time.Duration {
	return time.Duration(p.DebounceMS) * time.Millisecond
}

// Retries is the retry bound with the "disabled" encoding resolved.
func (p PreviewConfig) Retries() int {
	if p.MaxRetries < 0 {
		return 0
	}
	return p.MaxRetries
}

// RetryStep is the linear backoff unit between preview retries.
func (p PreviewConfig) RetryStep() time.Duration {
	return time.Duration(p.RetryStepMS) * time.Millisecond
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = api.DefaultBaseURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSecs
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(Dir(), "ledgerdesk.log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if c.Preview.DebounceMS <= 0 {
		c.Preview.DebounceMS = DefaultDebounceMS
	}
	// 0 means "use the default"; a negative value disables retry.
	if c.Preview.MaxRetries == 0 {
		c.Preview.MaxRetries = DefaultMaxRetries
	}
	if c.Preview.RetryStepMS <= 0 {
		c.Preview.RetryStepMS = DefaultRetryStepMS
	}
	if c.Preview.ErrorLogSize <= 0 {
		c.Preview.ErrorLogSize = DefaultErrorLogSize
	}
}
