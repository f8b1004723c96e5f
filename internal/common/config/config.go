package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "NUGETWATCH_"

// Defaults
const (
	DefaultSearchURL   = "https://azuresearch-usnc.nuget.org/query"
	DefaultContainer   = "nugetwatch"
	DefaultSchedule    = "0 0 */6 * * *"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultEnvFile     = ".env"
)

var (
	ErrPackageIDNotSet         = errors.New("package id is not configured")
	ErrStorageNotSet           = errors.New("storage connection string is not configured")
	ErrAlertEndpointNotSet     = errors.New("alert endpoint is not configured")
	ErrInvalidURL              = errors.New("invalid URL: must be absolute http or https")
	ErrUnsupportedConfigFormat = errors.New("unsupported config file format: use .yaml, .yml or .toml")
)

// Config is built once at start-up and passed by pointer to every component.
type Config struct {
	// PackageID is the registry package identifier, also the state key
	PackageID string `yaml:"package_id" toml:"package_id" env:"PACKAGE_ID"`
	// StorageConnectionString selects the state backend (file:// or sqlite://)
	StorageConnectionString string `yaml:"storage_connection_string" toml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	// Container is the namespace inside the state store
	Container string `yaml:"container" toml:"container" env:"CONTAINER"`
	// AlertEndpoint receives the JSON notification
	AlertEndpoint string `yaml:"alert_endpoint" toml:"alert_endpoint" env:"ALERT_ENDPOINT"`
	// SearchURL is the registry search base URL
	SearchURL string `yaml:"search_url" toml:"search_url" env:"SEARCH_URL"`
	// Schedule is a six-field cron expression (seconds first)
	Schedule string `yaml:"schedule" toml:"schedule" env:"SCHEDULE"`
	// NotifyOnFirstSeen sends a notification when the baseline is recorded
	NotifyOnFirstSeen bool `yaml:"notify_on_first_seen" toml:"notify_on_first_seen" env:"NOTIFY_ON_FIRST_SEEN"`
	// HTTPTimeout bounds every outbound request
	HTTPTimeout time.Duration `yaml:"http_timeout" toml:"http_timeout" env:"HTTP_TIMEOUT"`
	// LogDir overrides the log file directory
	LogDir string `yaml:"log_dir" toml:"log_dir" env:"LOG_DIR"`
	// MetricsAddr enables the Prometheus endpoint in daemon mode
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr" env:"METRICS_ADDR"`
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// ConfigPath is an explicit config file; empty means search ConfigPaths
	ConfigPath string
	// EnvFile is a dotenv file; empty means DefaultEnvFile if it exists
	EnvFile string
	// StoreOnly validates only the settings needed to read the state store
	StoreOnly bool
}

// Default returns a configuration holding only defaults
func Default() *Config {
	return &Config{
		Container:   DefaultContainer,
		SearchURL:   DefaultSearchURL,
		Schedule:    DefaultSchedule,
		HTTPTimeout: DefaultHTTPTimeout,
	}
}

// ConfigPaths returns all possible config file paths in priority order
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	// Check XDG_CONFIG_HOME first, fallback to ~/.config
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	dir := filepath.Join(xdgConfig, "nugetwatch")
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.toml"),
	}, nil
}

// FindConfigPath returns the first existing config file path, or "" when none exists
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// Load layers defaults, the config file, the dotenv file and the environment,
// in that order, then validates the result.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	configPath := opts.ConfigPath
	if configPath == "" {
		found, err := FindConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = found
	}
	if configPath != "" {
		if err := cfg.mergeFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	validate := cfg.Validate
	if opts.StoreOnly {
		validate = cfg.ValidateStore
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path without consulting the environment
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes a YAML or TOML file over the current values
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, path)
	}
	return nil
}

// loadEnvFile exports a dotenv file into the process environment.
// Variables already set in the environment win.
func loadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); err != nil {
			return nil
		}
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks required fields and URL shapes
func (c *Config) Validate() error {
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if strings.TrimSpace(c.AlertEndpoint) == "" {
		return ErrAlertEndpointNotSet
	}
	if err := validateHTTPURL(c.AlertEndpoint); err != nil {
		return fmt.Errorf("alert endpoint: %w", err)
	}
	if err := validateHTTPURL(c.SearchURL); err != nil {
		return fmt.Errorf("search url: %w", err)
	}
	return nil
}

// ValidateStore checks only what is needed to open the state store and
// fills zero values with defaults
func (c *Config) ValidateStore() error {
	if strings.TrimSpace(c.PackageID) == "" {
		return ErrPackageIDNotSet
	}
	if strings.TrimSpace(c.StorageConnectionString) == "" {
		return ErrStorageNotSet
	}
	if c.Container == "" {
		c.Container = DefaultContainer
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// SaveTo writes configuration to a specific file path in YAML or TOML by extension
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		var sb strings.Builder
		err = toml.NewEncoder(&sb).Encode(c)
		data = []byte(sb.String())
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedConfigFormat, path)
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
