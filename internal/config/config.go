// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// BackendConfig holds primary-source (diet app API) settings
type BackendConfig struct {
	URL string `yaml:"url"`
}

// AladhanConfig holds secondary-source settings
type AladhanConfig struct {
	URL    string `yaml:"url"`
	Method int    `yaml:"method"` // calculation method ID
}

// LocationConfig holds the geographic parameters sent to both sources
type LocationConfig struct {
	City      string  `yaml:"city"`
	Country   string  `yaml:"country"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// CacheConfig holds cache store settings
type CacheConfig struct {
	Path string `yaml:"path"`
}

// Config represents the application configuration
type Config struct {
	Backend        BackendConfig  `yaml:"backend"`
	Aladhan        AladhanConfig  `yaml:"aladhan"`
	Location       LocationConfig `yaml:"location"`
	Cache          CacheConfig    `yaml:"cache"`
	ProbeTimeout   string         `yaml:"probe_timeout"`   // availability probe, e.g. "5s"
	RequestTimeout string         `yaml:"request_timeout"` // per-request, e.g. "10s"
	OutputFormat   string         `yaml:"output_format"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL: "http://localhost:8000",
		},
		Aladhan: AladhanConfig{
			Method: 1, // University of Islamic Sciences, Karachi
		},
		Location: LocationConfig{
			City:      "Dhaka",
			Country:   "Bangladesh",
			Latitude:  23.8103,
			Longitude: 90.4125,
		},
		Cache: CacheConfig{
			Path: filepath.Join(GetDataDir(), "prayers.db"),
		},
		OutputFormat: "text",
	}
}

// Load loads configuration from the specified path, or the default XDG path
// if empty. If the config file doesn't exist, it creates one with defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Cache.Path != "" {
		cfg.Cache.Path = ExpandPath(cfg.Cache.Path)
	}

	return cfg, nil
}

// applyDefaults fills unset fields from the default config
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Backend.URL == "" {
		c.Backend.URL = def.Backend.URL
	}
	if c.Aladhan.Method == 0 {
		c.Aladhan.Method = def.Aladhan.Method
	}
	if c.Location.City == "" && c.Location.Country == "" &&
		c.Location.Latitude == 0 && c.Location.Longitude == 0 {
		c.Location = def.Location
	}
	if c.Cache.Path == "" {
		c.Cache.Path = def.Cache.Path
	}
	if c.OutputFormat == "" {
		c.OutputFormat = def.OutputFormat
	}
}

// save writes the configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.OutputFormat != "text" && c.OutputFormat != "json" {
		return fmt.Errorf("invalid output_format: %q (must be 'text' or 'json')", c.OutputFormat)
	}

	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("invalid location.latitude: %v", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("invalid location.longitude: %v", c.Location.Longitude)
	}

	if c.ProbeTimeout != "" {
		if _, err := time.ParseDuration(c.ProbeTimeout); err != nil {
			return fmt.Errorf("invalid duration for probe_timeout: %q", c.ProbeTimeout)
		}
	}
	if c.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
			return fmt.Errorf("invalid duration for request_timeout: %q", c.RequestTimeout)
		}
	}

	return nil
}

// GetProbeTimeout returns the availability probe timeout.
// Returns 5 seconds as default if not configured or if parsing fails.
func (c *Config) GetProbeTimeout() time.Duration {
	d, err := time.ParseDuration(c.ProbeTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// GetRequestTimeout returns the per-request timeout for source fetches.
// Returns 10 seconds as default if not configured or if parsing fails.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "prayat")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "prayat")
	}
	return filepath.Join(home, fallbackPath, "prayat")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
