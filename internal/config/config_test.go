package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the defaults target Dhaka with the Karachi
// calculation method.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Location.City != "Dhaka" || cfg.Location.Country != "Bangladesh" {
		t.Errorf("default location = %s, %s; want Dhaka, Bangladesh", cfg.Location.City, cfg.Location.Country)
	}
	if cfg.Aladhan.Method != 1 {
		t.Errorf("default aladhan method = %d, want 1", cfg.Aladhan.Method)
	}
	if cfg.OutputFormat != "text" {
		t.Errorf("default output_format = %q, want text", cfg.OutputFormat)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

// TestLoadCreatesDefault verifies Load writes the sample config when the
// file is absent.
func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Backend.URL == "" {
		t.Error("Load returned config without backend URL")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Load did not create config file: %v", err)
	}
}

// TestLoadExisting verifies fields load from YAML with defaults applied to
// the rest.
func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  url: http://api.example.test
location:
  city: Chittagong
  country: Bangladesh
  latitude: 22.3569
  longitude: 91.7832
probe_timeout: 2s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Backend.URL != "http://api.example.test" {
		t.Errorf("Backend.URL = %q", cfg.Backend.URL)
	}
	if cfg.Location.City != "Chittagong" {
		t.Errorf("Location.City = %q, want Chittagong", cfg.Location.City)
	}
	if cfg.Aladhan.Method != 1 {
		t.Errorf("Aladhan.Method = %d, want defaulted 1", cfg.Aladhan.Method)
	}
	if got := cfg.GetProbeTimeout(); got != 2*time.Second {
		t.Errorf("GetProbeTimeout = %v, want 2s", got)
	}
	if cfg.OutputFormat != "text" {
		t.Errorf("OutputFormat = %q, want defaulted text", cfg.OutputFormat)
	}
}

// TestValidateRejectsBadValues verifies validation failures.
func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }},
		{"latitude out of range", func(c *Config) { c.Location.Latitude = 123 }},
		{"longitude out of range", func(c *Config) { c.Location.Longitude = -500 }},
		{"bad probe timeout", func(c *Config) { c.ProbeTimeout = "soon" }},
		{"bad request timeout", func(c *Config) { c.RequestTimeout = "10" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

// TestTimeoutDefaults verifies timeout accessors fall back when unset or
// unparseable.
func TestTimeoutDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.GetProbeTimeout(); got != 5*time.Second {
		t.Errorf("GetProbeTimeout = %v, want 5s default", got)
	}
	if got := cfg.GetRequestTimeout(); got != 10*time.Second {
		t.Errorf("GetRequestTimeout = %v, want 10s default", got)
	}
}

// TestExpandPath verifies ~ and env var expansion.
func TestExpandPath(t *testing.T) {
	t.Setenv("PRAYAT_TEST_DIR", "/data")
	if got := ExpandPath("$PRAYAT_TEST_DIR/prayers.db"); got != "/data/prayers.db" {
		t.Errorf("ExpandPath = %q", got)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	if got := ExpandPath("~/prayers.db"); got != filepath.Join(home, "prayers.db") {
		t.Errorf("ExpandPath(~/prayers.db) = %q", got)
	}
}
