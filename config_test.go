package instantauth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing secret to fail validation")
	}
	cfg.SecretKey = "SECRET"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidateRules(t *testing.T) {
	cases := map[string]func(*Config){
		"short secret":        func(c *Config) { c.SecretKey = "abc" },
		"negative min length": func(c *Config) { c.Security.MinSecretLength = -1 },
		"bad log level":       func(c *Config) { c.Log.Level = "chatty" },
		"audit zero buffer": func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		},
		"production short secret": func(c *Config) { c.Security.ProductionMode = true },
		"production debug logs": func(c *Config) {
			c.Security.ProductionMode = true
			c.SecretKey = strings.Repeat("s", 32)
			c.Log.Level = "debug"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SecretKey = "SECRET"
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfigTOML(t *testing.T) {
	doc := `
SecretKey = "a-very-long-shared-secret-for-production-use"

[Security]
ProductionMode = true

[Audit]
Enabled = true
BufferSize = 64

[Metrics]
Enabled = true
EnableLatencyHistograms = true

[Log]
Level = "warn"
`
	cfg, err := LoadConfig([]byte(doc))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Security.ProductionMode || cfg.Audit.BufferSize != 64 || !cfg.Metrics.EnableLatencyHistograms {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Security.MinSecretLength != 4 || !cfg.Audit.DropIfFull {
		t.Fatalf("defaults should survive partial documents: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig([]byte("SecretKey = \"SECRET\"\nSecretKye = \"typo\"\n"))
	if err == nil || !strings.Contains(err.Error(), "Undecoded") {
		t.Fatalf("expected undecoded key error, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, []byte("SecretKey = \"SECRET\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if cfg.SecretKey != "SECRET" {
		t.Fatalf("unexpected secret %q", cfg.SecretKey)
	}
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
