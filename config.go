package instantauth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Config holds the engine's immutable settings. Strategies are not part of
// Config; they are bound through the [Builder].
type Config struct {
	// SecretKey is the pre-provisioned symmetric secret shared by the engine and
	// every legitimate sender.
	SecretKey string
	Security  SecurityConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Log       LogConfig
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig bounds the shared secret.
type SecurityConfig struct {
	ProductionMode  bool
	MinSecretLength int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters read by exporters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// LogConfig selects the logrus level used when the builder creates the logger.
type LogConfig struct {
	Level string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. SecretKey is left empty and
// must be set before Build.
func DefaultConfig() Config {
	return Config{
		Security: SecurityConfig{
			ProductionMode:  false,
			MinSecretLength: 4,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SecretKey is required")
	}
	if c.Security.MinSecretLength < 0 {
		return errors.New("Security MinSecretLength must be >= 0")
	}
	if len(c.SecretKey) < c.Security.MinSecretLength {
		return fmt.Errorf("SecretKey must be at least %d bytes", c.Security.MinSecretLength)
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if _, err := parseLogLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Security.ProductionMode {
		if len(c.SecretKey) < 32 {
			return errors.New("ProductionMode requires SecretKey length >= 32 bytes")
		}
		if strings.EqualFold(c.Log.Level, "debug") || strings.EqualFold(c.Log.Level, "trace") {
			return errors.New("ProductionMode forbids debug or trace logging")
		}
	}

	return nil
}

func parseLogLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("Log Level is invalid: %w", err)
	}
	return lvl, nil
}

/*
====================================
LOADING
====================================
*/

// LoadConfig parses b as a TOML document on top of [DefaultConfig] and
// validates the result. Unknown keys are rejected.
func LoadConfig(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(string(b), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: Undecoded keys in config file: %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads, parses and validates the TOML file at path.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadConfig(b)
}
