// Package config loads busscope settings from YAML.
//
// A config file is validated against an embedded CUE schema before it is
// decoded, so type errors, out-of-range values and unknown keys are all
// reported with their path. ${VAR} references are expanded from the
// environment first; unset variables are left as written.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file read when none is given.
const DefaultPath = "busscope.yaml"

// Config holds every setting.
type Config struct {
	ServiceURL           string        `yaml:"service_url"`
	PageSize             int           `yaml:"page_size"`
	ConversationPageSize int           `yaml:"conversation_page_size"`
	Timeout              time.Duration `yaml:"timeout"`
	Retry                RetryConfig   `yaml:"retry"`
	Monitor              MonitorConfig `yaml:"monitor"`
	Database             string        `yaml:"database"`
	LogLevel             string        `yaml:"log_level"`
	Server               ServerConfig  `yaml:"server"`
}

// RetryConfig bounds retries of upstream requests.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// MonitorConfig controls the background health check of `serve`.
type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig configures `serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServiceURL:           "http://localhost:33333/api",
		PageSize:             10,
		ConversationPageSize: 100,
		Timeout:              10 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
		Monitor: MonitorConfig{
			Enabled:  true,
			Interval: 30 * time.Second,
		},
		LogLevel: "info",
		Server: ServerConfig{
			Addr: "127.0.0.1:8085",
		},
	}
}

// ValidationError reports a config that does not satisfy the schema.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Load reads path over the defaults. A missing file returns an error
// wrapping fs.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Path = path
		}
		return nil, err
	}
	slog.Debug("config loaded", "path", path)
	return cfg, nil
}

// Parse decodes YAML config data over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, &ValidationError{Path: "<input>", Err: err}
	}

	cfg := Default()
	if len(raw) == 0 {
		return cfg, nil
	}

	if err := validateSchema(raw); err != nil {
		return nil, &ValidationError{Path: "<input>", Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, &ValidationError{Path: "<input>", Err: err}
	}
	return cfg, nil
}

// Validate checks cross-field constraints the schema cannot express. Run it
// after applying flag overrides.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.ServiceURL, "http://") && !strings.HasPrefix(c.ServiceURL, "https://") {
		return fmt.Errorf("service_url must start with http:// or https://, got %q", c.ServiceURL)
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry.max_delay (%s) must be >= retry.initial_delay (%s)", c.Retry.MaxDelay, c.Retry.InitialDelay)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps debug, info, warn or error onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func validateSchema(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return err
	}
	return nil
}

// expandEnvVars expands ${VAR} and $VAR. Unset variables stay as written.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
