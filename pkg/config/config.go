package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/cart0113/mod2doctest/pkg/dialect"
	"github.com/cart0113/mod2doctest/pkg/sanitize"
)

// Load reads and validates a configuration file. Files ending in .toml are
// decoded as TOML, everything else as YAML. An empty path yields the
// defaults with environment overrides applied.
func Load(_ context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks a configuration for errors, compiles patterns and
// resolves the dialect.
func Validate(cfg *Config) error {
	base, err := dialect.Lookup(cfg.Dialect)
	if err != nil {
		return fmt.Errorf("dialect: %w", err)
	}

	if err := cfg.Markers.Validate(); err != nil {
		return fmt.Errorf("markers: %w", err)
	}

	if cfg.TabWidth <= 0 {
		cfg.TabWidth = DefaultTabWidth
	}

	d := base.Clone()
	d.Markers = cfg.Markers
	if len(cfg.ContinuationKeywords) > 0 {
		d.ContinuationKeywords = append([]string(nil), cfg.ContinuationKeywords...)
	}
	if err := d.Compile(); err != nil {
		return fmt.Errorf("dialect: %w", err)
	}
	cfg.dialect = d

	if err := validateInterpreter(&cfg.Interpreter); err != nil {
		return fmt.Errorf("interpreter: %w", err)
	}

	seen := make(map[string]bool, len(cfg.SanitizeRules))
	for i := range cfg.SanitizeRules {
		rule := &cfg.SanitizeRules[i]
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("sanitize_rules[%d] (%s): %w", i, rule.Name, err)
		}
		if seen[rule.Name] {
			return fmt.Errorf("sanitize_rules[%d]: duplicate name %q", i, rule.Name)
		}
		seen[rule.Name] = true
	}

	if cfg.Sink.Suffix == "" {
		cfg.Sink.Suffix = DefaultSuffix
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			return fmt.Errorf("webhooks[%d] (%s): %w", i, cfg.Webhooks[i].DisplayName(), err)
		}
	}

	return nil
}

func validateInterpreter(ic *InterpreterConfig) error {
	ic.Command = strings.TrimSpace(ic.Command)
	if ic.Command == "" {
		return errors.New("command is required")
	}
	if len(ic.Args) == 0 {
		ic.Args = append([]string(nil), DefaultInterpreterArgs...)
	}
	if ic.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", ic.TimeoutSeconds)
	}
	if ic.TimeoutSeconds == 0 {
		ic.TimeoutSeconds = DefaultTimeoutSeconds
	}
	for _, kv := range ic.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("env entry %q must be KEY=VALUE", kv)
		}
	}
	return nil
}

func validateRule(rule *RuleConfig) error {
	if rule.Name == "" {
		return errors.New("name is required")
	}
	if rule.Pattern == "" {
		return errors.New("pattern is required")
	}

	compiled, err := sanitize.CompileRule(rule.Name, rule.Pattern, rule.Replacement, rule.Scope)
	if err != nil {
		return err
	}
	rule.compiled = compiled
	return nil
}

func validateLogging(lc *LoggingConfig) error {
	if lc.Level == "" {
		lc.Level = DefaultLogLevel
	}
	switch strings.ToLower(lc.Level) {
	case "debug", "info", "warn", "error":
		lc.Level = strings.ToLower(lc.Level)
	default:
		return fmt.Errorf("invalid level %q (must be debug, info, warn, or error)", lc.Level)
	}

	if lc.Format == "" {
		lc.Format = DefaultLogFormat
	}
	switch lc.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid format %q (must be console or json)", lc.Format)
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	// Validate trigger if specified
	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnChange, WebhookTriggerAlways, WebhookTriggerNever:
			// Valid
		default:
			return fmt.Errorf("invalid trigger %q (must be on_change, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnChange
	}

	if wh.TimeoutSeconds <= 0 {
		wh.TimeoutSeconds = DefaultWebhookTimeoutSeconds
	}

	if wh.Retries < 0 || wh.Retries > MaxWebhookRetries {
		return fmt.Errorf("retries must be between 0 and %d, got %d", MaxWebhookRetries, wh.Retries)
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
