// Package config provides configuration loading and validation for mod2doctest.
package config

import (
	"regexp"
	"time"

	"github.com/cart0113/mod2doctest/pkg/dialect"
	"github.com/cart0113/mod2doctest/pkg/sanitize"
)

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	// Pipeline toggles. All default to true.
	EllipseMemoryIDs        bool `yaml:"ellipse_memory_ids" toml:"ellipse_memory_ids"`
	EllipseFilesystemPaths  bool `yaml:"ellipse_filesystem_paths" toml:"ellipse_filesystem_paths"`
	EllipseTracebacks       bool `yaml:"ellipse_tracebacks" toml:"ellipse_tracebacks"`
	CollapseBlankPromptRuns bool `yaml:"collapse_blank_prompt_runs" toml:"collapse_blank_prompt_runs"`
	EmitTitleBlock          bool `yaml:"emit_title_block" toml:"emit_title_block"`
	EmitSelfTestTrailer     bool `yaml:"emit_self_test_trailer" toml:"emit_self_test_trailer"`
	StripMainGuardBlocks    bool `yaml:"strip_main_guard_blocks" toml:"strip_main_guard_blocks"`

	// Dialect names the interactive shell ("python").
	Dialect string `yaml:"dialect" toml:"dialect"`

	// ContinuationKeywords overrides the dialect's block-continuation keywords.
	ContinuationKeywords []string `yaml:"continuation_keywords,omitempty" toml:"continuation_keywords,omitempty"`

	// Markers overrides the documentation comment markers.
	Markers dialect.Markers `yaml:"markers" toml:"markers"`

	// TabWidth is the number of spaces a tab expands to.
	TabWidth int `yaml:"tab_width" toml:"tab_width"`

	Interpreter   InterpreterConfig `yaml:"interpreter" toml:"interpreter"`
	SanitizeRules []RuleConfig      `yaml:"sanitize_rules,omitempty" toml:"sanitize_rules,omitempty"`
	Sink          SinkConfig        `yaml:"sink" toml:"sink"`
	Webhooks      []WebhookConfig   `yaml:"webhooks,omitempty" toml:"webhooks,omitempty"`
	Logging       LoggingConfig     `yaml:"logging" toml:"logging"`

	// dialect is the resolved dialect (populated during validation).
	dialect *dialect.Dialect
}

// ResolvedDialect returns the dialect with configured overrides applied.
func (c *Config) ResolvedDialect() *dialect.Dialect {
	return c.dialect
}

// SanitizeOptions returns the built-in sanitizer toggles.
func (c *Config) SanitizeOptions() sanitize.Options {
	return sanitize.Options{
		MemoryIDs:  c.EllipseMemoryIDs,
		Paths:      c.EllipseFilesystemPaths,
		Tracebacks: c.EllipseTracebacks,
	}
}

// ExtraRules returns the compiled custom sanitize rules.
func (c *Config) ExtraRules() []sanitize.Rule {
	rules := make([]sanitize.Rule, 0, len(c.SanitizeRules))
	for i := range c.SanitizeRules {
		rules = append(rules, c.SanitizeRules[i].compiled)
	}
	return rules
}

// InterpreterConfig defines how the interactive shell is started.
type InterpreterConfig struct {
	// Command is the interpreter binary name or path.
	Command string `yaml:"command" toml:"command"`

	// Args are passed to the interpreter. They must put it in interactive
	// mode reading from stdin.
	Args []string `yaml:"args" toml:"args"`

	// TimeoutSeconds bounds a single run.
	TimeoutSeconds int `yaml:"timeout_seconds" toml:"timeout_seconds"`

	// Env holds extra KEY=VALUE pairs.
	Env []string `yaml:"env,omitempty" toml:"env,omitempty"`
}

// Timeout returns the run timeout as a duration.
func (i InterpreterConfig) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// RuleConfig defines an extra sanitize rule.
type RuleConfig struct {
	Name        string `yaml:"name" toml:"name"`
	Pattern     string `yaml:"pattern" toml:"pattern"`
	Replacement string `yaml:"replacement" toml:"replacement"`
	Scope       string `yaml:"scope,omitempty" toml:"scope,omitempty"` // line or document

	// compiled is the rule built during validation.
	compiled sanitize.Rule
}

// CompiledPattern returns the compiled pattern.
func (r *RuleConfig) CompiledPattern() *regexp.Regexp {
	return r.compiled.Pattern
}

// SinkConfig defines how documents are written.
type SinkConfig struct {
	// Confirm asks before overwriting a destination that differs.
	Confirm bool `yaml:"confirm" toml:"confirm"`

	// Lock takes an advisory lock on the destination while writing.
	Lock bool `yaml:"lock" toml:"lock"`

	// Difftool is an external command run as <difftool> <old> <new>.
	// Empty uses the built-in unified diff.
	Difftool     string   `yaml:"difftool,omitempty" toml:"difftool,omitempty"`
	DifftoolArgs []string `yaml:"difftool_args,omitempty" toml:"difftool_args,omitempty"`

	// Suffix is appended to the source base name to form the default
	// destination ("mod.py" -> "mod_doctest.py").
	Suffix string `yaml:"suffix" toml:"suffix"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnChange fires when a document was created or rewritten (default).
	WebhookTriggerOnChange WebhookTrigger = "on_change"
	// WebhookTriggerAlways fires after every conversion.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint that receives finished documents.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url" toml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty" toml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_change" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty" toml:"trigger,omitempty"`

	// TimeoutSeconds is the HTTP request timeout.
	// Defaults to 10 if not specified.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`

	// Retries is how many times a failed delivery is repeated after a
	// transport error or a 5xx response.
	Retries int `yaml:"retries,omitempty" toml:"retries,omitempty"`
}

// Timeout returns the request timeout as a duration.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// DisplayName returns the name, or the URL when no name is set.
func (w WebhookConfig) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return w.URL
}

// LoggingConfig controls diagnostic logging on stderr.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // console or json
}
