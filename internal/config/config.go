// Package config loads hookguard configuration with the precedence
// defaults < user config < project config < environment < flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// Config is the full hookguard configuration.
type Config struct {
	Context    ContextConfig    `mapstructure:"context" toml:"context"`
	Rules      RulesConfig      `mapstructure:"rules" toml:"rules"`
	Completion CompletionConfig `mapstructure:"completion" toml:"completion"`
	Audit      AuditConfig      `mapstructure:"audit" toml:"audit"`
	State      StateConfig      `mapstructure:"state" toml:"state"`
	Learning   LearningConfig   `mapstructure:"learning" toml:"learning"`
	History    HistoryConfig    `mapstructure:"history" toml:"history"`
}

// ContextConfig governs context-usage estimation.
type ContextConfig struct {
	CapacityTokens int     `mapstructure:"capacity_tokens" toml:"capacity_tokens"`
	StopThreshold  float64 `mapstructure:"stop_threshold" toml:"stop_threshold"`
}

// RulesConfig governs command classification.
type RulesConfig struct {
	Enabled      bool     `mapstructure:"enabled" toml:"enabled"`
	ExtraDeny    []string `mapstructure:"extra_deny" toml:"extra_deny"`
	ExtraCaution []string `mapstructure:"extra_caution" toml:"extra_caution"`
}

// CompletionConfig governs completion-claim verification.
type CompletionConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// AuditConfig governs the append-only event logs.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// StateConfig governs STATE.md tracking and project scaffolding.
type StateConfig struct {
	TrackerEnabled bool `mapstructure:"tracker_enabled" toml:"tracker_enabled"`
	SetupEnabled   bool `mapstructure:"setup_enabled" toml:"setup_enabled"`
}

// LearningConfig governs the LEARNINGS.md capture prompt.
type LearningConfig struct {
	Enabled        bool  `mapstructure:"enabled" toml:"enabled"`
	ThresholdBytes int64 `mapstructure:"threshold_bytes" toml:"threshold_bytes"`
}

// HistoryConfig governs the SQLite decision history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" toml:"enabled"`
	DatabasePath  string `mapstructure:"database_path" toml:"database_path"`
	RetentionDays int    `mapstructure:"retention_days" toml:"retention_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Context: ContextConfig{
			CapacityTokens: 200000,
			StopThreshold:  0.70,
		},
		Rules:      RulesConfig{Enabled: true},
		Completion: CompletionConfig{Enabled: true},
		Audit:      AuditConfig{Enabled: true},
		State: StateConfig{
			TrackerEnabled: true,
			SetupEnabled:   true,
		},
		Learning: LearningConfig{
			Enabled:        true,
			ThresholdBytes: 50000,
		},
		History: HistoryConfig{
			Enabled:       true,
			RetentionDays: 30,
		},
	}
}

// Validate checks the config and aggregates every problem into one error.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Context.CapacityTokens <= 0 {
		problems = append(problems, "context.capacity_tokens must be positive")
	}
	if cfg.Context.StopThreshold <= 0 || cfg.Context.StopThreshold > 1 {
		problems = append(problems, "context.stop_threshold must be in (0, 1]")
	}
	if cfg.Learning.ThresholdBytes < 0 {
		problems = append(problems, "learning.threshold_bytes must not be negative")
	}
	if cfg.History.RetentionDays < 0 {
		problems = append(problems, "history.retention_days must not be negative")
	}
	for _, p := range cfg.Rules.ExtraDeny {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			problems = append(problems, fmt.Sprintf("rules.extra_deny pattern %q: %v", p, err))
		}
	}
	for _, p := range cfg.Rules.ExtraCaution {
		if _, err := regexp.Compile("(?i)" + p); err != nil {
			problems = append(problems, fmt.Sprintf("rules.extra_caution pattern %q: %v", p, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ProjectDir is the project root; empty means the current directory.
	ProjectDir string
	// ConfigPath overrides the project config file location.
	ConfigPath string
	// FlagOverrides are explicit CLI flag values, highest precedence.
	FlagOverrides map[string]any
}

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"context.capacity_tokens":  "HOOKGUARD_CAPACITY_TOKENS",
	"context.stop_threshold":   "HOOKGUARD_STOP_THRESHOLD",
	"rules.enabled":            "HOOKGUARD_RULES_ENABLED",
	"completion.enabled":       "HOOKGUARD_COMPLETION_ENABLED",
	"audit.enabled":            "HOOKGUARD_AUDIT_ENABLED",
	"state.tracker_enabled":    "HOOKGUARD_STATE_TRACKER",
	"state.setup_enabled":      "HOOKGUARD_STATE_SETUP",
	"learning.enabled":         "HOOKGUARD_LEARNING_ENABLED",
	"learning.threshold_bytes": "HOOKGUARD_LEARNING_THRESHOLD",
	"history.enabled":          "HOOKGUARD_HISTORY_ENABLED",
	"history.database_path":    "HOOKGUARD_DB",
	"history.retention_days":   "HOOKGUARD_RETENTION_DAYS",
}

// Load builds the effective configuration.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)

	userPath, projectPath := ConfigPaths(opts.ProjectDir, opts.ConfigPath)
	if err := mergeConfigFile(v, userPath); err != nil {
		return nil, err
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return nil, err
	}

	for key, envVar := range envBindings {
		raw, ok := os.LookupEnv(envVar)
		if !ok || raw == "" {
			continue
		}
		parsed, err := ParseValue(key, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", envVar, err)
		}
		v.Set(key, parsed)
	}

	for key, value := range opts.FlagOverrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("context.capacity_tokens", def.Context.CapacityTokens)
	v.SetDefault("context.stop_threshold", def.Context.StopThreshold)
	v.SetDefault("rules.enabled", def.Rules.Enabled)
	v.SetDefault("rules.extra_deny", []string{})
	v.SetDefault("rules.extra_caution", []string{})
	v.SetDefault("completion.enabled", def.Completion.Enabled)
	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("state.tracker_enabled", def.State.TrackerEnabled)
	v.SetDefault("state.setup_enabled", def.State.SetupEnabled)
	v.SetDefault("learning.enabled", def.Learning.Enabled)
	v.SetDefault("learning.threshold_bytes", def.Learning.ThresholdBytes)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.database_path", def.History.DatabasePath)
	v.SetDefault("history.retention_days", def.History.RetentionDays)
}

// mergeConfigFile merges a TOML file into v. Empty paths and missing
// files are no-ops; unreadable or invalid files are errors.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking config %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ConfigPaths returns the user and project config file locations.
func ConfigPaths(projectDir, configPath string) (userPath, projectPath string) {
	home, err := os.UserHomeDir()
	if err == nil {
		userPath = filepath.Join(home, ".hookguard", "config.toml")
	}
	return userPath, projectConfigPath(projectDir, configPath)
}

func projectConfigPath(projectDir, configPath string) string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(projectDir, ".hookguard", "config.toml")
}

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindInt64
	kindFloat
	kindBool
	kindStringSlice
)

// keyKinds declares the parseable config keys and their types.
var keyKinds = map[string]valueKind{
	"context.capacity_tokens":  kindInt,
	"context.stop_threshold":   kindFloat,
	"rules.enabled":            kindBool,
	"rules.extra_deny":         kindStringSlice,
	"rules.extra_caution":      kindStringSlice,
	"completion.enabled":       kindBool,
	"audit.enabled":            kindBool,
	"state.tracker_enabled":    kindBool,
	"state.setup_enabled":      kindBool,
	"learning.enabled":         kindBool,
	"learning.threshold_bytes": kindInt64,
	"history.enabled":          kindBool,
	"history.database_path":    kindString,
	"history.retention_days":   kindInt,
}

// ParseValue converts a raw string to the typed value for a known key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := keyKinds[key]
	if !ok {
		return nil, fmt.Errorf("unsupported config key %q", key)
	}
	return parseValueByKind(raw, kind)
}

func parseValueByKind(raw string, kind valueKind) (any, error) {
	switch kind {
	case kindString:
		return raw, nil
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case kindInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case kindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", raw)
		}
		return f, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return b, nil
	case kindStringSlice:
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	default:
		return nil, errors.New("unsupported value kind")
	}
}

// GetValue looks up a dotted key on the config, returning section structs
// for section-level keys.
func GetValue(cfg *Config, key string) (any, bool) {
	switch key {
	case "context":
		return cfg.Context, true
	case "context.capacity_tokens":
		return cfg.Context.CapacityTokens, true
	case "context.stop_threshold":
		return cfg.Context.StopThreshold, true
	case "rules":
		return cfg.Rules, true
	case "rules.enabled":
		return cfg.Rules.Enabled, true
	case "rules.extra_deny":
		return cfg.Rules.ExtraDeny, true
	case "rules.extra_caution":
		return cfg.Rules.ExtraCaution, true
	case "completion":
		return cfg.Completion, true
	case "completion.enabled":
		return cfg.Completion.Enabled, true
	case "audit":
		return cfg.Audit, true
	case "audit.enabled":
		return cfg.Audit.Enabled, true
	case "state":
		return cfg.State, true
	case "state.tracker_enabled":
		return cfg.State.TrackerEnabled, true
	case "state.setup_enabled":
		return cfg.State.SetupEnabled, true
	case "learning":
		return cfg.Learning, true
	case "learning.enabled":
		return cfg.Learning.Enabled, true
	case "learning.threshold_bytes":
		return cfg.Learning.ThresholdBytes, true
	case "history":
		return cfg.History, true
	case "history.enabled":
		return cfg.History.Enabled, true
	case "history.database_path":
		return cfg.History.DatabasePath, true
	case "history.retention_days":
		return cfg.History.RetentionDays, true
	default:
		return nil, false
	}
}

// WriteValue sets a dotted key in the TOML file at path, creating the
// file and parent directories as needed. Other keys are preserved.
func WriteValue(path, key string, value any) error {
	parts := strings.Split(key, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("key %q must be section.field", key)
	}

	doc := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	section, ok := doc[parts[0]].(map[string]any)
	if !ok {
		section = map[string]any{}
		doc[parts[0]] = section
	}
	section[parts[1]] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
