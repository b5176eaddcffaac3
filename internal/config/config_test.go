package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaultConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(DefaultConfig) unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Context.CapacityTokens = 0
	cfg.Context.StopThreshold = 1.5
	cfg.Learning.ThresholdBytes = -1
	cfg.History.RetentionDays = -1
	cfg.Rules.ExtraDeny = []string{"(unclosed"}

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "config validation failed") {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"capacity_tokens", "stop_threshold", "threshold_bytes", "retention_days", "extra_deny"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q: %v", want, err)
		}
	}
}

func TestLoad_Precedence_DefaultsUserProjectEnvFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	project := t.TempDir()

	// User config: 100000
	userPath := filepath.Join(home, ".hookguard", "config.toml")
	if err := WriteValue(userPath, "context.capacity_tokens", 100000); err != nil {
		t.Fatalf("WriteValue user: %v", err)
	}

	// Project config: 150000
	projectPath := filepath.Join(project, ".hookguard", "config.toml")
	if err := WriteValue(projectPath, "context.capacity_tokens", 150000); err != nil {
		t.Fatalf("WriteValue project: %v", err)
	}

	// Env: 180000
	t.Setenv("HOOKGUARD_CAPACITY_TOKENS", "180000")

	// Flags: 190000
	cfg, err := Load(LoadOptions{
		ProjectDir: project,
		FlagOverrides: map[string]any{
			"context.capacity_tokens": 190000,
		},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Context.CapacityTokens != 190000 {
		t.Fatalf("capacity_tokens=%d want 190000", cfg.Context.CapacityTokens)
	}
}

func TestLoad_ProjectBeatsUser(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	project := t.TempDir()

	if err := WriteValue(filepath.Join(home, ".hookguard", "config.toml"), "learning.enabled", false); err != nil {
		t.Fatal(err)
	}
	if err := WriteValue(filepath.Join(project, ".hookguard", "config.toml"), "learning.enabled", true); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: project})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Learning.Enabled {
		t.Fatal("project config did not override user config")
	}
}

func TestLoad_InvalidEnvValueErrors(t *testing.T) {
	t.Setenv("HOOKGUARD_CAPACITY_TOKENS", "not-an-int")
	if _, err := Load(LoadOptions{ProjectDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_ConfigPathOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	override := filepath.Join(t.TempDir(), "custom.toml")
	if err := WriteValue(override, "history.retention_days", 7); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{ProjectDir: t.TempDir(), ConfigPath: override})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.History.RetentionDays != 7 {
		t.Fatalf("retention_days=%d want 7", cfg.History.RetentionDays)
	}
}

func TestMergeConfigFile(t *testing.T) {
	v := newTestViper()

	// Empty path is a no-op.
	if err := mergeConfigFile(v, ""); err != nil {
		t.Fatalf("mergeConfigFile(empty): %v", err)
	}

	// Missing file is a no-op.
	if err := mergeConfigFile(v, filepath.Join(t.TempDir(), "missing.toml")); err != nil {
		t.Fatalf("mergeConfigFile(missing): %v", err)
	}

	// Directory path is an error.
	if err := mergeConfigFile(v, t.TempDir()); err == nil {
		t.Fatalf("expected error for directory path")
	}

	// Invalid TOML is an error.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("context = [\n"), 0644); err != nil {
		t.Fatalf("write invalid toml: %v", err)
	}
	if err := mergeConfigFile(v, path); err == nil {
		t.Fatalf("expected error for invalid toml")
	}
}

func newTestViper() *viper.Viper {
	// Keep this in a helper to avoid importing viper in every test.
	// It also ensures defaults are seeded, mirroring Load().
	v := viper.New()
	setDefaults(v)
	return v
}

func TestConfigPathsAndProjectConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	u, p := ConfigPaths("/proj", "")
	if u != filepath.Join(home, ".hookguard", "config.toml") {
		t.Fatalf("unexpected user path: %q", u)
	}
	if p != filepath.Join("/proj", ".hookguard", "config.toml") {
		t.Fatalf("unexpected project path: %q", p)
	}

	if got := projectConfigPath("", ""); got != filepath.Join(".hookguard", "config.toml") {
		t.Fatalf("projectConfigPath(empty)=%q", got)
	}
	if got := projectConfigPath("/proj", "/override.toml"); got != "/override.toml" {
		t.Fatalf("projectConfigPath(override)=%q", got)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue("context.capacity_tokens", "150000")
	if err != nil {
		t.Fatalf("ParseValue int: %v", err)
	}
	if v.(int) != 150000 {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("context.stop_threshold", "0.85")
	if err != nil {
		t.Fatalf("ParseValue float: %v", err)
	}
	if v.(float64) != 0.85 {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("learning.enabled", "true")
	if err != nil {
		t.Fatalf("ParseValue bool: %v", err)
	}
	if v.(bool) != true {
		t.Fatalf("unexpected value: %#v", v)
	}

	v, err = ParseValue("rules.extra_deny", "a, , b")
	if err != nil {
		t.Fatalf("ParseValue slice: %v", err)
	}
	if !reflect.DeepEqual(v, []string{"a", "b"}) {
		t.Fatalf("unexpected slice: %#v", v)
	}

	v, err = ParseValue("history.database_path", "/tmp/history.db")
	if err != nil {
		t.Fatalf("ParseValue string: %v", err)
	}
	if v.(string) != "/tmp/history.db" {
		t.Fatalf("unexpected value: %#v", v)
	}

	if _, err := parseValueByKind("x", valueKind(123)); err == nil {
		t.Fatalf("expected error for unsupported value kind")
	}

	if _, err := ParseValue("nope.nope", "x"); err == nil {
		t.Fatalf("expected unsupported key error")
	}
}

func TestGetValue(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		key  string
		want any
	}{
		{"context.capacity_tokens", cfg.Context.CapacityTokens},
		{"context.stop_threshold", cfg.Context.StopThreshold},
		{"rules.enabled", cfg.Rules.Enabled},
		{"rules.extra_deny", cfg.Rules.ExtraDeny},
		{"rules.extra_caution", cfg.Rules.ExtraCaution},
		{"completion.enabled", cfg.Completion.Enabled},
		{"audit.enabled", cfg.Audit.Enabled},
		{"state.tracker_enabled", cfg.State.TrackerEnabled},
		{"state.setup_enabled", cfg.State.SetupEnabled},
		{"learning.enabled", cfg.Learning.Enabled},
		{"learning.threshold_bytes", cfg.Learning.ThresholdBytes},
		{"history.enabled", cfg.History.Enabled},
		{"history.database_path", cfg.History.DatabasePath},
		{"history.retention_days", cfg.History.RetentionDays},

		{"context", cfg.Context},
		{"rules", cfg.Rules},
		{"completion", cfg.Completion},
		{"audit", cfg.Audit},
		{"state", cfg.State},
		{"learning", cfg.Learning},
		{"history", cfg.History},
	}

	for _, tc := range cases {
		got, ok := GetValue(cfg, tc.key)
		if !ok {
			t.Fatalf("GetValue(%q) not found", tc.key)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("GetValue(%q)=%#v want %#v", tc.key, got, tc.want)
		}
	}

	if _, ok := GetValue(cfg, ""); ok {
		t.Fatal("GetValue(\"\") should not resolve")
	}
	if _, ok := GetValue(cfg, "nope.nope"); ok {
		t.Fatal("GetValue(nope.nope) should not resolve")
	}
}

func TestWriteValuePreservesOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := WriteValue(path, "context.capacity_tokens", 150000); err != nil {
		t.Fatalf("WriteValue: %v", err)
	}
	if err := WriteValue(path, "context.stop_threshold", 0.8); err != nil {
		t.Fatalf("WriteValue second key: %v", err)
	}
	if err := WriteValue(path, "learning.enabled", false); err != nil {
		t.Fatalf("WriteValue other section: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"capacity_tokens = 150000", "stop_threshold = 0.8", "enabled = false"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config missing %q:\n%s", want, data)
		}
	}

	if err := WriteValue(path, "flat", 1); err == nil {
		t.Error("WriteValue accepted a non-dotted key")
	}
}
