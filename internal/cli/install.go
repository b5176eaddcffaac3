package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/hook"
	"github.com/hookguard/hookguard/internal/output"
)

var (
	flagSettingsPath string
	flagForce        bool
)

// hookEvents lists every event hookguard handles and the matcher each
// settings entry carries. Tool events are scoped to Bash; the rest run
// unconditionally.
var hookEvents = []struct {
	Name    string
	Matcher string
}{
	{hook.EventPreToolUse, "Bash"},
	{hook.EventPostToolUse, "Bash"},
	{hook.EventPostToolUseFailure, "Bash"},
	{hook.EventStop, ""},
	{hook.EventPreCompact, ""},
	{hook.EventSessionStart, ""},
	{hook.EventSessionEnd, ""},
	{hook.EventUserPromptSubmit, ""},
	{hook.EventSubagentStart, ""},
	{hook.EventSubagentStop, ""},
	{hook.EventTaskCompleted, ""},
	{hook.EventTeammateIdle, ""},
	{hook.EventNotification, ""},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register hookguard in Claude Code settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		added, err := installHooks(path, handleCommand(), flagForce)
		if err != nil {
			return err
		}
		w := newWriter()
		if added == 0 {
			w.Success(fmt.Sprintf("hooks already installed in %s", path))
		} else {
			w.Success(fmt.Sprintf("installed %d hook entries in %s", added, path))
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove hookguard from Claude Code settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		removed, err := uninstallHooks(path)
		if err != nil {
			return err
		}
		newWriter().Success(fmt.Sprintf("removed %d hook entries from %s", removed, path))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which events have hookguard installed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		installed, err := hookStatus(path)
		if err != nil {
			return err
		}
		if GetOutput() != output.FormatText {
			return newWriter().Write(map[string]any{
				"settings_path": path,
				"events":        installed,
			})
		}
		rows := make([][]string, 0, len(hookEvents))
		for _, he := range hookEvents {
			mark := "-"
			if installed[he.Name] {
				mark = "✓"
			}
			rows = append(rows, []string{he.Name, mark})
		}
		output.OutputTable([]string{"EVENT", "INSTALLED"}, rows)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{installCmd, uninstallCmd, statusCmd} {
		cmd.Flags().StringVar(&flagSettingsPath, "settings", "", "path to settings.json (default: ~/.claude/settings.json)")
	}
	installCmd.Flags().BoolVar(&flagForce, "force", false, "rewrite existing hookguard entries")
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(statusCmd)
}

func settingsPath() (string, error) {
	if flagSettingsPath != "" {
		return flagSettingsPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}

// handleCommand is the command line wired into each settings entry.
func handleCommand() string {
	if exe, err := os.Executable(); err == nil {
		return exe + " handle"
	}
	return "hookguard handle"
}

func readSettings(path string) (map[string]any, error) {
	settings := map[string]any{}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// installHooks adds a hookguard entry for every event, preserving
// unrelated entries. Returns the number of entries added or rewritten.
func installHooks(path, command string, force bool) (int, error) {
	settings, err := readSettings(path)
	if err != nil {
		return 0, err
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}

	added := 0
	for _, he := range hookEvents {
		entries, _ := hooks[he.Name].([]any)

		if idx := findGuardEntry(entries); idx >= 0 {
			if !force {
				continue
			}
			entries = append(entries[:idx], entries[idx+1:]...)
		}
		entries = append(entries, guardEntry(he.Matcher, command))
		hooks[he.Name] = entries
		added++
	}

	if added == 0 {
		return 0, nil
	}
	settings["hooks"] = hooks
	return added, writeSettings(path, settings)
}

// uninstallHooks removes every hookguard entry, leaving other hooks alone.
func uninstallHooks(path string) (int, error) {
	settings, err := readSettings(path)
	if err != nil {
		return 0, err
	}
	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		return 0, nil
	}

	removed := 0
	for event, raw := range hooks {
		entries, ok := raw.([]any)
		if !ok {
			continue
		}
		kept := entries[:0]
		for _, entry := range entries {
			if isGuardEntry(entry) {
				removed++
				continue
			}
			kept = append(kept, entry)
		}
		if len(kept) == 0 {
			delete(hooks, event)
		} else {
			hooks[event] = kept
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if len(hooks) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = hooks
	}
	return removed, writeSettings(path, settings)
}

// hookStatus reports, per event, whether a hookguard entry is present.
func hookStatus(path string) (map[string]bool, error) {
	settings, err := readSettings(path)
	if err != nil {
		return nil, err
	}
	hooks, _ := settings["hooks"].(map[string]any)

	installed := make(map[string]bool, len(hookEvents))
	for _, he := range hookEvents {
		entries, _ := hooks[he.Name].([]any)
		installed[he.Name] = findGuardEntry(entries) >= 0
	}
	return installed, nil
}

func guardEntry(matcher, command string) map[string]any {
	entry := map[string]any{
		"hooks": []any{
			map[string]any{"type": "command", "command": command},
		},
	}
	if matcher != "" {
		entry["matcher"] = matcher
	}
	return entry
}

func findGuardEntry(entries []any) int {
	for i, entry := range entries {
		if isGuardEntry(entry) {
			return i
		}
	}
	return -1
}

func isGuardEntry(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	inner, _ := m["hooks"].([]any)
	for _, h := range inner {
		hm, ok := h.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := hm["command"].(string)
		if strings.Contains(cmd, "hookguard") {
			return true
		}
	}
	return false
}
