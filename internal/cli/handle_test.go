package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/hookguard/hookguard/internal/db"
	"github.com/hookguard/hookguard/internal/testutil"
)

// runHandleWith feeds stdin to a fresh handle command and returns stdout.
func runHandleWith(t *testing.T, projectDir, stdin string) string {
	t.Helper()
	defer resetGlobalFlags()
	resetGlobalFlags()
	flagProjectDir = projectDir
	// Keep the user-level config out of the picture.
	t.Setenv("HOME", t.TempDir())

	cmd := &cobra.Command{
		Use: "handle",
		Run: func(cmd *cobra.Command, args []string) { runHandle(cmd) },
	}
	cmd.SetIn(strings.NewReader(stdin))
	stdout, _, err := executeCommand(cmd)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return stdout
}

func decodeResponse(t *testing.T, raw string) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", raw, err)
	}
	return resp
}

func TestHandleMalformedStdinEmitsEmpty(t *testing.T) {
	stdout := runHandleWith(t, t.TempDir(), "not json at all")
	resp := decodeResponse(t, stdout)
	if len(resp) != 0 {
		t.Errorf("malformed stdin produced %v, want {}", resp)
	}
}

func TestHandleDeniesDangerousCommand(t *testing.T) {
	h := testutil.NewHarness(t)
	ev := testutil.BashEvent(t, "rm -rf /")
	stdout := runHandleWith(t, h.ProjectDir, testutil.EventJSON(t, ev))

	resp := decodeResponse(t, stdout)
	hso, ok := resp["hookSpecificOutput"].(map[string]any)
	if !ok {
		t.Fatalf("response %v missing hookSpecificOutput", resp)
	}
	if hso["permissionDecision"] != "deny" {
		t.Errorf("permissionDecision = %v, want deny", hso["permissionDecision"])
	}
	reason, _ := hso["permissionDecisionReason"].(string)
	if !strings.Contains(reason, "Recursive delete from root") {
		t.Errorf("reason %q missing category", reason)
	}

	// The decision lands in the project history database.
	counts, err := h.DB.CountByOutcome()
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[db.OutcomeDeny] != 1 {
		t.Errorf("deny count = %d, want 1", counts[db.OutcomeDeny])
	}
}

func TestHandleAllowsCleanCommand(t *testing.T) {
	stdout := runHandleWith(t, t.TempDir(), `{
		"hook_event_name": "PreToolUse",
		"tool_name": "Bash",
		"tool_input": {"command": "ls -la"}
	}`)
	resp := decodeResponse(t, stdout)
	if len(resp) != 0 {
		t.Errorf("clean command produced %v, want {}", resp)
	}
}

func TestHandleStopLoopGuard(t *testing.T) {
	stdout := runHandleWith(t, t.TempDir(), `{
		"hook_event_name": "Stop",
		"stop_hook_active": true
	}`)
	resp := decodeResponse(t, stdout)
	if len(resp) != 0 {
		t.Errorf("active stop hook produced %v, want {}", resp)
	}
}

func TestHandleSessionStartScaffolds(t *testing.T) {
	project := t.TempDir()
	stdout := runHandleWith(t, project, `{
		"hook_event_name": "SessionStart",
		"session_id": "sess-2"
	}`)
	resp := decodeResponse(t, stdout)
	if len(resp) != 0 {
		t.Errorf("SessionStart produced %v, want {}", resp)
	}
	if _, err := os.Stat(filepath.Join(project, "STATE.md")); err != nil {
		t.Errorf("STATE.md not scaffolded: %v", err)
	}
}
