package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hookguard/hookguard/internal/db"
	"github.com/hookguard/hookguard/internal/hook"
)

// DecisionOption customizes a test decision.
type DecisionOption func(*db.Decision)

// DecisionWithCommand sets the classified command.
func DecisionWithCommand(cmd string) DecisionOption {
	return func(d *db.Decision) {
		d.Command = cmd
	}
}

// DecisionWithOutcome sets the stored outcome.
func DecisionWithOutcome(outcome string) DecisionOption {
	return func(d *db.Decision) {
		d.Decision = outcome
	}
}

// DecisionWithEvent sets the originating hook event.
func DecisionWithEvent(event string) DecisionOption {
	return func(d *db.Decision) {
		d.Event = event
	}
}

// MakeDecision creates and inserts a decision into the DB.
func MakeDecision(t *testing.T, database *db.DB, opts ...DecisionOption) *db.Decision {
	t.Helper()

	d := &db.Decision{
		SessionID: "sess-" + randHex(6),
		Event:     hook.EventPreToolUse,
		Tool:      "Bash",
		Command:   "echo test",
		Decision:  db.OutcomeAllow,
	}
	for _, opt := range opts {
		opt(d)
	}
	RequireNoError(t, database.InsertDecision(d), "insert decision")
	return d
}

// WriteTranscript writes JSONL lines to a temp transcript and returns its
// path.
func WriteTranscript(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	content := strings.Join(lines, "\n") + "\n"
	RequireNoError(t, os.WriteFile(path, []byte(content), 0o644), "write transcript")
	return path
}

// EventJSON marshals a hook event for feeding to stdin-style readers.
func EventJSON(t *testing.T, ev *hook.Event) string {
	t.Helper()

	data, err := json.Marshal(ev)
	RequireNoError(t, err, "marshal event")
	return string(data)
}

// BashEvent builds a PreToolUse event carrying a Bash command.
func BashEvent(t *testing.T, command string) *hook.Event {
	t.Helper()

	input, err := json.Marshal(map[string]string{"command": command})
	RequireNoError(t, err, "marshal tool input")
	return &hook.Event{
		HookEventName: hook.EventPreToolUse,
		SessionID:     "sess-" + randHex(6),
		ToolName:      "Bash",
		ToolInput:     input,
	}
}

func randHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
