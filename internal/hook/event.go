// Package hook defines the wire records exchanged with the Claude Code
// hook runtime: one JSON event on stdin, one JSON decision on stdout.
package hook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Event names as delivered in hook_event_name.
const (
	EventPreToolUse         = "PreToolUse"
	EventPostToolUse        = "PostToolUse"
	EventPostToolUseFailure = "PostToolUseFailure"
	EventStop               = "Stop"
	EventPreCompact         = "PreCompact"
	EventSessionStart       = "SessionStart"
	EventSessionEnd         = "SessionEnd"
	EventUserPromptSubmit   = "UserPromptSubmit"
	EventSubagentStart      = "SubagentStart"
	EventSubagentStop       = "SubagentStop"
	EventTaskCompleted      = "TaskCompleted"
	EventTeammateIdle       = "TeammateIdle"
	EventNotification       = "Notification"
)

// ContextWindow is the inline usage snapshot attached to events by newer
// runtime versions. All fields are optional; a snapshot without a usable
// percentage is treated as absent.
type ContextWindow struct {
	UsedPercentage  *float64 `json:"used_percentage,omitempty"`
	RemainingTokens *int     `json:"remaining_tokens,omitempty"`
	TotalTokens     *int     `json:"total_tokens,omitempty"`
}

// Event is one inbound hook event record. Absent fields mean "feature not
// present", never malformed input.
type Event struct {
	HookEventName  string          `json:"hook_event_name"`
	SessionID      string          `json:"session_id,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	CWD            string          `json:"cwd,omitempty"`
	PermissionMode string          `json:"permission_mode,omitempty"`
	StopHookActive bool            `json:"stop_hook_active,omitempty"`
	Trigger        string          `json:"trigger,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	ContextWindow  *ContextWindow  `json:"context_window,omitempty"`

	// Notification events.
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`

	// Subagent lifecycle.
	AgentID             string `json:"agent_id,omitempty"`
	AgentType           string `json:"agent_type,omitempty"`
	AgentTranscriptPath string `json:"agent_transcript_path,omitempty"`

	// Agent teams events.
	TaskID       string `json:"task_id,omitempty"`
	TaskSubject  string `json:"task_subject,omitempty"`
	CompletedBy  string `json:"completed_by,omitempty"`
	TeammateID   string `json:"teammate_id,omitempty"`
	TeammateName string `json:"teammate_name,omitempty"`
	TasksDone    int    `json:"tasks_completed,omitempty"`
}

// ReadEvent decodes a single event record from r.
func ReadEvent(r io.Reader) (*Event, error) {
	var ev Event
	dec := json.NewDecoder(r)
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("decoding hook event: %w", err)
	}
	return &ev, nil
}

// Command extracts the Bash command from tool_input, or "" when absent.
func (e *Event) Command() string {
	if len(e.ToolInput) == 0 {
		return ""
	}
	var in struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(e.ToolInput, &in); err != nil {
		return ""
	}
	return in.Command
}

// ToolResponseText flattens tool_response into a string for pattern
// matching. The runtime delivers it as either a bare string or an object
// with one of several output-bearing fields.
func (e *Event) ToolResponseText() string {
	if len(e.ToolResponse) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.ToolResponse, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(e.ToolResponse, &obj); err != nil {
		return string(e.ToolResponse)
	}
	for _, field := range []string{"stdout", "output", "content", "result", "message", "stderr", "error"} {
		if v, ok := obj[field].(string); ok && v != "" {
			return v
		}
	}
	return string(e.ToolResponse)
}

// Snapshot returns the inline usage snapshot when it carries a usable
// percentage, else nil. Snapshots with totals but no percentage fall
// through to transcript re-derivation.
func (e *Event) Snapshot() *ContextWindow {
	if e.ContextWindow == nil || e.ContextWindow.UsedPercentage == nil {
		return nil
	}
	return e.ContextWindow
}
