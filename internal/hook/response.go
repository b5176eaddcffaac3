package hook

import (
	"encoding/json"
	"io"
)

// Permission decisions for PreToolUse hookSpecificOutput.
const (
	PermissionAllow = "allow"
	PermissionDeny  = "deny"
)

// DecisionBlock is the decision value that blocks a Stop/PreCompact event.
const DecisionBlock = "block"

// HookSpecificOutput carries the PreToolUse permission verdict.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision,omitempty"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext        string `json:"additionalContext,omitempty"`
}

// Response is the single outbound decision record. The zero value encodes
// as {} — the silent pass-through every handler defaults to.
type Response struct {
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`

	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`

	// Explicit error surface, distinct from the silent empty response so
	// the caller can tell "nothing to report" from "transcript unreadable".
	Error          string `json:"error,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	InputPreview   string `json:"input_preview,omitempty"`
}

// Empty is the silent pass-through decision.
func Empty() *Response {
	return &Response{}
}

// Block builds a blocking decision with the given reason.
func Block(reason string) *Response {
	return &Response{Decision: DecisionBlock, Reason: reason}
}

// Deny builds a PreToolUse deny verdict with reason and advisory context.
func Deny(reason, context string) *Response {
	return &Response{
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:            EventPreToolUse,
			PermissionDecision:       PermissionDeny,
			PermissionDecisionReason: reason,
			AdditionalContext:        context,
		},
	}
}

// Allow builds a PreToolUse allow verdict. Context is the joined caution
// notes; empty context yields the bare silent allow.
func Allow(context string) *Response {
	if context == "" {
		return Empty()
	}
	return &Response{
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:      EventPreToolUse,
			PermissionDecision: PermissionAllow,
			AdditionalContext:  context,
		},
	}
}

// Errorf builds an explicit error record for surfaced read/parse failures.
func Errorf(msg, transcriptPath string) *Response {
	return &Response{Error: msg, TranscriptPath: transcriptPath}
}

// IsBlocking reports whether the response stops the in-flight action.
func (r *Response) IsBlocking() bool {
	if r == nil {
		return false
	}
	if r.Decision == DecisionBlock {
		return true
	}
	return r.HookSpecificOutput != nil && r.HookSpecificOutput.PermissionDecision == PermissionDeny
}

// Write encodes the response as a single JSON line on w.
func (r *Response) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}
