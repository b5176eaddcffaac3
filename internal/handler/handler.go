// Package handler routes inbound hook events to their policies and
// produces the single outbound decision.
package handler

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/hookguard/hookguard/internal/audit"
	"github.com/hookguard/hookguard/internal/config"
	"github.com/hookguard/hookguard/internal/db"
	"github.com/hookguard/hookguard/internal/hook"
	"github.com/hookguard/hookguard/internal/rules"
	"github.com/hookguard/hookguard/internal/state"
	"github.com/hookguard/hookguard/internal/transcript"
)

// Options configures a Handler. History and Audit may be nil to disable
// recording.
type Options struct {
	ProjectDir string
	Config     *config.Config
	Logger     *log.Logger
	History    *db.DB
	Audit      *audit.Logger
}

// Handler evaluates hook events. Safe for a single event per process;
// hook invocations are one process each.
type Handler struct {
	projectDir string
	cfg        *config.Config
	table      *rules.Table
	logger     *log.Logger
	history    *db.DB
	audit      *audit.Logger

	now func() time.Time
}

// New builds a Handler, compiling any configured extra rules.
func New(opts Options) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	table := rules.Default()
	for _, p := range cfg.Rules.ExtraDeny {
		if err := table.AddRule(rules.SeverityDeny, p, "Configured deny rule", ""); err != nil {
			return nil, err
		}
	}
	for _, p := range cfg.Rules.ExtraCaution {
		if err := table.AddRule(rules.SeverityCaution, p, "Configured caution rule", ""); err != nil {
			return nil, err
		}
	}

	return &Handler{
		projectDir: opts.ProjectDir,
		cfg:        cfg,
		table:      table,
		logger:     logger,
		history:    opts.History,
		audit:      opts.Audit,
		now:        time.Now,
	}, nil
}

// Table exposes the compiled rule table.
func (h *Handler) Table() *rules.Table {
	return h.table
}

// Handle produces the decision for one event. It never panics and only
// returns an error-shaped response for surfaced transcript failures;
// everything else degrades to the silent pass.
func (h *Handler) Handle(ev *hook.Event) *hook.Response {
	if ev == nil || ev.HookEventName == "" {
		return hook.Empty()
	}

	switch ev.HookEventName {
	case hook.EventPreToolUse:
		return h.preToolUse(ev)
	case hook.EventPostToolUse:
		return h.postToolUse(ev)
	case hook.EventPostToolUseFailure:
		return h.toolFailure(ev)
	case hook.EventStop:
		return h.stop(ev)
	case hook.EventPreCompact:
		return h.preCompact(ev)
	case hook.EventUserPromptSubmit:
		return h.promptSubmit(ev)
	case hook.EventSessionStart:
		return h.sessionStart(ev)
	case hook.EventSessionEnd:
		h.record(audit.CategorySessions, map[string]any{
			"event":      ev.HookEventName,
			"session_id": ev.SessionID,
		})
		return hook.Empty()
	case hook.EventSubagentStart, hook.EventSubagentStop:
		h.record(audit.CategorySubagents, map[string]any{
			"event":      ev.HookEventName,
			"session_id": ev.SessionID,
			"agent_id":   ev.AgentID,
			"agent_type": ev.AgentType,
		})
		return hook.Empty()
	case hook.EventTaskCompleted:
		h.record(audit.CategoryTasks, map[string]any{
			"event":        ev.HookEventName,
			"task_id":      ev.TaskID,
			"task_subject": ev.TaskSubject,
			"completed_by": ev.CompletedBy,
		})
		return hook.Empty()
	case hook.EventTeammateIdle:
		h.record(audit.CategoryTeammates, map[string]any{
			"event":           ev.HookEventName,
			"teammate_id":     ev.TeammateID,
			"teammate_name":   ev.TeammateName,
			"tasks_completed": ev.TasksDone,
		})
		return hook.Empty()
	case hook.EventNotification:
		h.record(audit.CategoryNotifications, map[string]any{
			"event":   ev.HookEventName,
			"type":    ev.Type,
			"message": audit.Truncate(ev.Message, 500),
		})
		return hook.Empty()
	default:
		// Unknown events pass silently so new runtime events never break
		// sessions.
		return hook.Empty()
	}
}

func (h *Handler) preToolUse(ev *hook.Event) *hook.Response {
	if !h.cfg.Rules.Enabled || ev.ToolName != "Bash" {
		return hook.Empty()
	}
	cmd := ev.Command()
	if cmd == "" {
		return hook.Empty()
	}

	result := h.table.Classify(cmd)

	var resp *hook.Response
	if result.Decision == rules.DecisionDeny {
		reason := "Blocked: " + result.Category
		context := fmt.Sprintf("Command blocked by safety hook: %s. %s", result.Category, result.Guidance)
		resp = hook.Deny(reason, context)
	} else {
		resp = hook.Allow(result.Advisory())
	}

	h.recordDecision(&db.Decision{
		SessionID: ev.SessionID,
		Event:     ev.HookEventName,
		Tool:      ev.ToolName,
		Command:   audit.Truncate(cmd, 500),
		Decision:  outcomeOf(result),
		Category:  result.Category,
		Reason:    result.Guidance,
	})
	h.record(audit.CategoryPermissions, map[string]any{
		"event":      ev.HookEventName,
		"session_id": ev.SessionID,
		"tool":       ev.ToolName,
		"command":    audit.Truncate(cmd, 200),
		"decision":   outcomeOf(result),
		"category":   result.Category,
		"notes":      len(result.Notes),
	})
	return resp
}

func outcomeOf(r *rules.Result) string {
	if r.Decision == rules.DecisionDeny {
		return db.OutcomeDeny
	}
	return db.OutcomeAllow
}

func (h *Handler) postToolUse(ev *hook.Event) *hook.Response {
	if !h.cfg.State.TrackerEnabled || ev.ToolName != "Bash" {
		return hook.Empty()
	}
	cmd := ev.Command()
	if !state.IsGitCommitOrPush(cmd) {
		return hook.Empty()
	}
	if err := state.RecordCommit(h.projectDir, cmd, ev.ToolResponseText(), h.now()); err != nil {
		h.logger.Warn("state tracking failed", "err", err)
	}
	return hook.Empty()
}

func (h *Handler) toolFailure(ev *hook.Event) *hook.Response {
	h.record(audit.CategoryToolFailures, map[string]any{
		"event":      ev.HookEventName,
		"session_id": ev.SessionID,
		"tool":       ev.ToolName,
		"command":    audit.Truncate(ev.Command(), 200),
		"error":      audit.Truncate(ev.ToolResponseText(), 500),
	})
	return hook.Empty()
}

func (h *Handler) stop(ev *hook.Event) *hook.Response {
	// A stop hook that blocks re-invokes the stop hook; stop_hook_active
	// marks that second pass and must never block again.
	if ev.StopHookActive {
		return hook.Empty()
	}

	if resp := h.contextAdvisory(ev); resp != nil {
		return resp
	}

	if h.cfg.Completion.Enabled && ev.TranscriptPath != "" {
		v, err := transcript.VerifyCompletion(ev.TranscriptPath)
		if err != nil {
			return h.blockOn(ev, hook.Errorf(err.Error(), ev.TranscriptPath), "completion verification error")
		}
		if v.Unverified() {
			reason := "Completion was claimed but verification evidence is missing. " +
				"Before stopping, please confirm: (1) Build/tests pass, (2) Key files changed, (3) Acceptance criteria met."
			return h.blockOn(ev, hook.Block(reason), "unverified completion claim")
		}
	}

	if h.cfg.Learning.Enabled && state.ShouldPromptLearning(h.projectDir, ev.TranscriptPath, h.cfg.Learning.ThresholdBytes) {
		reason := "Substantial session detected. Add a one-line insight to LEARNINGS.md before stopping."
		return h.blockOn(ev, hook.Block(reason), "learning capture prompt")
	}

	return hook.Empty()
}

// contextAdvisory returns a blocking response when usage crosses the
// stop threshold, nil otherwise.
func (h *Handler) contextAdvisory(ev *hook.Event) *hook.Response {
	est, err := transcript.EstimateUsage(ev, h.cfg.Context.CapacityTokens)
	if err != nil {
		if errors.Is(err, transcript.ErrTranscriptParse) {
			h.logger.Warn("context estimate unavailable", "err", err)
		}
		return nil
	}
	if !est.Available || est.Fraction < h.cfg.Context.StopThreshold {
		return nil
	}
	reason := fmt.Sprintf(
		"Context usage at %d%% (%d tokens). Consider creating handoff notes in handoff.md before continuing.",
		est.Percent(), est.Consumed)
	return h.blockOn(ev, hook.Block(reason), "context threshold crossed")
}

func (h *Handler) preCompact(ev *hook.Event) *hook.Response {
	if ev.Trigger != "auto" {
		return hook.Empty()
	}

	usage := ""
	if est, err := transcript.EstimateUsage(ev, h.cfg.Context.CapacityTokens); err == nil && est.Available {
		usage = fmt.Sprintf(" at %d%% usage (%d tokens)", est.Percent(), est.Consumed)
	}
	reason := fmt.Sprintf(
		"Auto-compact is about to run%s. Update handoff.md with current progress so work can resume after compaction.",
		usage)
	return h.blockOn(ev, hook.Block(reason), "auto-compact advisory")
}

func (h *Handler) promptSubmit(ev *hook.Event) *hook.Response {
	if terms := state.SensitiveTerms(ev.Prompt); len(terms) > 0 {
		h.logger.Warn("prompt may contain sensitive data", "terms", terms)
	}
	// Length only; prompt content never lands in the audit log.
	h.record(audit.CategoryPrompts, map[string]any{
		"event":         ev.HookEventName,
		"session_id":    ev.SessionID,
		"prompt_length": len(ev.Prompt),
	})
	return hook.Empty()
}

func (h *Handler) sessionStart(ev *hook.Event) *hook.Response {
	if h.cfg.State.SetupEnabled && h.projectDir != "" {
		if created, err := state.Setup(h.projectDir, h.now()); err != nil {
			h.logger.Warn("project scaffolding failed", "err", err)
		} else if created {
			h.logger.Info("scaffolded project files", "dir", h.projectDir)
		}
	}
	h.record(audit.CategorySessions, map[string]any{
		"event":      ev.HookEventName,
		"session_id": ev.SessionID,
	})
	return hook.Empty()
}

// blockOn records a blocking decision before returning it.
func (h *Handler) blockOn(ev *hook.Event, resp *hook.Response, category string) *hook.Response {
	outcome := db.OutcomeBlock
	if !resp.IsBlocking() {
		outcome = db.OutcomePass
	}
	h.recordDecision(&db.Decision{
		SessionID: ev.SessionID,
		Event:     ev.HookEventName,
		Decision:  outcome,
		Category:  category,
		Reason:    audit.Truncate(resp.Reason+resp.Error, 500),
	})
	return resp
}

func (h *Handler) record(category string, fields map[string]any) {
	if h.audit == nil || !h.cfg.Audit.Enabled {
		return
	}
	h.audit.Record(category, fields)
}

func (h *Handler) recordDecision(d *db.Decision) {
	if h.history == nil || !h.cfg.History.Enabled {
		return
	}
	d.CreatedAt = h.now().UTC()
	if err := h.history.InsertDecision(d); err != nil {
		h.logger.Warn("decision history write failed", "err", err)
	}
}
