// Package audit appends hook lifecycle events to daily JSONL files. Audit
// writes are best-effort: a failure is logged and swallowed so it can
// never block or distort a hook decision.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Log categories, one file series per category.
const (
	CategorySessions      = "sessions"
	CategoryPrompts       = "prompts"
	CategoryPermissions   = "permissions"
	CategorySubagents     = "subagents"
	CategoryTasks         = "tasks"
	CategoryTeammates     = "teammates"
	CategoryNotifications = "notifications"
	CategoryToolFailures  = "tool-failures"
	CategoryDecisions     = "decisions"
)

// Logger appends audit entries under <dir>/<category>-YYYY-MM-DD.jsonl.
type Logger struct {
	dir    string
	logger *log.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New returns a Logger writing under projectDir/.hookguard/logs.
func New(projectDir string, logger *log.Logger) *Logger {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Logger{
		dir:    filepath.Join(projectDir, ".hookguard", "logs"),
		logger: logger,
		now:    time.Now,
	}
}

// Dir returns the log directory.
func (l *Logger) Dir() string {
	return l.dir
}

// Record appends one entry to today's file for the category. The entry
// gets a timestamp and id; caller fields are preserved as-is.
func (l *Logger) Record(category string, fields map[string]any) {
	if err := l.record(category, fields); err != nil {
		l.logger.Warn("audit write failed", "category", category, "err", err)
	}
}

func (l *Logger) record(category string, fields map[string]any) error {
	now := l.now().UTC()

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = now.Format(time.RFC3339)
	entry["id"] = uuid.New().String()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	path := filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl", category, now.Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return nil
}

// Truncate limits s for log storage, keeping the head which carries the
// identifying part of commands and error messages.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
