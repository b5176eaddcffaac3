package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDecisionNotFound is returned when a decision id does not exist.
var ErrDecisionNotFound = errors.New("decision not found")

// Decision outcomes stored in the history.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeBlock = "block"
	OutcomePass  = "pass"
)

// Decision is one recorded hook verdict.
type Decision struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Event     string    `json:"event"`
	Tool      string    `json:"tool,omitempty"`
	Command   string    `json:"command,omitempty"`
	Decision  string    `json:"decision"`
	Category  string    `json:"category,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertDecision records a verdict. Generates the id and timestamp when
// unset.
func (db *DB) InsertDecision(d *Decision) error {
	if d.Event == "" {
		return fmt.Errorf("event is required")
	}
	if d.Decision == "" {
		return fmt.Errorf("decision is required")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(`
		INSERT INTO decisions (id, session_id, event, tool, command, decision, category, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.SessionID, d.Event, d.Tool, d.Command, d.Decision, d.Category, d.Reason, d.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a decision by id.
func (db *DB) GetDecision(id string) (*Decision, error) {
	row := db.QueryRow(`
		SELECT id, session_id, event, tool, command, decision, category, reason, created_at
		FROM decisions WHERE id = ?
	`, id)
	return scanDecision(row)
}

// ListDecisions returns the most recent decisions, newest first.
func (db *DB) ListDecisions(limit int) ([]*Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, session_id, event, tool, command, decision, category, reason, created_at
		FROM decisions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// ListDecisionsSince returns decisions created at or after the cutoff,
// oldest first, for stream catch-up.
func (db *DB) ListDecisionsSince(cutoff time.Time) ([]*Decision, error) {
	rows, err := db.Query(`
		SELECT id, session_id, event, tool, command, decision, category, reason, created_at
		FROM decisions
		WHERE created_at >= ?
		ORDER BY created_at ASC, id ASC
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("querying decisions since %s: %w", cutoff, err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// CountByOutcome returns decision counts keyed by outcome.
func (db *DB) CountByOutcome() (map[string]int, error) {
	rows, err := db.Query(`SELECT decision, COUNT(*) FROM decisions GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("counting decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecision(row scanner) (*Decision, error) {
	var d Decision
	var createdAt string
	err := row.Scan(&d.ID, &d.SessionID, &d.Event, &d.Tool, &d.Command, &d.Decision, &d.Category, &d.Reason, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrDecisionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning decision: %w", err)
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return &d, nil
}

func scanDecisions(rows *sql.Rows) ([]*Decision, error) {
	var out []*Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
