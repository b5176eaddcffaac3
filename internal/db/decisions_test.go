package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndGetDecision(t *testing.T) {
	db := openTestDB(t)

	d := &Decision{
		SessionID: "sess-1",
		Event:     "PreToolUse",
		Tool:      "Bash",
		Command:   "rm -rf /",
		Decision:  OutcomeDeny,
		Category:  "Recursive delete from root",
		Reason:    "Blocked: Recursive delete from root",
	}
	if err := db.InsertDecision(d); err != nil {
		t.Fatalf("InsertDecision: %v", err)
	}
	if d.ID == "" {
		t.Fatal("id not generated")
	}
	if d.CreatedAt.IsZero() {
		t.Fatal("timestamp not set")
	}

	got, err := db.GetDecision(d.ID)
	if err != nil {
		t.Fatalf("GetDecision: %v", err)
	}
	if got.Command != d.Command || got.Decision != OutcomeDeny || got.Category != d.Category {
		t.Errorf("got %+v, want %+v", got, d)
	}
}

func TestInsertDecisionValidation(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertDecision(&Decision{Decision: OutcomeAllow}); err == nil {
		t.Error("accepted a decision without an event")
	}
	if err := db.InsertDecision(&Decision{Event: "Stop"}); err == nil {
		t.Error("accepted a decision without an outcome")
	}
}

func TestGetDecisionNotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetDecision("no-such-id")
	if !errors.Is(err, ErrDecisionNotFound) {
		t.Fatalf("err = %v, want ErrDecisionNotFound", err)
	}
}

func TestListDecisionsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, cmd := range []string{"first", "second", "third"} {
		d := &Decision{
			Event:     "PreToolUse",
			Command:   cmd,
			Decision:  OutcomeAllow,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.InsertDecision(d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListDecisions(2)
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Command != "third" || list[1].Command != "second" {
		t.Errorf("order = [%s %s], want newest first", list[0].Command, list[1].Command)
	}
}

func TestListDecisionsSince(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		d := &Decision{
			Event:     "Stop",
			Decision:  OutcomePass,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := db.InsertDecision(d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.ListDecisionsSince(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListDecisionsSince: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if !list[0].CreatedAt.Before(list[1].CreatedAt) {
		t.Error("catch-up list not oldest first")
	}
}

func TestCountByOutcome(t *testing.T) {
	db := openTestDB(t)

	for _, outcome := range []string{OutcomeAllow, OutcomeAllow, OutcomeDeny} {
		if err := db.InsertDecision(&Decision{Event: "PreToolUse", Decision: outcome}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := db.CountByOutcome()
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[OutcomeAllow] != 2 || counts[OutcomeDeny] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".hookguard", "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db.Close()
}
