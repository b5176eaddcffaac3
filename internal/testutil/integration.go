package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hookguard/hookguard/internal/db"
)

// Harness is a lightweight integration test environment.
//
// It provisions a temp project directory with a `.hookguard/history.db`
// and keeps cleanup automatic via t.Cleanup.
type Harness struct {
	T          *testing.T
	ProjectDir string
	GuardDir   string
	DBPath     string
	DB         *db.DB
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	projectDir := t.TempDir()
	guardDir := filepath.Join(projectDir, ".hookguard")
	if err := os.MkdirAll(guardDir, 0o750); err != nil {
		t.Fatalf("NewHarness: mkdir .hookguard: %v", err)
	}

	dbPath := filepath.Join(guardDir, "history.db")
	database := NewTestDBAtPath(t, dbPath)

	return &Harness{
		T:          t,
		ProjectDir: projectDir,
		GuardDir:   guardDir,
		DBPath:     dbPath,
		DB:         database,
	}
}
