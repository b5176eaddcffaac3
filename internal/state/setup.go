// Package state maintains the project-local working files: STATE.md,
// LEARNINGS.md, and the one-time scaffolding that creates them.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	stateFile     = "STATE.md"
	learningsFile = "LEARNINGS.md"
	markerFile    = ".setup-complete"
)

const stateTemplate = `# Project State

**Last Updated:** %s

## Current Focus

_Not yet set._

## Completed Tasks

| Task | Date | Files |
|------|------|-------|

## Notes
`

const learningsTemplate = `# Learnings

One-line insights captured at session stops. Newest last.
`

// Setup scaffolds the project working files once. A marker file under
// .hookguard/ prevents re-running; existing files are never overwritten.
// Returns true when scaffolding ran.
func Setup(projectDir string, now time.Time) (bool, error) {
	guardDir := filepath.Join(projectDir, ".hookguard")
	marker := filepath.Join(guardDir, markerFile)
	if _, err := os.Stat(marker); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Join(guardDir, "logs"), 0o755); err != nil {
		return false, fmt.Errorf("creating log dir: %w", err)
	}

	statePath := filepath.Join(projectDir, stateFile)
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		content := fmt.Sprintf(stateTemplate, now.Format("2006-01-02 15:04"))
		if err := os.WriteFile(statePath, []byte(content), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", stateFile, err)
		}
	}

	learningsPath := filepath.Join(projectDir, learningsFile)
	if _, err := os.Stat(learningsPath); os.IsNotExist(err) {
		if err := os.WriteFile(learningsPath, []byte(learningsTemplate), 0o644); err != nil {
			return false, fmt.Errorf("writing %s: %w", learningsFile, err)
		}
	}

	if err := os.WriteFile(marker, []byte(now.Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return false, fmt.Errorf("writing setup marker: %w", err)
	}
	return true, nil
}

// LearningsPath returns the LEARNINGS.md path for the project.
func LearningsPath(projectDir string) string {
	return filepath.Join(projectDir, learningsFile)
}

// DefaultLearningThreshold is the transcript size, in bytes, past which a
// session is considered substantial enough to capture a learning.
const DefaultLearningThreshold int64 = 50000

// ShouldPromptLearning reports whether the stop should ask for a
// one-line LEARNINGS.md entry: the project opted in by having the file,
// and the transcript shows substantial work.
func ShouldPromptLearning(projectDir, transcriptPath string, threshold int64) bool {
	if threshold <= 0 {
		threshold = DefaultLearningThreshold
	}
	if _, err := os.Stat(LearningsPath(projectDir)); err != nil {
		return false
	}
	info, err := os.Stat(transcriptPath)
	if err != nil {
		return false
	}
	return info.Size() > threshold
}
