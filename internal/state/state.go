package state

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	lastUpdatedRe = regexp.MustCompile(`(?m)^\*\*Last Updated:\*\* .*$`)
	commitFlagRe  = regexp.MustCompile(`-m\s+(?:"([^"]+)"|'([^']+)')`)
	commitLineRe  = regexp.MustCompile(`\[[\w./-]+ [0-9a-f]{7,40}\] (.+)`)
)

// IsGitCommitOrPush reports whether the Bash command records progress
// worth reflecting in STATE.md.
func IsGitCommitOrPush(command string) bool {
	return strings.Contains(command, "git commit") || strings.Contains(command, "git push")
}

// ExtractCommitMessage pulls the commit subject from the command's -m
// flag, falling back to git's own "[branch hash] subject" output line.
func ExtractCommitMessage(command, output string) string {
	if m := commitFlagRe.FindStringSubmatch(command); m != nil {
		if m[1] != "" {
			return m[1]
		}
		return m[2]
	}
	if m := commitLineRe.FindStringSubmatch(output); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// RecordCommit updates STATE.md after a git commit or push: refreshes
// the Last Updated stamp and, when a commit subject is extractable,
// prepends a row to the Completed Tasks table. Missing STATE.md is not
// an error; projects without one simply are not tracked.
func RecordCommit(projectDir, command, output string, now time.Time) error {
	path := filepath.Join(projectDir, stateFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", stateFile, err)
	}

	content := string(data)
	stamp := now.Format("2006-01-02 15:04")
	content = lastUpdatedRe.ReplaceAllString(content, "**Last Updated:** "+stamp)

	if msg := ExtractCommitMessage(command, output); msg != "" {
		row := fmt.Sprintf("| ✅ %s | %s | %s |", msg, now.Format("2006-01-02"), changedFiles(output))
		content = insertTaskRow(content, row)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", stateFile, err)
	}
	return nil
}

var filesChangedRe = regexp.MustCompile(`(\d+) files? changed`)

func changedFiles(output string) string {
	if m := filesChangedRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return "-"
}

// insertTaskRow places the row directly under the Completed Tasks table
// header separator, newest first. Content is returned unchanged when the
// section or its separator is missing.
func insertTaskRow(content, row string) string {
	lines := strings.Split(content, "\n")
	inSection := false
	for i, line := range lines {
		if strings.HasPrefix(line, "## ") {
			inSection = strings.TrimSpace(line) == "## Completed Tasks"
			continue
		}
		if inSection && strings.HasPrefix(strings.TrimSpace(line), "|--") {
			out := make([]string, 0, len(lines)+1)
			out = append(out, lines[:i+1]...)
			out = append(out, row)
			out = append(out, lines[i+1:]...)
			return strings.Join(out, "\n")
		}
	}
	return content
}

// sensitiveTerms flag prompts that may carry credentials. The scan warns
// only; prompts are never blocked or logged verbatim.
var sensitiveTerms = []string{
	"password",
	"secret",
	"api_key",
	"api-key",
	"apikey",
	"api key",
	"token",
	"credential",
}

// SensitiveTerms returns the credential-like terms present in the prompt.
func SensitiveTerms(prompt string) []string {
	lower := strings.ToLower(prompt)
	var found []string
	for _, term := range sensitiveTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}
