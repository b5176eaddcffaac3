// Package transcript reads session transcript JSONL files and derives
// context usage and completion-claim signals from them.
package transcript

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sentinel errors distinguishing the transcript failure modes.
var (
	// ErrTranscriptRead wraps OS-level failures opening or reading the file.
	ErrTranscriptRead = errors.New("transcript unreadable")
	// ErrTranscriptParse means the file had content but not one line of it
	// parsed as JSON.
	ErrTranscriptParse = errors.New("transcript has no parseable lines")
)

// Transcript lines can carry large tool outputs; allow lines up to 10 MiB.
const maxLineBytes = 10 * 1024 * 1024

// Usage is the per-message token accounting block.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

// Consumed is the context-window footprint of the request that produced
// this message: fresh input plus everything served from or written to
// cache. Output tokens are not part of the window.
func (u *Usage) Consumed() int {
	return u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

// IsZero reports whether the usage block is empty.
func (u *Usage) IsZero() bool {
	return u == nil || (u.InputTokens == 0 && u.OutputTokens == 0 &&
		u.CacheReadInputTokens == 0 && u.CacheCreationInputTokens == 0)
}

// Message is the nested message object on a transcript record.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *Usage          `json:"usage"`
}

// Text flattens message content to plain text. Content arrives either as
// a bare string or as a list of typed blocks; only text blocks contribute.
func (m *Message) Text() string {
	if m == nil || len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Record is one transcript JSONL line.
type Record struct {
	Type              string   `json:"type"`
	Message           *Message `json:"message"`
	IsSidechain       bool     `json:"isSidechain"`
	IsAPIErrorMessage bool     `json:"isApiErrorMessage"`
}

// Stats counts what the reader saw, so callers can tell an empty file
// from a file full of garbage.
type Stats struct {
	// Lines is the number of non-blank lines.
	Lines int
	// Parsed is the number of lines that decoded as JSON.
	Parsed int
}

// ReadFile reads every parseable record from a transcript. Malformed
// lines are skipped, not fatal; the caller inspects Stats to decide
// whether total parse failure matters for its purpose. OS failures are
// wrapped in ErrTranscriptRead.
func ReadFile(path string) ([]*Record, Stats, error) {
	var stats Stats

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrTranscriptRead, err)
	}
	defer f.Close()

	var records []*Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		stats.Parsed++
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("%w: %v", ErrTranscriptRead, err)
	}
	return records, stats, nil
}
