package transcript

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// completionPhrases are whole-word, case-insensitive claims that the
// work is finished.
var completionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\btask complete\b`),
	regexp.MustCompile(`(?i)\bimplementation complete\b`),
	regexp.MustCompile(`(?i)\bsubtask complete\b`),
	regexp.MustCompile(`(?i)\bready for review\b`),
	regexp.MustCompile(`(?i)\bready for qa\b`),
	regexp.MustCompile(`(?i)\ball done\b`),
	regexp.MustCompile(`(?i)\bfinished implementing\b`),
}

// evidenceMarkers are substrings whose presence counts as verification
// evidence alongside a completion claim. Matched case-insensitively.
var evidenceMarkers = []string{
	"## completion verification",
	"### verification",
	"- [x] build",
	"- [x] tests pass",
	"acceptance criteria",
	"files changed:",
	"test status:",
	"tests pass",
}

// Verification is the completion-claim check outcome for one transcript.
type Verification struct {
	// Claimed is true when the last assistant message contains a
	// completion phrase.
	Claimed bool `json:"claimed"`
	// Evidenced is true when the same message carries verification
	// evidence.
	Evidenced bool `json:"evidenced"`
	// Phrase is the first matched completion phrase, for reporting.
	Phrase string `json:"phrase,omitempty"`
}

// Unverified reports the condition that warrants blocking: completion
// was claimed with no supporting evidence.
func (v Verification) Unverified() bool {
	return v.Claimed && !v.Evidenced
}

// VerifyCompletion inspects the last assistant message of the transcript
// for an unverified completion claim.
//
// A missing transcript means there is nothing to verify: empty result,
// nil error. Unlike usage estimation, actual failures are surfaced: an
// unreadable file returns an ErrTranscriptRead-wrapped error and a fully
// unparseable file returns ErrTranscriptParse. A transcript with no
// assistant text is an ordinary empty result.
func VerifyCompletion(path string) (Verification, error) {
	if path == "" {
		return Verification{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Verification{}, nil
	}

	records, stats, err := ReadFile(path)
	if err != nil {
		return Verification{}, err
	}
	if stats.Lines > 0 && stats.Parsed == 0 {
		return Verification{}, fmt.Errorf("%w: %s", ErrTranscriptParse, path)
	}

	var text string
	for _, rec := range records {
		if rec.Message == nil || rec.Message.Role != "assistant" {
			continue
		}
		if t := rec.Message.Text(); t != "" {
			text = t
		}
	}
	if text == "" {
		return Verification{}, nil
	}

	var v Verification
	for _, re := range completionPhrases {
		if match := re.FindString(text); match != "" {
			v.Claimed = true
			v.Phrase = match
			break
		}
	}
	if !v.Claimed {
		return v, nil
	}

	lower := strings.ToLower(text)
	for _, marker := range evidenceMarkers {
		if strings.Contains(lower, marker) {
			v.Evidenced = true
			break
		}
	}
	return v, nil
}
