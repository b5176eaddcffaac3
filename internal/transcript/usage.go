package transcript

import (
	"fmt"
	"os"

	"github.com/hookguard/hookguard/internal/hook"
)

// Context accounting defaults. Both are configurable.
const (
	DefaultCapacity      = 200000
	DefaultStopThreshold = 0.70
)

// Usage sources reported in Estimate.Source.
const (
	SourceSnapshot   = "snapshot"
	SourceTranscript = "transcript"
)

// Estimate is the derived context usage for one event.
type Estimate struct {
	// Available is false when no usage could be derived. That is a normal
	// outcome (missing transcript, feature not present), never an error.
	Available bool    `json:"available"`
	Consumed  int     `json:"consumed_tokens,omitempty"`
	Capacity  int     `json:"capacity_tokens,omitempty"`
	Fraction  float64 `json:"fraction,omitempty"`
	Source    string  `json:"source,omitempty"`
}

// Percent returns the usage as a whole percentage for display.
func (e Estimate) Percent() int {
	return int(e.Fraction * 100)
}

// EstimateUsage derives context usage for the event.
//
// The inline context_window snapshot wins when it carries a usable
// percentage: consumed is total minus remaining when both are present,
// else total scaled by the percentage. Without a usable snapshot the
// transcript is scanned and the LAST qualifying record supplies the
// figure; per-message usage is already cumulative for the conversation,
// so records are never summed.
//
// A missing or unreadable transcript yields an unavailable estimate with
// a nil error. A transcript whose every line fails to parse returns
// ErrTranscriptParse so the caller can surface the corruption.
func EstimateUsage(ev *hook.Event, capacity int) (Estimate, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	if snap := ev.Snapshot(); snap != nil {
		return fromSnapshot(snap, capacity), nil
	}

	if ev.TranscriptPath == "" {
		return Estimate{}, nil
	}
	if _, err := os.Stat(ev.TranscriptPath); err != nil {
		return Estimate{}, nil
	}

	records, stats, err := ReadFile(ev.TranscriptPath)
	if err != nil {
		return Estimate{}, nil
	}
	if stats.Lines > 0 && stats.Parsed == 0 {
		return Estimate{}, fmt.Errorf("%w: %s", ErrTranscriptParse, ev.TranscriptPath)
	}

	var last *Usage
	for _, rec := range records {
		if rec.IsSidechain || rec.IsAPIErrorMessage {
			continue
		}
		if rec.Message == nil || rec.Message.Usage.IsZero() {
			continue
		}
		last = rec.Message.Usage
	}
	if last == nil {
		return Estimate{}, nil
	}

	consumed := last.Consumed()
	return Estimate{
		Available: true,
		Consumed:  consumed,
		Capacity:  capacity,
		Fraction:  clampFraction(float64(consumed) / float64(capacity)),
		Source:    SourceTranscript,
	}, nil
}

func fromSnapshot(snap *hook.ContextWindow, capacity int) Estimate {
	total := capacity
	if snap.TotalTokens != nil && *snap.TotalTokens > 0 {
		total = *snap.TotalTokens
	}

	// A zero or absent total cannot anchor the subtraction; the
	// percentage is authoritative then.
	var consumed int
	if snap.TotalTokens != nil && *snap.TotalTokens > 0 && snap.RemainingTokens != nil {
		consumed = *snap.TotalTokens - *snap.RemainingTokens
	} else {
		consumed = int(float64(total) * *snap.UsedPercentage / 100)
	}
	if consumed < 0 {
		consumed = 0
	}

	return Estimate{
		Available: true,
		Consumed:  consumed,
		Capacity:  total,
		Fraction:  clampFraction(float64(consumed) / float64(total)),
		Source:    SourceSnapshot,
	}
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
