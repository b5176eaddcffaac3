package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hookguard/hookguard/internal/hook"
)

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEstimateUsageSnapshotTotalRemaining(t *testing.T) {
	ev := &hook.Event{
		HookEventName: hook.EventStop,
		ContextWindow: &hook.ContextWindow{
			UsedPercentage:  floatPtr(75),
			TotalTokens:     intPtr(200000),
			RemainingTokens: intPtr(50000),
		},
	}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if !est.Available {
		t.Fatal("estimate unavailable")
	}
	if est.Consumed != 150000 {
		t.Errorf("Consumed = %d, want 150000", est.Consumed)
	}
	if est.Fraction != 0.75 {
		t.Errorf("Fraction = %v, want 0.75", est.Fraction)
	}
	if est.Source != SourceSnapshot {
		t.Errorf("Source = %q, want snapshot", est.Source)
	}
}

func TestEstimateUsageSnapshotPercentageOnly(t *testing.T) {
	ev := &hook.Event{
		ContextWindow: &hook.ContextWindow{UsedPercentage: floatPtr(40)},
	}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Consumed != 80000 {
		t.Errorf("Consumed = %d, want 80000", est.Consumed)
	}
	if est.Fraction != 0.4 {
		t.Errorf("Fraction = %v, want 0.4", est.Fraction)
	}
}

func TestEstimateUsageSnapshotZeroTotalUsesPercentage(t *testing.T) {
	ev := &hook.Event{
		ContextWindow: &hook.ContextWindow{
			UsedPercentage:  floatPtr(50),
			TotalTokens:     intPtr(0),
			RemainingTokens: intPtr(100000),
		},
	}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if !est.Available {
		t.Fatal("estimate unavailable")
	}
	if est.Consumed != 100000 {
		t.Errorf("Consumed = %d, want 100000 from the percentage", est.Consumed)
	}
	if est.Fraction != 0.5 {
		t.Errorf("Fraction = %v, want 0.5", est.Fraction)
	}
}

func TestEstimateUsageSnapshotWithoutPercentageIgnored(t *testing.T) {
	// A snapshot with totals but no percentage is treated as absent; with
	// no transcript either, the estimate is unavailable.
	ev := &hook.Event{
		ContextWindow: &hook.ContextWindow{
			TotalTokens:     intPtr(200000),
			RemainingTokens: intPtr(50000),
		},
	}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Available {
		t.Errorf("estimate = %+v, want unavailable", est)
	}
}

func TestEstimateUsageTranscriptLastRecordWins(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","message":{"role":"assistant","usage":{"input_tokens":10000}}}`,
		`{"type":"assistant","message":{"role":"assistant","usage":{"input_tokens":20000}}}`,
		`{"type":"assistant","message":{"role":"assistant","usage":{"input_tokens":15000}}}`,
	)
	ev := &hook.Event{TranscriptPath: path}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Consumed != 15000 {
		t.Errorf("Consumed = %d, want 15000 (last record, never summed)", est.Consumed)
	}
	if est.Source != SourceTranscript {
		t.Errorf("Source = %q, want transcript", est.Source)
	}
}

func TestEstimateUsageTranscriptCacheTokensCounted(t *testing.T) {
	path := writeTranscript(t,
		`{"message":{"role":"assistant","usage":{"input_tokens":1000,"cache_read_input_tokens":120000,"cache_creation_input_tokens":4000,"output_tokens":500}}}`,
	)
	ev := &hook.Event{TranscriptPath: path}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Consumed != 125000 {
		t.Errorf("Consumed = %d, want 125000 (output tokens excluded)", est.Consumed)
	}
}

func TestEstimateUsageSkipsDisqualifiedRecords(t *testing.T) {
	path := writeTranscript(t,
		`{"message":{"role":"assistant","usage":{"input_tokens":30000}}}`,
		`{"isSidechain":true,"message":{"role":"assistant","usage":{"input_tokens":90000}}}`,
		`{"isApiErrorMessage":true,"message":{"role":"assistant","usage":{"input_tokens":90000}}}`,
		`{"message":{"role":"assistant","usage":{}}}`,
		`not json at all`,
	)
	ev := &hook.Event{TranscriptPath: path}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Consumed != 30000 {
		t.Errorf("Consumed = %d, want 30000", est.Consumed)
	}
}

func TestEstimateUsageMissingTranscript(t *testing.T) {
	ev := &hook.Event{TranscriptPath: filepath.Join(t.TempDir(), "absent.jsonl")}

	est, err := EstimateUsage(ev, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Available {
		t.Error("missing transcript should be unavailable, not an error")
	}
}

func TestEstimateUsageNoPath(t *testing.T) {
	est, err := EstimateUsage(&hook.Event{}, DefaultCapacity)
	if err != nil {
		t.Fatalf("EstimateUsage: %v", err)
	}
	if est.Available {
		t.Error("no transcript path should be unavailable")
	}
}

func TestEstimateUsageAllLinesMalformed(t *testing.T) {
	path := writeTranscript(t, "garbage one", "{broken", "still not json")
	ev := &hook.Event{TranscriptPath: path}

	_, err := EstimateUsage(ev, DefaultCapacity)
	if !errors.Is(err, ErrTranscriptParse) {
		t.Fatalf("err = %v, want ErrTranscriptParse", err)
	}
}

func TestEstimateUsageZeroCapacityDefaults(t *testing.T) {
	ev := &hook.Event{ContextWindow: &hook.ContextWindow{UsedPercentage: floatPtr(50)}}

	est, err := EstimateUsage(ev, 0)
	if err != nil {
		t.Fatal(err)
	}
	if est.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d, want default %d", est.Capacity, DefaultCapacity)
	}
	if est.Consumed != 100000 {
		t.Errorf("Consumed = %d, want 100000", est.Consumed)
	}
}
