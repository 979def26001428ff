package ui

import (
	"fmt"
	"time"
)

// RunTracker keeps per-run progress counters and estimates completion
type RunTracker struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	StartTime time.Time
}

// NewRunTracker creates a tracker for a run over the given target count
func NewRunTracker(total int) *RunTracker {
	return &RunTracker{
		Total:     total,
		StartTime: time.Now(),
	}
}

// RecordSuccess counts one successfully applied record
func (rt *RunTracker) RecordSuccess() {
	rt.Processed++
	rt.Succeeded++
}

// RecordFailure counts one failed record
func (rt *RunTracker) RecordFailure() {
	rt.Processed++
	rt.Failed++
}

// ETA estimates the remaining time from the average per-record pace so far
func (rt *RunTracker) ETA() string {
	if rt.Processed == 0 || rt.Total == 0 {
		return "calculating"
	}
	elapsed := time.Since(rt.StartTime)
	perRecord := elapsed / time.Duration(rt.Processed)
	remaining := perRecord * time.Duration(rt.Total-rt.Processed)

	if remaining < time.Minute {
		return fmt.Sprintf("%ds", int(remaining.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(remaining.Minutes()), int(remaining.Seconds())%60)
}

// Elapsed returns the time since tracking started
func (rt *RunTracker) Elapsed() time.Duration {
	return time.Since(rt.StartTime)
}

// SuccessRate returns the percentage of processed records that succeeded
func (rt *RunTracker) SuccessRate() float64 {
	if rt.Processed == 0 {
		return 0
	}
	return float64(rt.Succeeded) / float64(rt.Processed) * 100
}

// PrintRecord prints the per-record status line
func (rt *RunTracker) PrintRecord(position int, nickname, detail string) {
	line := fmt.Sprintf("[%d/%d] %s", position, rt.Total, nickname)
	if detail != "" {
		line += " (" + detail + ")"
	}
	fmt.Printf("%s | ETA: %s\n", Cyan(line), Dim(rt.ETA()))
}
