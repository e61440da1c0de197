package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// ProgressTracker prints one line per finished item of a pass with an
// estimate of the remaining time
type ProgressTracker struct {
	Label     string
	Total     int
	Done      int
	Failed    int
	StartTime time.Time

	now func() time.Time
}

// NewProgressTracker creates a tracker for total items. label names the
// item kind, e.g. "profile".
func NewProgressTracker(label string, total int) *ProgressTracker {
	return &ProgressTracker{
		Label:     label,
		Total:     total,
		StartTime: time.Now(),
		now:       time.Now,
	}
}

// Bar renders done/total as a fixed width bar
func (pt *ProgressTracker) Bar() string {
	filled := 0
	if pt.Total > 0 {
		filled = pt.Done * barWidth / pt.Total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, barWidth-filled),
		pt.Done, pt.Total)
}

// Elapsed returns the time since tracking started
func (pt *ProgressTracker) Elapsed() time.Duration {
	return pt.now().Sub(pt.StartTime)
}

// ETA extrapolates the remaining time from the average item duration. It is
// zero until the first item finishes.
func (pt *ProgressTracker) ETA() time.Duration {
	if pt.Done == 0 || pt.Done >= pt.Total {
		return 0
	}
	perItem := pt.Elapsed() / time.Duration(pt.Done)
	return (perItem * time.Duration(pt.Total-pt.Done)).Round(time.Second)
}

// Succeeded records a stored item and prints its line
func (pt *ProgressTracker) Succeeded(key string, found, created, updated int) {
	pt.Done++
	pt.print(Green("[STORED]"), fmt.Sprintf("%s %s: %d found, %d new, %d updated", pt.Label, key, found, created, updated))
}

// FailedItem records a failed item and prints its line
func (pt *ProgressTracker) FailedItem(key string, err error) {
	pt.Done++
	pt.Failed++
	pt.print(Red("[FAILED]"), fmt.Sprintf("%s %s: %v", pt.Label, key, err))
}

func (pt *ProgressTracker) print(status, detail string) {
	line := fmt.Sprintf("%s %s %s", Cyan(pt.Bar()), status, detail)
	if eta := pt.ETA(); eta > 0 {
		line += Dim(fmt.Sprintf(" (eta %s)", eta))
	}
	fmt.Fprintln(Output, line)
}
