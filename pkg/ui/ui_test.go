package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() { Output = prev })
	return &buf
}

func TestProgressTracker(t *testing.T) {
	buf := captureOutput(t)

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pt := NewProgressTracker("profile", 4)
	pt.StartTime = start
	pt.now = func() time.Time { return start.Add(30 * time.Second) }

	assert.Equal(t, time.Duration(0), pt.ETA())
	assert.Contains(t, pt.Bar(), "0/4")

	pt.Succeeded("alice", 12, 10, 2)
	assert.Equal(t, 90*time.Second, pt.ETA())
	pt.FailedItem("bob", errors.New("extractor timed out"))

	assert.Equal(t, 2, pt.Done)
	assert.Equal(t, 1, pt.Failed)
	assert.Equal(t, "["+strings.Repeat(ProgressBar, 10)+strings.Repeat(ProgressEmpty, 10)+"] 2/4", pt.Bar())

	out := buf.String()
	assert.Contains(t, out, "profile alice: 12 found, 10 new, 2 updated")
	assert.Contains(t, out, "profile bob: extractor timed out")
	assert.Contains(t, out, "eta 1m30s")
}

func TestProgressTrackerZeroTotal(t *testing.T) {
	pt := NewProgressTracker("video", 0)
	assert.Contains(t, pt.Bar(), strings.Repeat(ProgressEmpty, barWidth))
	assert.Equal(t, time.Duration(0), pt.ETA())
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) Send(title, message string) error {
	r.sent = append(r.sent, title+"|"+message)
	return errors.New("no display")
}

func TestNotifier(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}

	NewNotifierWithSender(sender, false).SendSuccess("Pass finished", "3 profiles")
	assert.Empty(t, sender.sent, "disabled notifier only prints")

	n := NewNotifierWithSender(sender, true)
	n.SendWarning("Pass finished", "1 failed")
	n.SendError("Pass aborted", "interrupted")
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "Pass finished|1 failed", sender.sent[0])

	assert.Contains(t, buf.String(), "3 profiles")
	assert.Contains(t, buf.String(), "interrupted")
}

func TestPrintTable(t *testing.T) {
	buf := captureOutput(t)
	PrintTable("Summary", []Row{{"Created", "4"}, {"Failed items", "1"}})

	out := buf.String()
	assert.Contains(t, out, "Summary")
	assert.Contains(t, out, Cyan("Created     "))
	assert.Contains(t, out, Yellow("4"))
}

func TestAppleScriptSafe(t *testing.T) {
	assert.Equal(t, `say 'hi' a/b c`, appleScriptSafe("say \"hi\" a\\b\nc"))
}
