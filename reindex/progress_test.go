package reindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "Campaign", 100, 10)

	tracker.Start()
	tracker.Add(25, 0)
	tracker.Add(25, 1)
	tracker.Add(50, 2)

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))

	output := buf.String()
	assert.Contains(t, output, "Campaign: 100/100 (100.0%) 3 failed")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "User", 10, 100)

	tracker.Start()
	tracker.Add(50, 0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "10/10")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "User", 100, 50)

	tracker.Start()
	tracker.Add(10, 0)
	assert.Empty(t, buf.String(), "below the interval nothing is written")

	tracker.Add(40, 0)
	assert.Contains(t, buf.String(), "50/100")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, "User", 10, 1)

	tracker.Add(5, 0)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}
