package ingestion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(&buf, 3)

	// Ignored before Start
	p.FileDone(10, false)
	assert.Empty(t, buf.String())
	assert.Zero(t, p.Elapsed())

	p.Start()
	p.FileDone(100, false)
	p.FileDone(0, true)
	assert.Equal(t, 2, p.Files())
	assert.Contains(t, buf.String(), "Files: 2/3 (66.7%), 1 failed - 100 records")

	p.Finish()
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	p := NewProgressTracker(nil, 1)
	p.Start()
	p.FileDone(1, false)
	p.FileDone(1, false)
	p.Finish()
	assert.Equal(t, 1, p.Files())
}
