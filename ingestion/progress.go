package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many files of a run are done.
// A tracker with a nil writer records progress without printing it.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	files     int
	records   int
	failed    int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total files.
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.files = 0
	p.records = 0
	p.failed = 0
}

// FileDone counts one finished file and the records it held.
func (p *ProgressTracker) FileDone(records int, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.files = min(p.files+1, p.total)
	p.records += records
	if failed {
		p.failed++
	}
	p.report()
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || p.writer == nil {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Files returns the number of finished files.
func (p *ProgressTracker) Files() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.files
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	if p.writer == nil {
		return
	}

	rate := 0.0
	if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
		rate = float64(p.records) / elapsed
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.files) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rFiles: %d/%d (%.1f%%), %d failed - %d records, %.1f records/s",
		p.files, p.total, percentage, p.failed, p.records, rate)
}
