// internal/progress/reporter.go
package progress

import (
	"sync"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/logger"
)

// Summary is a point-in-time view of a sweep
type Summary struct {
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Processed is the number of items that have been resolved
func (s Summary) Processed() int {
	return s.Completed + s.Failed + s.Skipped
}

// Reporter tracks and reports upload progress
type Reporter struct {
	mu             sync.Mutex
	total          int
	completed      int
	skipped        int
	errors         int
	startTime      time.Time
	lastUpdateTime time.Time
	updateInterval time.Duration
	now            func() time.Time
}

// New creates a new progress reporter
func New() *Reporter {
	return &Reporter{
		updateInterval: 2 * time.Second,
		now:            time.Now,
	}
}

// Start initializes the progress reporter with the total number of reports
func (r *Reporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total = total
	r.completed = 0
	r.skipped = 0
	r.errors = 0
	r.startTime = r.now()
	r.lastUpdateTime = r.startTime

	logger.Info("Starting upload of %d reports", total)
}

// Complete marks a report as successfully uploaded
func (r *Reporter) Complete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.completed++
	logger.Debug("Uploaded %s", name)
	r.updateProgress()
}

// Skip marks a report as skipped
func (r *Reporter) Skip(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.skipped++
	r.updateProgress()
}

// Error marks a report as failed
func (r *Reporter) Error(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors++
	logger.Warn("Upload of %s failed: %v", name, err)
	r.updateProgress()
}

// Snapshot returns the counters so far
func (r *Reporter) Snapshot() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary()
}

// Finish completes the progress reporting
func (r *Reporter) Finish() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.summary()
	logger.Info("Upload complete: %d/%d reports uploaded, %d skipped, %d errors in %s",
		s.Completed, s.Total, s.Skipped, s.Failed, s.Duration.Round(time.Second))
	return s
}

func (r *Reporter) summary() Summary {
	var d time.Duration
	if !r.startTime.IsZero() {
		d = r.now().Sub(r.startTime)
	}
	return Summary{
		Total:     r.total,
		Completed: r.completed,
		Failed:    r.errors,
		Skipped:   r.skipped,
		Duration:  d,
	}
}

// updateProgress updates and displays the progress
func (r *Reporter) updateProgress() {
	now := r.now()
	if now.Sub(r.lastUpdateTime) < r.updateInterval {
		return
	}

	r.lastUpdateTime = now
	duration := now.Sub(r.startTime)
	processed := r.completed + r.skipped + r.errors

	if processed == 0 || r.total == 0 {
		return
	}

	percentage := float64(processed) / float64(r.total) * 100

	var eta string
	if r.completed > 0 {
		timePerFile := duration / time.Duration(processed)
		remaining := timePerFile * time.Duration(r.total-processed)
		eta = remaining.Round(time.Second).String()
	} else {
		eta = "unknown"
	}

	logger.Info("Progress: %.1f%% (%d/%d, %d completed, %d skipped, %d errors) ETA: %s",
		percentage, processed, r.total, r.completed, r.skipped, r.errors, eta)
}
