package progress

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestReporterCounts(t *testing.T) {
	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	r := New()
	r.now = func() time.Time { return clock }

	r.Start(3)
	r.Complete("a.jpg")
	r.Error("b.jpg", errors.New("boom"))
	clock = clock.Add(5 * time.Second)
	r.Skip("c.jpg")

	s := r.Finish()
	assert.Equal(t, Summary{Total: 3, Completed: 1, Failed: 1, Skipped: 1, Duration: 5 * time.Second}, s)
	assert.Equal(t, 3, s.Processed())
}

func TestReporterLogsProgressAfterInterval(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.Init()

	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	r := New()
	r.now = func() time.Time { return clock }

	r.Start(2)
	r.Complete("a.jpg")
	assert.NotContains(t, buf.String(), "Progress:")

	clock = clock.Add(3 * time.Second)
	r.Complete("b.jpg")
	assert.Contains(t, buf.String(), "Progress: 100.0%")
}

func TestSnapshotBeforeStart(t *testing.T) {
	assert.Equal(t, Summary{}, New().Snapshot())
}
