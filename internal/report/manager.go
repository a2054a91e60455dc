package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/progress"
	"github.com/bstardust/flood-survey-collector/internal/worker"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Manager owns the report collection: newest batch first, input order kept
// within a batch. All status changes go through it.
type Manager struct {
	mu      sync.RWMutex
	reports []*Report
	index   map[string]*Report
	sweep   *progress.Reporter

	extractor Extractor
	uploader  Uploader
	previews  Previews
	limiter   *rate.Limiter
	queue     *worker.Queue
	now       func() time.Time
	newID     func() string
}

// Option configures a Manager
type Option func(*Manager)

// WithPreviews sets the preview reference store
func WithPreviews(p Previews) Option {
	return func(m *Manager) { m.previews = p }
}

// WithRateLimit paces uploads within a sweep
func WithRateLimit(l *rate.Limiter) Option {
	return func(m *Manager) { m.limiter = l }
}

// WithClock overrides the creation time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides report id generation
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates an empty collection
func NewManager(extractor Extractor, uploader Uploader, opts ...Option) *Manager {
	m := &Manager{
		index:     make(map[string]*Report),
		extractor: extractor,
		uploader:  uploader,
		queue:     worker.NewQueue(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddReports extracts metadata for each file and prepends the new reports,
// in input order, to the collection. A cancelled ctx stops extraction and
// only the reports built so far are added.
func (m *Manager) AddReports(ctx context.Context, files []media.File) []Report {
	batch := make([]*Report, 0, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			logger.Warn("Stopped adding reports after %d of %d files: %v", len(batch), len(files), ctx.Err())
			break
		}

		r := &Report{
			ID:        m.newID(),
			File:      f,
			Metadata:  m.extractor.Extract(f),
			CreatedAt: m.now(),
			Status:    StatusPending,
		}
		if m.previews != nil {
			r.Preview = m.previews.Create(f)
		}
		logger.Debug("Staged %s as report %s (%s)", f.Name, r.ID, r.Metadata)
		batch = append(batch, r)
	}

	m.mu.Lock()
	for _, r := range batch {
		m.index[r.ID] = r
	}
	m.reports = append(batch, m.reports...)
	m.mu.Unlock()

	out := make([]Report, len(batch))
	for i, r := range batch {
		out[i] = *r
	}
	return out
}

// UpdateReport merges p into the report with the given id. An unknown id is
// a no-op. Only a sweep may move a report into or out of uploading, so a
// patch setting uploading is rejected and a report being uploaded returns
// ErrReportBusy.
func (m *Manager) UpdateReport(id string, p Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.index[id]
	if !ok {
		return nil
	}
	if r.Status == StatusUploading {
		return ErrReportBusy
	}
	if p.Status != nil && *p.Status == StatusUploading {
		return fmt.Errorf("%w: %s is set by a submission sweep", ErrInvalidTransition, StatusUploading)
	}
	return apply(r, p)
}

func apply(r *Report, p Patch) error {
	status := r.Status
	if p.Status != nil {
		status = *p.Status
	}
	remoteID := r.RemoteID
	if p.RemoteID != nil {
		remoteID = *p.RemoteID
	}

	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	if !r.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, status)
	}
	if status == StatusCompleted && remoteID == "" {
		return ErrMissingRemoteID
	}

	r.Status = status
	r.RemoteID = remoteID
	return nil
}

// SubmitAll uploads every pending or failed report, one at a time, in
// collection order. Individual failures mark the report failed and the sweep
// goes on. A cancelled ctx stops the sweep before the next report; an
// upload already in flight is allowed to finish.
func (m *Manager) SubmitAll(ctx context.Context) (progress.Summary, error) {
	var rep *progress.Reporter

	_, err := m.queue.DrainFunc(ctx, func() []worker.Task {
		rep = progress.New()

		m.mu.Lock()
		var ids []string
		for _, r := range m.reports {
			if r.Status.Submittable() {
				ids = append(ids, r.ID)
			}
		}
		m.sweep = rep
		m.mu.Unlock()

		rep.Start(len(ids))

		tasks := make([]worker.Task, len(ids))
		for i, id := range ids {
			id := id
			tasks[i] = func(ctx context.Context) {
				m.submitOne(ctx, id, rep)
			}
		}
		return tasks
	})
	if errors.Is(err, worker.ErrDraining) {
		return progress.Summary{}, ErrSyncInProgress
	}

	summary := rep.Finish()
	if err != nil {
		return summary, fmt.Errorf("submission sweep stopped: %w", err)
	}
	return summary, nil
}

func (m *Manager) submitOne(ctx context.Context, id string, rep *progress.Reporter) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			logger.Debug("Rate limit wait for %s aborted: %v", id, err)
			rep.Skip(id)
			return
		}
	}

	sub, ok := m.beginUpload(id)
	if !ok {
		rep.Skip(id)
		return
	}

	receipt, err := m.upload(context.WithoutCancel(ctx), sub)
	if err == nil && receipt.RemoteID == "" {
		err = ErrMissingRemoteID
	}

	m.mu.Lock()
	if r, ok := m.index[id]; ok {
		patch := CompletedPatch(receipt.RemoteID)
		if err != nil {
			patch = StatusPatch(StatusFailed)
		}
		if applyErr := apply(r, patch); applyErr != nil {
			logger.Error("Failed to record upload result for %s: %v", id, applyErr)
		}
	}
	m.mu.Unlock()

	if err != nil {
		rep.Error(sub.File.Name, err)
		return
	}
	rep.Complete(sub.File.Name)
}

func (m *Manager) beginUpload(id string) (Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.index[id]
	if !ok || !r.Status.Submittable() {
		return Submission{}, false
	}
	if err := apply(r, StatusPatch(StatusUploading)); err != nil {
		return Submission{}, false
	}
	return Submission{ReportID: r.ID, File: r.File, Metadata: r.Metadata}, true
}

func (m *Manager) upload(ctx context.Context, sub Submission) (receipt Receipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("uploader panic: %v", r)
		}
	}()
	return m.uploader.Upload(ctx, sub)
}

// Syncing reports whether a sweep is running
func (m *Manager) Syncing() bool {
	return m.queue.Draining()
}

// Progress returns the counters of the running or last sweep
func (m *Manager) Progress() (progress.Summary, bool) {
	m.mu.RLock()
	rep := m.sweep
	m.mu.RUnlock()
	if rep == nil {
		return progress.Summary{}, false
	}
	return rep.Snapshot(), true
}

// List returns a copy of the collection, newest first
func (m *Manager) List() []Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Report, len(m.reports))
	for i, r := range m.reports {
		out[i] = *r
	}
	return out
}

// Get returns a copy of one report
func (m *Manager) Get(id string) (Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.index[id]
	if !ok {
		return Report{}, false
	}
	return *r, true
}

// Stats counts reports by status and location
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Total: len(m.reports)}
	for _, r := range m.reports {
		if r.Metadata.HasLocation() {
			s.Mapped++
		}
		switch r.Status {
		case StatusPending:
			s.Pending++
		case StatusUploading:
			s.Uploading++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Discard removes a report and releases its preview
func (m *Manager) Discard(id string) error {
	m.mu.Lock()
	r, ok := m.index[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if r.Status == StatusUploading {
		m.mu.Unlock()
		return ErrReportBusy
	}

	delete(m.index, id)
	for i, cur := range m.reports {
		if cur == r {
			m.reports = append(m.reports[:i], m.reports[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	if m.previews != nil && r.Preview != "" {
		m.previews.Release(r.Preview)
	}
	return nil
}

// Close releases every outstanding preview reference
func (m *Manager) Close() {
	if m.previews == nil {
		return
	}

	m.mu.Lock()
	var refs []string
	for _, r := range m.reports {
		if r.Preview != "" {
			refs = append(refs, r.Preview)
			r.Preview = ""
		}
	}
	m.mu.Unlock()

	for _, ref := range refs {
		m.previews.Release(ref)
	}
}
