// internal/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrDraining is returned when a drain is requested while another one runs
var ErrDraining = errors.New("queue is already draining")

// Task is a unit of work run by the queue
type Task func(ctx context.Context)

// Queue runs tasks one at a time. Only one drain may be active at once, so
// the draining flag doubles as a busy lock for callers.
type Queue struct {
	draining atomic.Bool
}

// NewQueue creates a new single-worker queue
func NewQueue() *Queue {
	return &Queue{}
}

// DrainFunc runs the tasks built by plan in order, each starting only after
// the previous one has returned. plan is called once the queue has been
// claimed, so the selection cannot race another drain. It stops before the
// next task when ctx is cancelled and returns the number of tasks that ran.
func (q *Queue) DrainFunc(ctx context.Context, plan func() []Task) (int, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return 0, ErrDraining
	}
	defer q.draining.Store(false)

	tasks := plan()
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		task(ctx)
	}

	return len(tasks), nil
}

// Draining reports whether a drain is in progress
func (q *Queue) Draining() bool {
	return q.draining.Load()
}
