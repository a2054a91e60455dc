package report

// Status is the lifecycle state of a report
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUploading, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a report in status s may move to next.
// Assigning the current status is always allowed and changes nothing.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending, StatusFailed:
		return next == StatusUploading
	case StatusUploading:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Submittable reports whether a sweep should pick up a report in status s
func (s Status) Submittable() bool {
	return s == StatusPending || s == StatusFailed
}
