package report

import (
	"context"
	"errors"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingRemoteID   = errors.New("completed report requires a remote id")
	ErrSyncInProgress    = errors.New("a submission sweep is already running")
	ErrReportBusy        = errors.New("report is being uploaded")
	ErrNotFound          = errors.New("report not found")
)

// Report is one photo staged for upload. Only Status and RemoteID change
// after creation.
type Report struct {
	ID        string
	File      media.File
	Preview   string
	Metadata  metadata.Record
	CreatedAt time.Time
	Status    Status
	RemoteID  string
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Status   *Status
	RemoteID *string
}

// StatusPatch builds a patch that only changes the status
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// CompletedPatch builds the patch applied after a successful upload
func CompletedPatch(remoteID string) Patch {
	s := StatusCompleted
	return Patch{Status: &s, RemoteID: &remoteID}
}

// Submission is what the uploader receives for one report
type Submission struct {
	ReportID string
	File     media.File
	Metadata metadata.Record
}

// Receipt is the uploader's answer for an accepted submission
type Receipt struct {
	RemoteID string
}

// Extractor reads photo metadata. It must not fail.
type Extractor interface {
	Extract(f media.File) metadata.Record
}

// Uploader sends one report to remote storage
type Uploader interface {
	Upload(ctx context.Context, s Submission) (Receipt, error)
}

// Previews manages local preview references
type Previews interface {
	Create(f media.File) string
	Release(ref string)
}

// Stats summarises the collection
type Stats struct {
	Total     int `json:"total"`
	Mapped    int `json:"mapped"`
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}
