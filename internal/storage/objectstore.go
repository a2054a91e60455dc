package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/pkg/common"
	"github.com/bstardust/flood-survey-collector/pkg/s3client"
)

const defaultLinkExpiry = 7 * 24 * time.Hour

// ObjectStoreClient stores reports in an S3-compatible bucket. The report
// metadata travels as object user metadata so listing can rebuild rows.
type ObjectStoreClient struct {
	store      s3client.ObjectStore
	linkExpiry time.Duration
	now        func() time.Time
}

// NewObjectStoreClient wraps an S3 client
func NewObjectStoreClient(store s3client.ObjectStore) *ObjectStoreClient {
	return &ObjectStoreClient{
		store:      store,
		linkExpiry: defaultLinkExpiry,
		now:        time.Now,
	}
}

// ObjectKey builds the storage key of a report: YYYY/MM/DD/<id>-<name>
func ObjectKey(day time.Time, reportID, name string) string {
	return fmt.Sprintf("%s/%s-%s", day.UTC().Format("2006/01/02"), reportID, path.Base(name))
}

// Upload stores the photo and returns its object key
func (c *ObjectStoreClient) Upload(ctx context.Context, s report.Submission) (report.Receipt, error) {
	f, err := s.File.Open()
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to open %s: %w", s.File.Name, err)
	}
	defer f.Close()

	key := ObjectKey(c.now(), s.ReportID, s.File.Name)

	meta := s.Metadata.ToMap()
	meta[metadata.KeyOriginalFilename] = s.File.Name

	if err := c.store.Put(ctx, f, key, s.File.Size, meta, s.File.ContentType); err != nil {
		return report.Receipt{}, common.NewStorageError(fmt.Sprintf("failed to store %s", s.File.Name), err)
	}

	return report.Receipt{RemoteID: key}, nil
}

// ListAll rebuilds rows from the stored objects. Objects that vanish during
// the listing are skipped; any other failure yields an empty slice.
func (c *ObjectStoreClient) ListAll(ctx context.Context) []Row {
	objects, err := c.store.List(ctx, "")
	if err != nil {
		logger.Error("Failed to list objects in %s: %s", c.store.Bucket(), s3client.FormatError(err))
		return []Row{}
	}

	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		info, err := c.store.Stat(ctx, obj.Key)
		if err != nil {
			if s3client.IsNotFoundError(err) {
				continue
			}
			logger.Error("Failed to stat %s: %s", obj.Key, s3client.FormatError(err))
			return []Row{}
		}

		link, err := c.store.PresignGet(ctx, obj.Key, c.linkExpiry)
		if err != nil {
			logger.Warn("Failed to presign %s: %v", obj.Key, err)
		}

		rows = append(rows, rowFromObject(info, link))
	}
	return rows
}

func rowFromObject(info s3client.ObjectInfo, link string) Row {
	rec := metadata.FromMap(info.UserMetadata)

	name := path.Base(info.Key)
	for k, v := range info.UserMetadata {
		if strings.EqualFold(k, metadata.KeyOriginalFilename) && v != "" {
			name = v
		}
	}

	row := Row{
		ID:                  info.Key,
		FileName:            name,
		Link:                link,
		CaptureDate:         rec.DateTime,
		CameraMaker:         rec.Make,
		CameraModel:         rec.Model,
		ExtractionTimestamp: info.LastModified.UTC().Format(time.RFC3339),
	}
	if rec.Location != nil {
		row.Latitude = flexFloat(rec.Location.Latitude)
		row.Longitude = flexFloat(rec.Location.Longitude)
		if rec.Location.Altitude != nil {
			row.Altitude = flexFloat(*rec.Location.Altitude)
		}
	}
	return row
}
