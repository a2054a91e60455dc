package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/pkg/common"
	"github.com/bstardust/flood-survey-collector/pkg/s3client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock S3 Client
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	args := m.Called(ctx, reader, objectKey, size, metadata, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Stat(ctx context.Context, objectKey string) (s3client.ObjectInfo, error) {
	args := m.Called(ctx, objectKey)
	return args.Get(0).(s3client.ObjectInfo), args.Error(1)
}

func (m *MockObjectStore) List(ctx context.Context, prefix string) ([]s3client.ObjectInfo, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]s3client.ObjectInfo), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectKey, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Bucket() string {
	return "test-bucket"
}

func (m *MockObjectStore) Prefix() string {
	return ""
}

func TestObjectKey(t *testing.T) {
	day := time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024/01/05/r1-flood.jpg", ObjectKey(day, "r1", "flood.jpg"))
}

func TestObjectStoreUpload(t *testing.T) {
	store := new(MockObjectStore)
	c := NewObjectStoreClient(store)
	c.now = func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) }

	sub := submission(t, "flood.jpg", "jpeg bytes")
	sub.Metadata = metadata.Record{Make: "Canon", Location: &metadata.GeoLocation{Latitude: -3.5, Longitude: 114.2}}

	store.On("Put", mock.Anything, mock.Anything, "2024/02/01/r1-flood.jpg", int64(10),
		mock.MatchedBy(func(m map[string]string) bool {
			return m["camera-make"] == "Canon" && m["geo-latitude"] == "-3.5" && m["original-filename"] == "flood.jpg"
		}), "image/jpeg").Return(nil)

	receipt, err := c.Upload(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, "2024/02/01/r1-flood.jpg", receipt.RemoteID)
	store.AssertExpectations(t)
}

func TestObjectStoreUploadFailure(t *testing.T) {
	store := new(MockObjectStore)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	_, err := NewObjectStoreClient(store).Upload(context.Background(), submission(t, "a.jpg", "x"))

	var storageErr *common.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestObjectStoreListAll(t *testing.T) {
	store := new(MockObjectStore)
	modified := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

	store.On("List", mock.Anything, "").Return([]s3client.ObjectInfo{
		{Key: "2024/02/01/r1-a.jpg"},
		{Key: "2024/02/01/r2-gone.jpg"},
	}, nil)
	store.On("Stat", mock.Anything, "2024/02/01/r1-a.jpg").Return(s3client.ObjectInfo{
		Key:          "2024/02/01/r1-a.jpg",
		LastModified: modified,
		UserMetadata: map[string]string{
			"Camera-Make":       "Canon",
			"Geo-Latitude":      "-3.5",
			"Geo-Longitude":     "114.2",
			"Original-Filename": "a.jpg",
		},
	}, nil)
	store.On("Stat", mock.Anything, "2024/02/01/r2-gone.jpg").
		Return(s3client.ObjectInfo{}, fmt.Errorf("%w: gone", s3client.ErrObjectNotFound))
	store.On("PresignGet", mock.Anything, "2024/02/01/r1-a.jpg", defaultLinkExpiry).
		Return("https://minio/signed", nil)

	rows := NewObjectStoreClient(store).ListAll(context.Background())
	require.Len(t, rows, 1)

	assert.Equal(t, "2024/02/01/r1-a.jpg", rows[0].ID)
	assert.Equal(t, "a.jpg", rows[0].FileName)
	assert.Equal(t, "https://minio/signed", rows[0].Link)
	assert.Equal(t, "Canon", rows[0].CameraMaker)
	assert.Equal(t, FlexValue("-3.5"), rows[0].Latitude)
	assert.Equal(t, FlexValue("114.2"), rows[0].Longitude)
	assert.Equal(t, "2024-02-01T08:00:00Z", rows[0].ExtractionTimestamp)
}

func TestObjectStoreListAllFailureYieldsEmpty(t *testing.T) {
	store := new(MockObjectStore)
	store.On("List", mock.Anything, "").Return(nil, errors.New("access denied"))

	rows := NewObjectStoreClient(store).ListAll(context.Background())
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFactory(t *testing.T) {
	cfg := config.New()
	cfg.Storage.Endpoint = "https://script.example.com/exec"

	backend, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendScript, backend.Name)
	assert.IsType(t, &ScriptClient{}, backend.Uploader)

	orig := s3client.NewMinIOFunc
	defer func() { s3client.NewMinIOFunc = orig }()
	s3client.NewMinIOFunc = func(ctx context.Context, c s3client.Config) (s3client.ObjectStore, error) {
		return new(MockObjectStore), nil
	}

	cfg.Storage.Backend = config.BackendMinio
	cfg.S3 = config.S3Config{Endpoint: "localhost:9000", Bucket: "floods", AccessKey: "a", SecretKey: "s"}
	backend, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ObjectStoreClient{}, backend.Lister)

	cfg.Storage.Backend = "ftp"
	_, err = New(context.Background(), cfg)
	var cfgErr *common.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
