package storage

import (
	"context"
	"fmt"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/pkg/common"
	"github.com/bstardust/flood-survey-collector/pkg/s3client"
)

// Backend bundles the upload and listing sides of one storage collaborator
type Backend struct {
	Name     string
	Uploader report.Uploader
	Lister   Lister
}

// New builds the backend selected by cfg.Storage.Backend
func New(ctx context.Context, cfg *config.Config) (*Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendScript:
		client := NewScriptClient(cfg.Storage.Endpoint, cfg.Storage.Timeout)
		if !client.Configured() {
			logger.Warn("Storage endpoint is not configured; uploads will fail until storage.endpoint is set")
		}
		return &Backend{Name: config.BackendScript, Uploader: client, Lister: client}, nil

	case config.BackendMinio, config.BackendS3:
		provider := s3client.ProviderMinIO
		if cfg.Storage.Backend == config.BackendS3 {
			provider = s3client.ProviderAWS
		}

		store, err := s3client.New(ctx, s3client.Config{
			Provider:  provider,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, common.NewStorageError("failed to connect to object store", err)
		}

		client := NewObjectStoreClient(store)
		return &Backend{Name: cfg.Storage.Backend, Uploader: client, Lister: client}, nil

	default:
		return nil, common.NewConfigError(fmt.Sprintf("unsupported storage backend %q", cfg.Storage.Backend))
	}
}
