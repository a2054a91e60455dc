package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/pkg/common"
)

// ScriptClient talks to a web-app endpoint that stores uploaded photos and
// serves the stored rows back as JSON.
type ScriptClient struct {
	endpoint   string
	httpClient *http.Client
}

type uploadRequest struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}

type uploadResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	FileID  string `json:"fileId"`
	ID      string `json:"id"`
	URL     string `json:"url"`
}

// NewScriptClient creates a client for endpoint
func NewScriptClient(endpoint string, timeout time.Duration) *ScriptClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ScriptClient{
		endpoint: strings.TrimSpace(endpoint),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Configured reports whether a real endpoint has been set
func (c *ScriptClient) Configured() bool {
	return c.endpoint != "" && !config.IsPlaceholder(c.endpoint)
}

// Upload sends the photo as base64 JSON and returns the stored file id
func (c *ScriptClient) Upload(ctx context.Context, s report.Submission) (report.Receipt, error) {
	if !c.Configured() {
		return report.Receipt{}, common.ErrEndpointNotConfigured
	}

	content, err := s.File.ReadAll()
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to read %s: %w", s.File.Name, err)
	}

	body, err := json.Marshal(uploadRequest{
		Base64:   base64.StdEncoding.EncodeToString(content),
		MimeType: s.File.ContentType,
		FileName: s.File.Name,
	})
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to marshal upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return report.Receipt{}, fmt.Errorf("failed to send upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return report.Receipt{}, common.NewUploadError(resp.StatusCode, msg)
	}

	var result uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return report.Receipt{}, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if result.Status == "error" {
		return report.Receipt{}, common.NewUploadError(0, result.Message)
	}

	remoteID := result.FileID
	if remoteID == "" {
		remoteID = result.ID
	}
	if remoteID == "" {
		return report.Receipt{}, common.NewUploadError(0, "response carried no file id")
	}

	logger.Debug("Stored %s as %s", s.File.Name, remoteID)
	return report.Receipt{RemoteID: remoteID}, nil
}

// ListAll fetches every stored row. Any failure is logged and yields an
// empty slice.
func (c *ScriptClient) ListAll(ctx context.Context) []Row {
	if !c.Configured() {
		logger.Warn("Storage endpoint is not configured; no remote rows")
		return []Row{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		logger.Error("Failed to build listing request: %v", err)
		return []Row{}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Failed to fetch remote rows: %v", err)
		return []Row{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Error("Listing request failed with status %d", resp.StatusCode)
		return []Row{}
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		logger.Error("Failed to decode remote rows: %v", err)
		return []Row{}
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows
}
