package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/preview"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/settings"
	"github.com/bstardust/flood-survey-collector/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedUploader blocks every upload until release is closed
type gatedUploader struct {
	release chan struct{}
	calls   atomic.Int32
}

func (u *gatedUploader) Upload(ctx context.Context, s report.Submission) (report.Receipt, error) {
	u.calls.Add(1)
	if u.release != nil {
		<-u.release
	}
	return report.Receipt{RemoteID: "remote-" + s.File.Name}, nil
}

type stubLister struct {
	rows []storage.Row
}

func (l stubLister) ListAll(ctx context.Context) []storage.Row {
	return l.rows
}

type fixture struct {
	srv      *Server
	handler  http.Handler
	manager  *report.Manager
	uploader *gatedUploader
	prefs    settings.Store
	cfg      *config.Config
}

func newFixture(t *testing.T, secret string) *fixture {
	t.Helper()

	cfg := config.New()
	cfg.Upload.SpoolDir = t.TempDir()
	cfg.Server.JWTSecret = secret
	cfg.Server.PublicURL = "http://dashboard.test"

	up := &gatedUploader{}
	prefs := settings.NewFileStore(filepath.Join(t.TempDir(), "prefs.json"))
	previews := preview.NewRegistry()
	manager := report.NewManager(metadata.NewExtractor(), up, report.WithPreviews(previews))

	srv, err := New(context.Background(), cfg, Deps{
		Manager:  manager,
		Previews: previews,
		Lister:   stubLister{rows: []storage.Row{{ID: "row-1", FileName: "old.jpg"}}},
		Prefs:    prefs,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, handler: srv.Handler(), manager: manager, uploader: up, prefs: prefs, cfg: cfg}
}

func (f *fixture) do(t *testing.T, method, path string, body *bytes.Buffer, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func uploadForm(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, n := range names {
		part, err := mw.CreateFormFile("files", n)
		require.NoError(t, err)
		_, err = part.Write([]byte("not really a jpeg: " + n))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) addReports(t *testing.T, token string, names ...string) []reportView {
	t.Helper()
	body, ct := uploadForm(t, names...)
	rec := f.do(t, http.MethodPost, "/api/reports", body, ct, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var views []reportView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	return views
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, "secret")
	rec := f.do(t, http.MethodGet, "/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddListAndPreview(t *testing.T) {
	f := newFixture(t, "")

	views := f.addReports(t, "", "a.jpg", "notes.txt", "b.png")
	require.Len(t, views, 2)
	assert.Equal(t, "a.jpg", views[0].Filename)
	assert.Equal(t, "b.png", views[1].Filename)
	assert.Equal(t, report.StatusPending, views[0].Status)
	assert.True(t, strings.HasPrefix(views[0].PreviewURL, "http://dashboard.test/previews/pv_"))

	rec := f.do(t, http.MethodGet, "/api/reports", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []reportView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)

	path := strings.TrimPrefix(views[0].PreviewURL, "http://dashboard.test")
	rec = f.do(t, http.MethodGet, path, nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not really a jpeg: a.jpg", rec.Body.String())
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestAddReportsRejectsEmptyUpload(t *testing.T) {
	f := newFixture(t, "")

	body, ct := uploadForm(t, "readme.md")
	rec := f.do(t, http.MethodPost, "/api/reports", body, ct, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/reports", bytes.NewBufferString("{}"), "application/json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRunsInBackgroundAndRejectsReentry(t *testing.T) {
	f := newFixture(t, "")
	f.uploader.release = make(chan struct{})
	f.addReports(t, "", "a.jpg", "b.jpg")

	rec := f.do(t, http.MethodPost, "/api/reports/submit", nil, "", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool { return f.uploader.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodPost, "/api/reports/submit", nil, "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/sync", nil, "", "")
	var sv syncView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sv))
	assert.True(t, sv.Syncing)

	close(f.uploader.release)
	require.Eventually(t, func() bool { return f.manager.Stats().Completed == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return !f.srv.submitting.Load() }, 2*time.Second, 10*time.Millisecond)

	for _, r := range f.manager.List() {
		assert.Equal(t, "remote-"+r.File.Name, r.RemoteID)
	}
}

func TestDiscard(t *testing.T) {
	f := newFixture(t, "")
	views := f.addReports(t, "", "a.jpg")

	rec := f.do(t, http.MethodDelete, "/api/reports/"+views[0].ID, nil, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.manager.List())

	rec = f.do(t, http.MethodDelete, "/api/reports/"+views[0].ID, nil, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	path := strings.TrimPrefix(views[0].PreviewURL, "http://dashboard.test")
	rec = f.do(t, http.MethodGet, path, nil, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func spooled(t *testing.T, f *fixture) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.srv.SpoolDir())
	require.NoError(t, err)
	return entries
}

func TestDiscardRemovesSpooledFile(t *testing.T) {
	f := newFixture(t, "")
	views := f.addReports(t, "", "a.jpg", "b.jpg")
	require.Len(t, spooled(t, f), 2)

	rec := f.do(t, http.MethodDelete, "/api/reports/"+views[0].ID, nil, "", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, spooled(t, f), 1)

	// the remaining report still reads its own bytes
	path := strings.TrimPrefix(views[1].PreviewURL, "http://dashboard.test")
	rec = f.do(t, http.MethodGet, path, nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not really a jpeg: b.jpg", rec.Body.String())
}

func TestFailedBatchLeavesNoSpooledFiles(t *testing.T) {
	f := newFixture(t, "")

	// longer than any file system allows for a single name
	tooLong := strings.Repeat("x", 300) + ".jpg"
	body, ct := uploadForm(t, "a.jpg", tooLong)
	rec := f.do(t, http.MethodPost, "/api/reports", body, ct, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	assert.Empty(t, spooled(t, f))
	assert.Empty(t, f.manager.List())
}

func TestStats(t *testing.T) {
	f := newFixture(t, "")
	f.addReports(t, "", "a.jpg", "b.jpg")

	rec := f.do(t, http.MethodGet, "/api/stats", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats report.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 0, stats.Mapped)
}

func TestThemePreference(t *testing.T) {
	f := newFixture(t, "")

	rec := f.do(t, http.MethodGet, "/api/preferences/theme", nil, "", "")
	assert.JSONEq(t, `{"theme":"light"}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/preferences/theme", bytes.NewBufferString(`{"theme":"dark"}`), "application/json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/preferences/theme", nil, "", "")
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/preferences/theme", bytes.NewBufferString(`{"theme":"neon"}`), "application/json", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err := f.prefs.Get(context.Background(), settings.ThemeKey)
	assert.ErrorIs(t, err, settings.ErrNotFound)

	f.srv.Close()
	assert.Equal(t, settings.ThemeDark, settings.LoadTheme(context.Background(), f.prefs))
}

func TestRoles(t *testing.T) {
	f := newFixture(t, "secret")

	surveyor, err := SignToken("secret", RoleSurveyor, time.Hour)
	require.NoError(t, err)
	admin, err := SignToken("secret", RoleAdmin, time.Hour)
	require.NoError(t, err)
	forged, err := SignToken("other", RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/reports", nil, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/reports", nil, "", forged).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/reports", nil, "", surveyor).Code)

	for _, path := range []string{"/api/export.xlsx", "/api/export.csv", "/api/export.pdf", "/api/markers", "/api/remote"} {
		assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, path, nil, "", surveyor).Code, path)
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, path, nil, "", admin).Code, path)
	}
}

func TestExports(t *testing.T) {
	f := newFixture(t, "")
	f.srv.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }
	f.addReports(t, "", "a.jpg")

	rec := f.do(t, http.MethodGet, "/api/export.xlsx", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Flood_Data_2024-03-09.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = f.do(t, http.MethodGet, "/api/export.csv", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Flood_Data_2024-03-09.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Filename,Date,Latitude,Longitude,Device,Drive_Link", lines[0])
	assert.Contains(t, lines[1], "a.jpg,")
	assert.Contains(t, lines[1], "Not Uploaded")

	rec = f.do(t, http.MethodGet, "/api/export.pdf", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Flood_Data_2024-03-09.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	// the uploaded bytes carry no GPS, so there is nothing to map
	rec = f.do(t, http.MethodGet, "/api/markers", nil, "", "")
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
}

func TestRemote(t *testing.T) {
	f := newFixture(t, "")
	rec := f.do(t, http.MethodGet, "/api/remote", nil, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []storage.Row
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "old.jpg", rows[0].FileName)
}

func TestCloseRemovesSpool(t *testing.T) {
	f := newFixture(t, "")
	f.addReports(t, "", "a.jpg")

	f.srv.Close()
	_, err := os.Stat(f.srv.SpoolDir())
	assert.True(t, os.IsNotExist(err))
}

func TestParseToken(t *testing.T) {
	tok, err := SignToken("s", RoleAdmin, time.Hour)
	require.NoError(t, err)

	role, err := ParseToken("s", tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	expired, err := SignToken("s", RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("s", expired)
	assert.Error(t, err)

	_, err = SignToken("", RoleAdmin, time.Hour)
	assert.Error(t, err)

	_, err = ParseRole("guest")
	assert.Error(t, err)
}
