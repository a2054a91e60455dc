package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/export"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/progress"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/settings"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type reportView struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	Size        int64           `json:"size"`
	ContentType string          `json:"contentType"`
	PreviewURL  string          `json:"previewUrl,omitempty"`
	Metadata    metadata.Record `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
	Status      report.Status   `json:"status"`
	RemoteID    string          `json:"remoteId,omitempty"`
}

type syncView struct {
	Syncing  bool              `json:"syncing"`
	Progress *progress.Summary `json:"progress,omitempty"`
}

type themeView struct {
	Theme settings.Theme `json:"theme"`
}

func (s *Server) view(r report.Report) reportView {
	v := reportView{
		ID:          r.ID,
		Filename:    r.File.Name,
		Size:        r.File.Size,
		ContentType: r.File.ContentType,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
		Status:      r.Status,
		RemoteID:    r.RemoteID,
	}
	if r.Preview != "" {
		v.PreviewURL = s.previewURL(r.Preview)
	}
	return v
}

func (s *Server) views(reports []report.Report) []reportView {
	out := make([]reportView, len(reports))
	for i, r := range reports {
		out[i] = s.view(r)
	}
	return out
}

func (s *Server) previewURL(ref string) string {
	return strings.TrimSuffix(s.cfg.Server.PublicURL, "/") + "/previews/" + ref
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views(s.manager.List()))
}

// handleAddReports spools the multipart "files" parts and adds them as one
// batch. Non-image parts are skipped.
func (s *Server) handleAddReports(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files in form field \"files\"")
		return
	}

	files := make([]media.File, 0, len(headers))
	for _, h := range headers {
		name := filepath.Base(h.Filename)
		if !media.IsImageFile(name) {
			logger.Info("Skipping non-image upload %s", name)
			continue
		}
		f, err := s.spool(h, name)
		if err != nil {
			logger.Error("Failed to spool %s: %v", name, err)
			for _, done := range files {
				s.unspool(done)
			}
			writeError(w, http.StatusInternalServerError, "failed to store upload")
			return
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no image files in upload")
		return
	}

	added := s.manager.AddReports(r.Context(), files)
	writeJSON(w, http.StatusCreated, s.views(added))
}

// spool copies one upload into its own directory so the original file name
// survives. A failed copy leaves nothing behind.
func (s *Server) spool(h *multipart.FileHeader, name string) (f media.File, err error) {
	src, err := h.Open()
	if err != nil {
		return media.File{}, err
	}
	defer src.Close()

	dir := filepath.Join(s.spoolDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return media.File{}, err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(dir)
		}
	}()

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return media.File{}, err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return media.File{}, err
	}
	if err = dst.Close(); err != nil {
		return media.File{}, err
	}

	return media.FromPath(dst.Name())
}

// unspool removes the spool directory of f. Files from elsewhere, such as
// the watched capture folder, are left alone.
func (s *Server) unspool(f media.File) {
	dir := filepath.Dir(f.Path)
	if rel, err := filepath.Rel(s.spoolDir, dir); err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("Failed to remove spooled %s: %v", f.Name, err)
	}
}

// handleSubmit starts a sweep in the background
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if s.manager.Syncing() || !s.submitting.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, report.ErrSyncInProgress.Error())
		return
	}

	s.sweeps.Add(1)
	go func() {
		defer s.sweeps.Done()
		defer s.submitting.Store(false)

		summary, err := s.manager.SubmitAll(s.baseCtx)
		if err != nil {
			logger.Warn("Submission sweep: %v", err)
		}
		logger.Info("Submission sweep finished: %d uploaded, %d failed, %d skipped",
			summary.Completed, summary.Failed, summary.Skipped)
	}()

	writeJSON(w, http.StatusAccepted, syncView{Syncing: true})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	v := syncView{Syncing: s.manager.Syncing()}
	if summary, ok := s.manager.Progress(); ok {
		v.Progress = &summary
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Stats())
}

func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rep, _ := s.manager.Get(id)

	err := s.manager.Discard(id)
	switch {
	case errors.Is(err, report.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, report.ErrReportBusy):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.unspool(rep.File)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	f, ok := s.previews.Lookup(chi.URLParam(r, "ref"))
	if !ok {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	data, err := f.ReadAll()
	if err != nil {
		logger.Warn("Failed to read preview %s: %v", f.Name, err)
		writeError(w, http.StatusNotFound, "preview not readable")
		return
	}

	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, f.Name, f.ModTime, bytes.NewReader(data))
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, themeView{Theme: s.Theme()})
}

// handlePutTheme changes the theme for this session; it is written to the
// preference store when the server closes.
func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	theme, err := settings.ParseTheme(string(req.Theme))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.themeMu.Lock()
	s.theme = theme
	s.themeMu.Unlock()

	writeJSON(w, http.StatusOK, themeView{Theme: theme})
}

func (s *Server) exportRows() []export.Row {
	return export.Rows(s.manager.List(), s.cfg.Export.ViewerURLTemplate)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.writeFile(w, export.FileName(s.now()),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(buf io.Writer) error { return export.WriteXLSX(buf, s.exportRows()) })
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(export.FileName(s.now()), ".xlsx") + ".csv"
	s.writeFile(w, name, "text/csv", func(buf io.Writer) error {
		return export.WriteCSV(buf, s.exportRows())
	})
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(export.FileName(s.now()), ".xlsx") + ".pdf"
	s.writeFile(w, name, "application/pdf", func(buf io.Writer) error {
		return export.WritePDF(buf, s.exportRows(), s.manager.Stats(), s.now())
	})
}

// writeFile renders into memory first so a failure can still become an
// error status.
func (s *Server) writeFile(w http.ResponseWriter, name, contentType string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		logger.Error("Export %s failed: %v", name, err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, export.Markers(s.manager.List(), s.previewURL))
}

func (s *Server) handleRemote(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Storage.Timeout)
	defer cancel()
	writeJSON(w, http.StatusOK, s.lister.ListAll(ctx))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
