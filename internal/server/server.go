// Package server is the dashboard backend: a JSON API over the report
// manager plus exports for admins.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/preview"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/settings"
	"github.com/bstardust/flood-survey-collector/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// maxUploadMemory bounds the in-memory part of a multipart upload
const maxUploadMemory = 32 << 20

// Deps are the collaborators the server exposes
type Deps struct {
	Manager  *report.Manager
	Previews *preview.Registry
	Lister   storage.Lister
	Prefs    settings.Store
}

// Server serves the dashboard API
type Server struct {
	cfg      *config.Config
	manager  *report.Manager
	previews *preview.Registry
	lister   storage.Lister
	prefs    settings.Store
	secret   string
	spoolDir string
	now      func() time.Time

	baseCtx    context.Context
	submitting atomic.Bool
	sweeps     sync.WaitGroup

	themeMu sync.RWMutex
	theme   settings.Theme
}

// New creates a server. ctx bounds the background sweeps it starts.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Manager == nil || deps.Previews == nil {
		return nil, errors.New("server needs a report manager and a preview registry")
	}

	if err := os.MkdirAll(cfg.Upload.SpoolDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	spool, err := os.MkdirTemp(cfg.Upload.SpoolDir, "session-")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool session: %w", err)
	}
	if spool, err = filepath.Abs(spool); err != nil {
		return nil, fmt.Errorf("failed to resolve spool session: %w", err)
	}

	theme := settings.ThemeLight
	if deps.Prefs != nil {
		theme = settings.LoadTheme(ctx, deps.Prefs)
	}

	return &Server{
		theme:    theme,
		cfg:      cfg,
		manager:  deps.Manager,
		previews: deps.Previews,
		lister:   deps.Lister,
		prefs:    deps.Prefs,
		secret:   cfg.Server.JWTSecret,
		spoolDir: spool,
		now:      time.Now,
		baseCtx:  ctx,
	}, nil
}

// Theme returns the current dashboard theme
func (s *Server) Theme() settings.Theme {
	s.themeMu.RLock()
	defer s.themeMu.RUnlock()
	return s.theme
}

// SpoolDir is where uploaded photos of this session are kept
func (s *Server) SpoolDir() string {
	return s.spoolDir
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(s.authenticate)

		pr.Get("/previews/{ref}", s.handlePreview)

		pr.Route("/api", func(api chi.Router) {
			api.Route("/reports", func(rr chi.Router) {
				rr.Get("/", s.handleListReports)
				rr.Post("/", s.handleAddReports)
				rr.Post("/submit", s.handleSubmit)
				rr.Delete("/{id}", s.handleDiscard)
			})
			api.Get("/sync", s.handleSync)
			api.Get("/stats", s.handleStats)
			api.Get("/preferences/theme", s.handleGetTheme)
			api.Put("/preferences/theme", s.handlePutTheme)

			api.Group(func(ar chi.Router) {
				ar.Use(requireAdmin)
				ar.Get("/export.xlsx", s.handleExportXLSX)
				ar.Get("/export.csv", s.handleExportCSV)
				ar.Get("/export.pdf", s.handleExportPDF)
				ar.Get("/markers", s.handleMarkers)
				ar.Get("/remote", s.handleRemote)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then waits for running sweeps and
// removes the spool directory.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dashboard listening on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Dashboard shutdown: %v", err)
	}

	s.Close()
	return runErr
}

// Close waits for background sweeps, saves the theme and removes spooled
// uploads.
func (s *Server) Close() {
	s.sweeps.Wait()

	if s.prefs != nil {
		if err := settings.SaveTheme(context.Background(), s.prefs, s.Theme()); err != nil {
			logger.Warn("Failed to save theme preference: %v", err)
		}
	}
	if err := os.RemoveAll(s.spoolDir); err != nil {
		logger.Warn("Failed to remove spool directory %s: %v", s.spoolDir, err)
	}
}
