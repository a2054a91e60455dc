package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/export"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/preview"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type uploadOptions struct {
	exportDir string
	pdf       bool
}

func newUploadCommand(a *app) *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload [flags] <photo|folder|archive.zip|glob>...",
		Short: "Extract metadata from photos and upload them as reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), a, opts, args)
		},
	}

	// Upload options
	cmd.Flags().Bool("dry-run", false, "Extract metadata only, upload nothing")
	cmd.Flags().Int("rate", 0, "Maximum uploads per minute (0 = unlimited)")
	a.bind("upload.dry_run", cmd.Flags(), "dry-run")
	a.bind("upload.rate_per_minute", cmd.Flags(), "rate")

	// Export options
	cmd.Flags().StringVar(&opts.exportDir, "export", "", "Write a spreadsheet of the reports into this directory")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "With --export, also write a PDF summary")

	return cmd
}

func runUpload(ctx context.Context, a *app, opts *uploadOptions, args []string) error {
	cfg := a.cfg

	collection, err := media.Collect(ctx, args)
	if err != nil {
		return err
	}
	defer collection.Close()

	if len(collection.Files) == 0 {
		return fmt.Errorf("no photos found in %s", strings.Join(args, ", "))
	}
	logger.Info("Found %d photos (%d other files skipped)", len(collection.Files), collection.Skipped)

	var uploader report.Uploader
	if !cfg.Upload.DryRun {
		backend, err := storage.New(ctx, cfg)
		if err != nil {
			return err
		}
		uploader = backend.Uploader
	}

	previews := preview.NewRegistry()
	manager := report.NewManager(metadata.NewExtractor(), uploader,
		append([]report.Option{report.WithPreviews(previews)}, rateOption(cfg)...)...)
	defer manager.Close()

	manager.AddReports(ctx, collection.Files)

	var runErr error
	if cfg.Upload.DryRun {
		logger.Info("Dry run: nothing uploaded")
	} else {
		summary, err := manager.SubmitAll(ctx)
		if err != nil {
			runErr = err
		}
		logger.Info("Upload finished in %s: %d uploaded, %d failed, %d skipped",
			summary.Duration.Round(time.Millisecond), summary.Completed, summary.Failed, summary.Skipped)
		if runErr == nil && summary.Failed > 0 {
			runErr = fmt.Errorf("%d of %d reports failed to upload", summary.Failed, summary.Total)
		}
	}

	reports := manager.List()
	if err := printReports(a.out, reports, cfg.Export.ViewerURLTemplate); err != nil {
		return err
	}

	if opts.exportDir != "" {
		if err := writeExports(opts.exportDir, opts.pdf, reports, manager.Stats(), cfg, time.Now()); err != nil {
			return err
		}
	}

	return runErr
}

func rateOption(cfg *config.Config) []report.Option {
	if cfg.Upload.RatePerMinute <= 0 {
		return nil
	}
	limit := rate.Every(time.Minute / time.Duration(cfg.Upload.RatePerMinute))
	return []report.Option{report.WithRateLimit(rate.NewLimiter(limit, 1))}
}

func writeExports(dir string, pdf bool, reports []report.Report, stats report.Stats, cfg *config.Config, now time.Time) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	rows := export.Rows(reports, cfg.Export.ViewerURLTemplate)
	name := export.FileName(now)

	if err := writeFile(filepath.Join(dir, name), func(w io.Writer) error {
		return export.WriteXLSX(w, rows)
	}); err != nil {
		return err
	}

	if pdf {
		pdfName := strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf"
		if err := writeFile(filepath.Join(dir, pdfName), func(w io.Writer) error {
			return export.WritePDF(w, rows, stats, now)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("Wrote %s", path)
	return nil
}
