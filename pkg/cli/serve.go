package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/preview"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/server"
	"github.com/bstardust/flood-survey-collector/internal/settings"
	"github.com/bstardust/flood-survey-collector/internal/storage"
	"github.com/bstardust/flood-survey-collector/internal/watcher"
	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
)

func newServeCommand(a *app) *cobra.Command {
	var showQR bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a, showQR)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	cmd.Flags().String("watch", "", "Turn photos appearing in this folder into reports")
	cmd.Flags().BoolVar(&showQR, "qr", false, "Print the dashboard URL as a QR code")
	a.bind("server.addr", cmd.Flags(), "addr")
	a.bind("server.watch_dir", cmd.Flags(), "watch")

	return cmd
}

func runServe(ctx context.Context, a *app, showQR bool) error {
	cfg := a.cfg

	backend, err := storage.New(ctx, cfg)
	if err != nil {
		return err
	}

	prefs, err := settings.Open(cfg.Preferences)
	if err != nil {
		return err
	}
	defer prefs.Close()

	previews := preview.NewRegistry()
	manager := report.NewManager(metadata.NewExtractor(), backend.Uploader,
		append([]report.Option{report.WithPreviews(previews)}, rateOption(cfg)...)...)
	defer manager.Close()

	srv, err := server.New(ctx, cfg, server.Deps{
		Manager:  manager,
		Previews: previews,
		Lister:   backend.Lister,
		Prefs:    prefs,
	})
	if err != nil {
		return err
	}
	logger.Info("Dashboard theme: %s", srv.Theme())

	if cfg.Server.WatchDir != "" {
		w, err := watcher.NewWatcher(cfg.Server.WatchDir, watcher.DefaultDebounce, func(path string) {
			f, err := media.FromPath(path)
			if err != nil {
				logger.Warn("Ignoring capture %s: %v", path, err)
				return
			}
			manager.AddReports(ctx, []media.File{f})
			logger.Info("New capture %s added as a report", f.Name)
		}, logger.Slog())
		if err != nil {
			srv.Close()
			return fmt.Errorf("failed to watch %s: %w", cfg.Server.WatchDir, err)
		}
		defer w.Close()
		logger.Info("Watching %s for new captures", cfg.Server.WatchDir)
	}

	if showQR {
		url := dashboardURL(cfg.Server.PublicURL, cfg.Server.Addr)
		fmt.Fprintf(a.out, "Open the dashboard at %s\n\n", url)
		qrterminal.GenerateHalfBlock(url, qrterminal.L, os.Stdout)
	}

	return srv.Run(ctx)
}

// dashboardURL is the public URL, or a local one derived from the listen
// address.
func dashboardURL(publicURL, addr string) string {
	if publicURL != "" {
		return publicURL
	}
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
