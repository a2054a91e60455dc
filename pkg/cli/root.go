// pkg/cli/root.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries what every command shares: the viper instance flags are bound
// to and the configuration loaded from it before the command runs.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logFile    io.Closer
	out        io.Writer
}

// bind ties a command flag to a configuration key
func (a *app) bind(key string, flags *pflag.FlagSet, name string) {
	if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", name, err))
	}
}

// load reads .env, the config file and the environment, then sets up logging
func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Could not load .env: %v", err)
	}

	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger.SetLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.Setup(os.Stderr, f)
		a.logFile = f
	}
	return nil
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
}

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flood-collector",
		Short: "Collect geotagged flood survey photos and upload them as reports",
		Long: `A tool for field surveyors: it reads GPS, capture time and camera data from
flood photos, stages each photo as a report and uploads the reports to the
configured storage endpoint. Admins can review, map and export the reports.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default ./flood-collector.yaml or ~/.config/flood-collector/flood-collector.yaml)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Also write JSON logs to this file")
	flags.String("backend", config.BackendScript, "Storage backend (script, minio, s3)")
	flags.String("endpoint", "", "Storage script endpoint URL")
	a.bind("log_level", flags, "log-level")
	a.bind("log_file", flags, "log-file")
	a.bind("storage.backend", flags, "backend")
	a.bind("storage.endpoint", flags, "endpoint")

	// Add commands
	rootCmd.AddCommand(
		newUploadCommand(a),
		newInspectCommand(a),
		newRemoteCommand(a),
		newServeCommand(a),
		newThemeCommand(a),
		newTokenCommand(a),
	)

	return rootCmd
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	a := &app{v: viper.New(), out: os.Stdout}
	rootCmd := newRootCommand(a)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("Error executing command: %v", err)
		a.close()
		os.Exit(1)
	}
}
