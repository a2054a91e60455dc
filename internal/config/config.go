package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/utils"
	"github.com/bstardust/flood-survey-collector/pkg/common"
	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendScript = "script"
	BackendMinio  = "minio"
	BackendS3     = "s3"
)

// Preference store backends
const (
	PreferencesFile   = "file"
	PreferencesSQLite = "sqlite"
)

// DefaultViewerURLTemplate builds a Google Drive viewer link from a file id
const DefaultViewerURLTemplate = "https://drive.google.com/file/d/{id}/view"

// Config represents the application configuration
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	LogFile     string            `mapstructure:"log_file"`
	Storage     StorageConfig     `mapstructure:"storage"`
	S3          S3Config          `mapstructure:"s3"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Export      ExportConfig      `mapstructure:"export"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Server      ServerConfig      `mapstructure:"server"`
}

// StorageConfig selects the upload/listing collaborator
type StorageConfig struct {
	Backend  string        `mapstructure:"backend"`
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// S3Config represents S3 connection configuration
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// UploadConfig represents upload configuration
type UploadConfig struct {
	RatePerMinute int    `mapstructure:"rate_per_minute"`
	SpoolDir      string `mapstructure:"spool_dir"`
	DryRun        bool   `mapstructure:"dry_run"`
}

// ExportConfig controls spreadsheet and PDF output
type ExportConfig struct {
	Dir               string `mapstructure:"dir"`
	ViewerURLTemplate string `mapstructure:"viewer_url_template"`
}

// PreferencesConfig locates the theme preference store
type PreferencesConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// ServerConfig configures the dashboard API
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	PublicURL      string   `mapstructure:"public_url"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	WatchDir       string   `mapstructure:"watch_dir"`
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: BackendScript,
			Timeout: 60 * time.Second,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Upload: UploadConfig{
			SpoolDir: filepath.Join(os.TempDir(), "flood-collector"),
		},
		Export: ExportConfig{
			Dir:               ".",
			ViewerURLTemplate: DefaultViewerURLTemplate,
		},
		Preferences: PreferencesConfig{
			Backend: PreferencesFile,
			Path:    defaultPreferencesPath(),
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
	}
}

// Load reads configuration from path (or the default search locations when
// path is empty), FLOOD_* environment variables and any flags bound on v.
func Load(v *viper.Viper, path string) (*Config, error) {
	cfg := New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("flood-collector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "flood-collector"))
		}
	}

	v.SetEnvPrefix("FLOOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be fixed later at use time
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendScript:
		if endpoint := strings.TrimSpace(c.Storage.Endpoint); endpoint != "" && !IsPlaceholder(endpoint) {
			if _, err := utils.ParseEndpointURL(endpoint); err != nil {
				return common.NewConfigError(fmt.Sprintf("storage.endpoint: %v", err))
			}
		}
	case BackendMinio, BackendS3:
		if c.S3.Bucket != "" {
			if err := utils.ValidateS3BucketName(c.S3.Bucket); err != nil {
				return common.NewConfigError(fmt.Sprintf("s3.bucket: %v", err))
			}
		}
		// object keys are not Drive file ids
		if c.Export.ViewerURLTemplate == DefaultViewerURLTemplate {
			return common.NewConfigError(fmt.Sprintf("export.viewer_url_template must be set for the %s backend", c.Storage.Backend))
		}
	default:
		return common.NewConfigError(fmt.Sprintf("unsupported storage backend %q", c.Storage.Backend))
	}

	switch c.Preferences.Backend {
	case PreferencesFile, PreferencesSQLite:
	default:
		return common.NewConfigError(fmt.Sprintf("unsupported preferences backend %q", c.Preferences.Backend))
	}

	if c.Upload.RatePerMinute < 0 {
		return common.NewConfigError("upload.rate_per_minute must not be negative")
	}
	if !strings.Contains(c.Export.ViewerURLTemplate, "{id}") {
		return common.NewConfigError("export.viewer_url_template must contain {id}")
	}
	return nil
}

// IsPlaceholder reports whether endpoint is the unedited sample value
func IsPlaceholder(endpoint string) bool {
	return strings.Contains(endpoint, "PASTE_YOUR_")
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("storage.backend", cfg.Storage.Backend)
	v.SetDefault("storage.endpoint", cfg.Storage.Endpoint)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)
	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.bucket", cfg.S3.Bucket)
	v.SetDefault("s3.access_key", cfg.S3.AccessKey)
	v.SetDefault("s3.secret_key", cfg.S3.SecretKey)
	v.SetDefault("s3.use_ssl", cfg.S3.UseSSL)
	v.SetDefault("s3.prefix", cfg.S3.Prefix)
	v.SetDefault("upload.rate_per_minute", cfg.Upload.RatePerMinute)
	v.SetDefault("upload.spool_dir", cfg.Upload.SpoolDir)
	v.SetDefault("upload.dry_run", cfg.Upload.DryRun)
	v.SetDefault("export.dir", cfg.Export.Dir)
	v.SetDefault("export.viewer_url_template", cfg.Export.ViewerURLTemplate)
	v.SetDefault("preferences.backend", cfg.Preferences.Backend)
	v.SetDefault("preferences.path", cfg.Preferences.Path)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.public_url", cfg.Server.PublicURL)
	v.SetDefault("server.jwt_secret", cfg.Server.JWTSecret)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)
	v.SetDefault("server.watch_dir", cfg.Server.WatchDir)
}

func defaultPreferencesPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flood-collector-preferences.json"
	}
	return filepath.Join(home, ".flood-collector-preferences.json")
}
