package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/pkg/common"
)

// ErrNotFound is returned when a key has never been saved
var ErrNotFound = errors.New("preference not set")

// Store is a small persistent key-value store for user preferences
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Theme is the dashboard colour scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ThemeKey is the preference key holding the theme
const ThemeKey = "theme"

// ParseTheme validates a theme name
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("unknown theme %q (want light or dark)", s)
}

// LoadTheme reads the saved theme. Anything missing or unreadable falls
// back to light.
func LoadTheme(ctx context.Context, s Store) Theme {
	v, err := s.Get(ctx, ThemeKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to load theme preference: %v", err)
		}
		return ThemeLight
	}
	t, err := ParseTheme(v)
	if err != nil {
		logger.Warn("Ignoring stored theme: %v", err)
		return ThemeLight
	}
	return t
}

// SaveTheme persists t
func SaveTheme(ctx context.Context, s Store, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.Set(ctx, ThemeKey, string(t))
}

// Open returns the store selected by cfg
func Open(cfg config.PreferencesConfig) (Store, error) {
	switch cfg.Backend {
	case config.PreferencesFile, "":
		return NewFileStore(cfg.Path), nil
	case config.PreferencesSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, common.NewConfigError(fmt.Sprintf("unknown preferences backend %q", cfg.Backend))
	}
}
