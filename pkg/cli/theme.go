package cli

import (
	"fmt"

	"github.com/bstardust/flood-survey-collector/internal/settings"
	"github.com/spf13/cobra"
)

func newThemeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [light|dark]",
		Short:     "Show or change the dashboard theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(settings.ThemeLight), string(settings.ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settings.Open(a.cfg.Preferences)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				fmt.Fprintln(a.out, settings.LoadTheme(cmd.Context(), store))
				return nil
			}

			theme, err := settings.ParseTheme(args[0])
			if err != nil {
				return err
			}
			if err := settings.SaveTheme(cmd.Context(), store, theme); err != nil {
				return fmt.Errorf("failed to save theme: %w", err)
			}
			fmt.Fprintln(a.out, theme)
			return nil
		},
	}
}
