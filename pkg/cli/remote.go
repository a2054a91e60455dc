package cli

import (
	"github.com/bstardust/flood-survey-collector/internal/storage"
	"github.com/spf13/cobra"
)

func newRemoteCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "List the reports already persisted by the storage endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := storage.New(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}

			rows := backend.Lister.ListAll(cmd.Context())
			if asJSON {
				return printJSON(a.out, rows)
			}
			return printRows(a.out, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}
