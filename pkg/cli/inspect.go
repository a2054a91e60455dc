package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/spf13/cobra"
)

type inspectedFile struct {
	File     string          `json:"file"`
	Metadata metadata.Record `json:"metadata"`
}

func newInspectCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <photo|folder|archive.zip|glob>...",
		Short: "Print the metadata extracted from photos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), a, args, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	return cmd
}

func runInspect(ctx context.Context, a *app, args []string, asJSON bool) error {
	collection, err := media.Collect(ctx, args)
	if err != nil {
		return err
	}
	defer collection.Close()

	extractor := metadata.NewExtractor()
	results := make([]inspectedFile, 0, len(collection.Files))
	for _, f := range collection.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		results = append(results, inspectedFile{File: f.Path, Metadata: extractor.Extract(f)})
	}

	if asJSON {
		return printJSON(a.out, results)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tDATE\tLAT\tLNG\tALT\tDEVICE")
	for _, r := range results {
		m := r.Metadata.ToMap()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.File,
			orDash(r.Metadata.DateTime),
			orDash(m[metadata.KeyLatitude]),
			orDash(m[metadata.KeyLongitude]),
			orDash(m[metadata.KeyAltitude]),
			orDash(r.Metadata.Device()))
	}
	return tw.Flush()
}
