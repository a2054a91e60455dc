package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bstardust/flood-survey-collector/internal/export"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/bstardust/flood-survey-collector/internal/storage"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReports(w io.Writer, reports []report.Report, viewerTemplate string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tDATE\tLAT\tLNG\tDEVICE\tLINK")
	rows := export.Rows(reports, viewerTemplate)
	for i, r := range reports {
		cells := rows[i].Strings()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			cells[1], r.Status, cells[2], cells[3], cells[4], orDash(cells[5]), cells[6])
	}
	return tw.Flush()
}

func printRows(w io.Writer, rows []storage.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tDATE\tLAT\tLNG\tCAMERA\tLINK")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FileName, orDash(r.CaptureDate), orDash(string(r.Latitude)), orDash(string(r.Longitude)),
			orDash(r.CameraMaker+" "+r.CameraModel), r.Link)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" || s == " " {
		return "-"
	}
	return s
}
