package export

import (
	"fmt"
	"io"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	width float64
	title string
}{
	{32, "Filename"},
	{36, "Date"},
	{22, "Latitude"},
	{22, "Longitude"},
	{34, "Device"},
	{44, "Link"},
}

// WritePDF writes a one-document summary: collection stats and a table of
// every report.
func WritePDF(w io.Writer, rows []Row, stats report.Stats, generated time.Time) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Flood Survey Report")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", generated.Format(DateLayout)))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Reports: %d   Mapped: %d   Uploaded: %d   Failed: %d   Pending: %d",
		stats.Total, stats.Mapped, stats.Completed, stats.Failed, stats.Pending))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 9)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		cells := row.Strings()[1:]
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, tr(truncate(cells[i], int(c.width/1.8))), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}
