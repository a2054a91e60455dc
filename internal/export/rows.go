package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/config"
	"github.com/bstardust/flood-survey-collector/internal/report"
)

// Sentinels for missing values
const (
	NotAvailable = "N/A"
	NotUploaded  = "Not Uploaded"
)

// DateLayout formats the creation time when a photo carries no capture time
const DateLayout = "2006-01-02 15:04:05"

// Headers are the column names of every tabular export
var Headers = []string{"ID", "Filename", "Date", "Latitude", "Longitude", "Device", "Drive_Link"}

// Row is one report flattened for export
type Row struct {
	ID        string
	Filename  string
	Date      string
	Latitude  *float64
	Longitude *float64
	Device    string
	Link      string
}

// Rows flattens reports in collection order
func Rows(reports []report.Report, viewerTemplate string) []Row {
	rows := make([]Row, 0, len(reports))
	for _, r := range reports {
		row := Row{
			ID:       r.ID,
			Filename: r.File.Name,
			Date:     r.Metadata.DateTime,
			Device:   r.Metadata.Device(),
			Link:     NotUploaded,
		}
		if row.Date == "" {
			row.Date = r.CreatedAt.Format(DateLayout)
		}
		if loc := r.Metadata.Location; loc != nil {
			lat, lng := loc.Latitude, loc.Longitude
			row.Latitude = &lat
			row.Longitude = &lng
		}
		if r.RemoteID != "" {
			row.Link = ViewerURL(viewerTemplate, r.RemoteID)
		}
		rows = append(rows, row)
	}
	return rows
}

// ViewerURL substitutes id into template
func ViewerURL(template, id string) string {
	if template == "" {
		template = config.DefaultViewerURLTemplate
	}
	return strings.ReplaceAll(template, "{id}", id)
}

// FileName is the spreadsheet name for an export made at now
func FileName(now time.Time) string {
	return "Flood_Data_" + now.Format("2006-01-02") + ".xlsx"
}

// Strings renders the row as text cells
func (r Row) Strings() []string {
	return []string{r.ID, r.Filename, r.Date, coordinate(r.Latitude), coordinate(r.Longitude), r.Device, r.Link}
}

func (r Row) cells() []interface{} {
	return []interface{}{r.ID, r.Filename, r.Date, coordinateCell(r.Latitude), coordinateCell(r.Longitude), r.Device, r.Link}
}

func coordinate(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func coordinateCell(v *float64) interface{} {
	if v == nil {
		return NotAvailable
	}
	return *v
}
