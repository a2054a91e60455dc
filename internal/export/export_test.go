package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/bstardust/flood-survey-collector/internal/media"
	"github.com/bstardust/flood-survey-collector/internal/metadata"
	"github.com/bstardust/flood-survey-collector/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var created = time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

func sampleReports() []report.Report {
	return []report.Report{
		{
			ID:        "r1",
			File:      media.File{Name: "river.jpg"},
			Preview:   "pv_1",
			CreatedAt: created,
			Status:    report.StatusCompleted,
			RemoteID:  "abc123",
			Metadata: metadata.Record{
				Make:     "Canon",
				Model:    "EOS 80D",
				DateTime: "2024:03:01 10:00:00",
				Location: &metadata.GeoLocation{Latitude: -3.5, Longitude: 114.2},
			},
		},
		{
			ID:        "r2",
			File:      media.File{Name: "street.png"},
			CreatedAt: created,
			Status:    report.StatusPending,
		},
		{
			ID:        "r3",
			File:      media.File{Name: "equator.jpg"},
			CreatedAt: created,
			Status:    report.StatusFailed,
			Metadata:  metadata.Record{Location: &metadata.GeoLocation{Latitude: 0, Longitude: 0}},
		},
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleReports(), "")
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"r1", "river.jpg", "2024:03:01 10:00:00", "-3.5", "114.2", "Canon EOS 80D",
		"https://drive.google.com/file/d/abc123/view"}, rows[0].Strings())
	assert.Equal(t, []string{"r2", "street.png", "2024-03-09 14:30:05", NotAvailable, NotAvailable, "", NotUploaded},
		rows[1].Strings())

	// zero is a real coordinate
	assert.Equal(t, "0", rows[2].Strings()[3])
	assert.Equal(t, "0", rows[2].Strings()[4])
}

func TestViewerURL(t *testing.T) {
	assert.Equal(t, "https://drive.google.com/file/d/x/view", ViewerURL("", "x"))
	assert.Equal(t, "https://minio.local/floods/2024/x.jpg", ViewerURL("https://minio.local/floods/{id}", "2024/x.jpg"))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Flood_Data_2024-03-09.xlsx", FileName(created))
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Rows(sampleReports(), "")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Headers, rows[0])
	assert.Equal(t, "river.jpg", rows[1][1])
	assert.Equal(t, NotAvailable, rows[2][3])
	assert.Equal(t, NotUploaded, rows[2][6])

	typ, err := f.GetCellType(SheetName, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Rows(sampleReports(), "")))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Headers, records[0])
	assert.Equal(t, "Canon EOS 80D", records[1][5])
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	stats := report.Stats{Total: 3, Mapped: 2, Completed: 1, Failed: 1, Pending: 1}

	require.NoError(t, WritePDF(&buf, Rows(sampleReports(), ""), stats, created))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghijk", 7))
}

func TestMarkers(t *testing.T) {
	fc := Markers(sampleReports(), func(ref string) string { return "/previews/" + ref })

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, []float64{114.2, -3.5}, first.Geometry.Coordinates)
	assert.Equal(t, "r1", first.Properties.ID)
	assert.Equal(t, "river.jpg", first.Properties.Title)
	assert.Equal(t, "/previews/pv_1", first.Properties.Image)
	assert.Equal(t, "completed", first.Properties.Status)

	assert.Empty(t, fc.Features[1].Properties.Image)
}

func TestMarkersEmptyEncodesArray(t *testing.T) {
	data, err := json.Marshal(Markers(nil, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, string(data))
}
