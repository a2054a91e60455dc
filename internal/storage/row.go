package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
)

// Row is one persisted report as returned by the listing endpoint. Field
// names follow the endpoint's spreadsheet columns.
type Row struct {
	ID                  string    `json:"id"`
	FileName            string    `json:"nama_file"`
	Link                string    `json:"link_drive"`
	CaptureDate         string    `json:"tanggal_pengambilan"`
	Latitude            FlexValue `json:"latitude"`
	Longitude           FlexValue `json:"longitude"`
	Altitude            FlexValue `json:"altitude"`
	CameraMaker         string    `json:"camera_maker"`
	CameraModel         string    `json:"camera_model"`
	ExtractionTimestamp string    `json:"timestamp_ekstraksi"`
}

// Lister returns every row the remote side holds. Failures yield an empty
// slice, never an error.
type Lister interface {
	ListAll(ctx context.Context) []Row
}

// FlexValue is a spreadsheet cell that may arrive as a JSON number or string
type FlexValue string

// UnmarshalJSON accepts numbers, strings and null
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FlexValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = FlexValue(n.String())
	return nil
}

// Float parses the value as a number
func (v FlexValue) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func flexFloat(f float64) FlexValue {
	return FlexValue(strconv.FormatFloat(f, 'f', -1, 64))
}
