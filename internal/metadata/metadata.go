package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bstardust/flood-survey-collector/internal/exif"
	"github.com/bstardust/flood-survey-collector/internal/logger"
	"github.com/bstardust/flood-survey-collector/internal/media"
)

// Object metadata keys
const (
	KeyCameraMake       = "camera-make"
	KeyCameraModel      = "camera-model"
	KeyCaptureTime      = "capture-time"
	KeyLatitude         = "geo-latitude"
	KeyLongitude        = "geo-longitude"
	KeyAltitude         = "geo-altitude"
	KeyOriginalFilename = "original-filename"
)

// Record is the normalised metadata of a photo. Empty strings and a nil
// Location mean the value was absent or unreadable.
type Record struct {
	Make     string       `json:"make,omitempty"`
	Model    string       `json:"model,omitempty"`
	DateTime string       `json:"dateTime,omitempty"`
	Location *GeoLocation `json:"location,omitempty"`
}

// GeoLocation is a signed WGS84 position
type GeoLocation struct {
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lng"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// HasLocation reports whether both coordinates are known
func (r Record) HasLocation() bool {
	return r.Location != nil
}

// Device is the make and model joined by a space
func (r Record) Device() string {
	return strings.TrimSpace(r.Make + " " + r.Model)
}

// Extractor extracts metadata from photos
type Extractor struct{}

// NewExtractor creates a new metadata extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the embedded metadata of f. It never fails: unreadable or
// missing metadata yields an empty or partial record.
func (e *Extractor) Extract(f media.File) (rec Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("EXIF decoder panic on %s: %v", f.Name, r)
		}
	}()

	file, err := f.Open()
	if err != nil {
		logger.Warn("Failed to open %s for EXIF: %v", f.Name, err)
		return Record{}
	}
	defer file.Close()

	data, err := exif.Extract(file)
	if err != nil {
		logger.Warn("EXIF read error on %s: %v", f.Name, err)
		return Record{}
	}

	return FromEXIF(data)
}

// FromEXIF converts decoded EXIF data to a Record
func FromEXIF(data *exif.Data) Record {
	rec := Record{
		Make:     data.Make,
		Model:    data.Model,
		DateTime: data.DateTime,
	}
	if data.GPS != nil {
		rec.Location = &GeoLocation{
			Latitude:  data.GPS.Latitude,
			Longitude: data.GPS.Longitude,
			Altitude:  data.GPS.Altitude,
		}
	}
	return rec
}

// ToMap converts the record to a map for object metadata
func (r Record) ToMap() map[string]string {
	result := make(map[string]string)

	if r.Make != "" {
		result[KeyCameraMake] = r.Make
	}
	if r.Model != "" {
		result[KeyCameraModel] = r.Model
	}
	if r.DateTime != "" {
		result[KeyCaptureTime] = r.DateTime
	}
	if r.Location != nil {
		result[KeyLatitude] = formatFloat(r.Location.Latitude)
		result[KeyLongitude] = formatFloat(r.Location.Longitude)
		if r.Location.Altitude != nil {
			result[KeyAltitude] = formatFloat(*r.Location.Altitude)
		}
	}

	return result
}

// FromMap rebuilds a record from object metadata. Keys are matched
// case-insensitively since object stores normalise header case.
func FromMap(m map[string]string) Record {
	lookup := make(map[string]string, len(m))
	for k, v := range m {
		lookup[strings.TrimPrefix(strings.ToLower(k), "x-amz-meta-")] = v
	}

	rec := Record{
		Make:     lookup[KeyCameraMake],
		Model:    lookup[KeyCameraModel],
		DateTime: lookup[KeyCaptureTime],
	}

	lat, latErr := strconv.ParseFloat(lookup[KeyLatitude], 64)
	lon, lonErr := strconv.ParseFloat(lookup[KeyLongitude], 64)
	if latErr == nil && lonErr == nil {
		rec.Location = &GeoLocation{Latitude: lat, Longitude: lon}
		if alt, err := strconv.ParseFloat(lookup[KeyAltitude], 64); err == nil {
			rec.Location.Altitude = &alt
		}
	}

	return rec
}

// String formats the record for logs
func (r Record) String() string {
	loc := "no location"
	if r.Location != nil {
		loc = fmt.Sprintf("%s,%s", formatFloat(r.Location.Latitude), formatFloat(r.Location.Longitude))
	}
	return fmt.Sprintf("device=%q time=%q %s", r.Device(), r.DateTime, loc)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
