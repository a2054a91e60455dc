// internal/exif/exif.go
package exif

import (
	"fmt"
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Data represents EXIF metadata. Empty strings and nil pointers mean the tag
// was absent or unreadable.
type Data struct {
	DateTime string
	GPS      *GPSInfo
	Make     string
	Model    string
}

// GPSInfo represents GPS information from EXIF
type GPSInfo struct {
	Latitude  float64
	Longitude float64
	Altitude  *float64
}

// Extract extracts EXIF metadata from a reader. Non-critical decode errors
// still yield the tags that could be read.
func Extract(r io.Reader) (*Data, error) {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	data := &Data{
		Make:     stringTag(x, exif.Make),
		Model:    stringTag(x, exif.Model),
		DateTime: stringTag(x, exif.DateTimeOriginal),
	}
	data.GPS = gpsInfo(x)

	return data, nil
}

// SignedDegrees applies the hemisphere reference to a coordinate magnitude.
// The value is negated when ref starts with negRef ('S' or 'W').
func SignedDegrees(magnitude float64, ref string, negRef byte) float64 {
	ref = strings.TrimSpace(ref)
	if ref != "" && ref[0] == negRef {
		return -magnitude
	}
	return magnitude
}

// Degrees converts a degrees/minutes/seconds triple to decimal degrees
func Degrees(deg, min, sec float64) float64 {
	return deg + min/60 + sec/3600
}

func gpsInfo(x *exif.Exif) *GPSInfo {
	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return nil
	}
	lonTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return nil
	}

	lat, ok := dmsValue(latTag)
	if !ok {
		return nil
	}
	lon, ok := dmsValue(lonTag)
	if !ok {
		return nil
	}

	info := &GPSInfo{
		Latitude:  SignedDegrees(lat, stringTag(x, exif.GPSLatitudeRef), 'S'),
		Longitude: SignedDegrees(lon, stringTag(x, exif.GPSLongitudeRef), 'W'),
	}

	if altTag, err := x.Get(exif.GPSAltitude); err == nil {
		if alt, ok := ratValue(altTag, 0); ok {
			if ref, err := x.Get(exif.GPSAltitudeRef); err == nil {
				if v, err := ref.Int(0); err == nil && v == 1 {
					alt = -alt
				}
			}
			info.Altitude = &alt
		}
	}

	return info
}

// dmsValue reads a GPS coordinate stored as three rationals
func dmsValue(t *tiff.Tag) (float64, bool) {
	if t.Count < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := range parts {
		v, ok := ratValue(t, i)
		if !ok {
			return 0, false
		}
		parts[i] = v
	}
	return Degrees(parts[0], parts[1], parts[2]), true
}

func ratValue(t *tiff.Tag, i int) (float64, bool) {
	if uint32(i) >= t.Count {
		return 0, false
	}
	num, den, err := t.Rat2(i)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	t, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := t.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
