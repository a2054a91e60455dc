package export

import (
	"github.com/bstardust/flood-survey-collector/internal/report"
)

// FeatureCollection is a GeoJSON feature collection
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON point feature for one report
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Point             `json:"geometry"`
	Properties MarkerProperties `json:"properties"`
}

// Point is a GeoJSON point; coordinates are [lng, lat]
type Point struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// MarkerProperties carries what a map popup shows
type MarkerProperties struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Image  string `json:"image,omitempty"`
	Status string `json:"status"`
}

// Markers builds map points for the reports that carry a location.
// imageURL maps a preview reference to a URL and may be nil.
func Markers(reports []report.Report, imageURL func(ref string) string) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
	for _, r := range reports {
		loc := r.Metadata.Location
		if loc == nil {
			continue
		}

		props := MarkerProperties{
			ID:     r.ID,
			Title:  r.File.Name,
			Status: string(r.Status),
		}
		if imageURL != nil && r.Preview != "" {
			props.Image = imageURL(r.Preview)
		}

		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Point{
				Type:        "Point",
				Coordinates: []float64{loc.Longitude, loc.Latitude},
			},
			Properties: props,
		})
	}
	return fc
}
