package web

import "github.com/mr1hm/go-lostfound/internal/models"

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders the mappable markers only.
func toGeoJSON(list []models.MapMarker) FeatureCollection {
	features := make([]Feature, 0, len(list))

	for _, m := range list {
		if !m.Mappable() {
			continue
		}
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{m.Lng, m.Lat},
			},
			Properties: map[string]any{
				"id":          m.ID,
				"type":        string(m.Kind),
				"pet_name":    m.PetName,
				"description": m.Description,
				"time_ago":    m.TimeAgo,
				"image_url":   m.ImageURL,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
