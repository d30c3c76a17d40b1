package models

import "math"

type Kind string

const (
	KindStray Kind = "stray"
	KindLost  Kind = "lost"
)

func (k Kind) Label() string {
	switch k {
	case KindStray:
		return "Stray"
	case KindLost:
		return "Lost"
	default:
		return "Unknown"
	}
}

// MapMarker is one point on the Lost & Found map. IDs are namespaced by kind
// ("stray-<id>", "lost-<id>") so they stay unique within one fetch.
type MapMarker struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Kind        Kind    `json:"type"`
	PetName     string  `json:"pet_name,omitempty"`
	Description string  `json:"description"`
	TimeAgo     string  `json:"time_ago"`
	ImageURL    string  `json:"image_url"`
}

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func (m MapMarker) Coordinates() Coordinates {
	return Coordinates{
		Latitude:  m.Lat,
		Longitude: m.Lng,
	}
}

// Mappable reports whether the marker can be drawn. (0,0) is the sentinel for
// "no location recorded" and is never drawn, even though it is a real place.
func (m MapMarker) Mappable() bool {
	return IsMappable(m.Lat, m.Lng)
}

func IsMappable(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat != 0 || lng != 0
}
