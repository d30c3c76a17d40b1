package web

import "github.com/mr1hm/go-lostfound/internal/models"

const (
	UnknownPetName   = "Unknown Pet"
	PlaceholderImage = "/lost-found/static/placeholder-pet.svg"
)

// Overlay is the detail card for a selected marker.
type Overlay struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Kind        models.Kind `json:"type"`
	KindLabel   string      `json:"type_label"`
	Description string      `json:"description"`
	TimeAgo     string      `json:"time_ago"`
	ImageURL    string      `json:"image_url"`
	Lat         float64     `json:"lat"`
	Lng         float64     `json:"lng"`
}

func NewOverlay(m models.MapMarker) Overlay {
	o := Overlay{
		ID:          m.ID,
		Title:       m.PetName,
		Kind:        m.Kind,
		KindLabel:   m.Kind.Label(),
		Description: m.Description,
		TimeAgo:     m.TimeAgo,
		ImageURL:    m.ImageURL,
		Lat:         m.Lat,
		Lng:         m.Lng,
	}
	if o.Title == "" {
		o.Title = UnknownPetName
	}
	if o.ImageURL == "" {
		o.ImageURL = PlaceholderImage
	}
	return o
}
