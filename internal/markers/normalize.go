// Package markers turns backend stray and lost records into map markers.
package markers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mr1hm/go-lostfound/internal/models"
)

// Normalizer is stateless apart from its clock; normalizing the same record
// at the same instant always yields the same marker.
type Normalizer struct {
	uploadsOrigin string
	now           func() time.Time
}

func NewNormalizer(uploadsOrigin string, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		uploadsOrigin: strings.TrimRight(uploadsOrigin, "/"),
		now:           now,
	}
}

func (n *Normalizer) Stray(r models.RawStrayReport) models.MapMarker {
	return models.MapMarker{
		ID:          "stray-" + string(r.ID),
		Lat:         models.Float(r.Lat),
		Lng:         models.Float(r.Lng),
		Kind:        models.KindStray,
		Description: r.Description,
		TimeAgo:     TimeAgo(r.ReportTime, n.now()),
		ImageURL:    ResolveImageURL(r.PhotoPath, n.uploadsOrigin),
	}
}

// Lost returns false for announcements already marked found.
func (n *Normalizer) Lost(a models.RawLostAnnouncement) (models.MapMarker, bool) {
	if a.Found() {
		return models.MapMarker{}, false
	}
	return models.MapMarker{
		ID:          "lost-" + string(a.ID),
		Lat:         models.Float(a.Lat),
		Lng:         models.Float(a.Lng),
		Kind:        models.KindLost,
		PetName:     a.Breed,
		Description: a.Description,
		TimeAgo:     TimeAgo(a.LostTime, n.now()),
		ImageURL:    ResolveImageURL(a.PhotoPath, n.uploadsOrigin),
	}, true
}

// Merge normalizes both sources into one list, strays first. Unmappable
// markers are kept; renderers filter them with Mappable.
func (n *Normalizer) Merge(strays []models.RawStrayReport, losts []models.RawLostAnnouncement) []models.MapMarker {
	out := make([]models.MapMarker, 0, len(strays)+len(losts))
	for _, r := range strays {
		out = append(out, n.Stray(r))
	}
	for _, a := range losts {
		if m, ok := n.Lost(a); ok {
			out = append(out, m)
		}
	}
	return out
}

func Mappable(markers []models.MapMarker) []models.MapMarker {
	out := make([]models.MapMarker, 0, len(markers))
	for _, m := range markers {
		if m.Mappable() {
			out = append(out, m)
		}
	}
	return out
}

func Find(markers []models.MapMarker, id string) (models.MapMarker, bool) {
	for _, m := range markers {
		if m.ID == id {
			return m, true
		}
	}
	return models.MapMarker{}, false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 and the zone-less ISO forms the backend
// emits. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimeAgo renders a coarse relative label. Unparseable input gives "".
func TimeAgo(iso string, now time.Time) string {
	t, ok := ParseTimestamp(iso)
	if !ok {
		return ""
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff/time.Minute))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff/time.Hour))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff/(24*time.Hour)))
	default:
		return t.Format("Jan 2, 2006")
	}
}

// ResolveImageURL rebases relative upload paths onto the uploads origin.
// Absolute URLs pass through and a missing path stays empty.
func ResolveImageURL(path, uploadsOrigin string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(uploadsOrigin, "/") + "/" + strings.TrimLeft(path, "/")
}
