// Package reportstore persists stray reports and lost announcements for the
// reference backend.
package reportstore

import (
	"context"
	"errors"
	"time"

	"github.com/mr1hm/go-lostfound/internal/models"
)

// TimeLayout is how report and lost times are stored. It sorts lexically.
const TimeLayout = "2006-01-02T15:04:05"

var ErrNotFound = errors.New("record not found")

// Circle limits results to records within RadiusMeters of a center point.
type Circle struct {
	Lat          float64
	Lng          float64
	RadiusMeters float64
}

type Filter struct {
	Since        *time.Time
	Near         *Circle
	ExcludeFound bool // lost announcements only
}

type StrayRepository interface {
	AddStray(ctx context.Context, r *models.RawStrayReport) error
	ListStray(ctx context.Context, opts Filter) ([]models.RawStrayReport, error)
}

type LostRepository interface {
	AddLost(ctx context.Context, a *models.RawLostAnnouncement) error
	ListLost(ctx context.Context, opts Filter) ([]models.RawLostAnnouncement, error)
	SetLostStatus(ctx context.Context, id, status string) (*models.RawLostAnnouncement, error)
}

type Repository interface {
	StrayRepository
	LostRepository
}

// FormatTime renders t in the stored layout, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts RFC 3339 and zone-less ISO timestamps; zone-less values
// are taken as UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", TimeLayout, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
