// Package viewport fits the Lost & Found map to the current marker set.
package viewport

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/mr1hm/go-lostfound/internal/models"
)

const (
	// NeighborhoodZoom is roughly street-block scale on a 256px tile map. It
	// is the single-point zoom and the cap when fitting bounds.
	NeighborhoodZoom = 15
	// PaddingPx is the margin kept between the outermost markers and the
	// edge of the map surface.
	PaddingPx = 50
	tileSize  = 256
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Contains tolerates the rounding left by the degree/radian round trip.
func (b Bounds) Contains(p Point) bool {
	const eps = 1e-9
	if p.Lat < b.South-eps || p.Lat > b.North+eps {
		return false
	}
	if b.West > b.East {
		return p.Lng >= b.West-eps || p.Lng <= b.East+eps
	}
	return p.Lng >= b.West-eps && p.Lng <= b.East+eps
}

// Viewport is what the map surface should show. Bounds is nil for a single
// marker; otherwise it is the tight box and PaddingPx is applied on screen.
type Viewport struct {
	Center    Point   `json:"center"`
	Zoom      int     `json:"zoom"`
	Bounds    *Bounds `json:"bounds,omitempty"`
	PaddingPx int     `json:"padding_px"`
	MaxZoom   int     `json:"max_zoom"`
}

type Size struct {
	Width  int
	Height int
}

var DefaultSize = Size{Width: 1024, Height: 768}

// Fit computes the viewport for the mappable markers. It returns false when
// there is nothing to show, in which case the current view should be left
// as is.
func Fit(markers []models.MapMarker, size Size) (Viewport, bool) {
	rect := s2.EmptyRect()
	count := 0
	var only models.MapMarker
	for _, m := range markers {
		if !m.Mappable() {
			continue
		}
		rect = rect.AddPoint(s2.LatLngFromDegrees(m.Lat, m.Lng))
		only = m
		count++
	}

	switch count {
	case 0:
		return Viewport{}, false
	case 1:
		return Viewport{
			Center:  Point{Lat: only.Lat, Lng: only.Lng},
			Zoom:    NeighborhoodZoom,
			MaxZoom: NeighborhoodZoom,
		}, true
	}

	lo, hi := rect.Lo(), rect.Hi()
	bounds := Bounds{
		South: lo.Lat.Degrees(),
		West:  lo.Lng.Degrees(),
		North: hi.Lat.Degrees(),
		East:  hi.Lng.Degrees(),
	}
	center := rect.Center()

	return Viewport{
		Center:    Point{Lat: center.Lat.Degrees(), Lng: center.Lng.Degrees()},
		Zoom:      boundsZoom(bounds, size, PaddingPx, NeighborhoodZoom),
		Bounds:    &bounds,
		PaddingPx: PaddingPx,
		MaxZoom:   NeighborhoodZoom,
	}, true
}

// boundsZoom is the largest integer web-mercator zoom at which the bounds fit
// inside the padded surface, capped at maxZoom.
func boundsZoom(b Bounds, size Size, padding, maxZoom int) int {
	w := float64(size.Width - 2*padding)
	h := float64(size.Height - 2*padding)
	if w <= 0 || h <= 0 {
		return 0
	}

	lngSpan := b.East - b.West
	if lngSpan < 0 {
		lngSpan += 360 // crosses the antimeridian
	}
	dx := lngSpan / 360 * tileSize
	dy := math.Abs(mercatorY(b.North)-mercatorY(b.South)) * tileSize

	scale := math.Inf(1)
	if dx > 0 {
		scale = math.Min(scale, w/dx)
	}
	if dy > 0 {
		scale = math.Min(scale, h/dy)
	}
	if math.IsInf(scale, 1) {
		return maxZoom
	}

	zoom := int(math.Floor(math.Log2(scale)))
	if zoom > maxZoom {
		return maxZoom
	}
	if zoom < 0 {
		return 0
	}
	return zoom
}

// mercatorY maps latitude to [0,1] on the zoom-0 web-mercator square.
func mercatorY(lat float64) float64 {
	const maxLat = 85.0511287798
	lat = math.Max(-maxLat, math.Min(maxLat, lat))
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}
