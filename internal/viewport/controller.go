package viewport

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mr1hm/go-lostfound/internal/models"
)

type Control interface {
	Name() string
}

// ZoomControl is the +/- affordance kept on the map surface.
type ZoomControl struct {
	Position string `json:"position"`
}

func (z *ZoomControl) Name() string { return "zoom" }

// Surface is the map being driven. Implementations may be torn down under
// the controller, so RemoveControl is allowed to fail or panic.
type Surface interface {
	Apply(v Viewport)
	AddControl(c Control) error
	RemoveControl(c Control) error
}

// Controller recenters a Surface whenever the set of mappable coordinates
// changes. Reordering the list or touching non-coordinate fields is not a
// change.
type Controller struct {
	surface Surface
	size    Size
	zoom    *ZoomControl

	mu       sync.Mutex
	lastKey  string
	mounted  bool
	lastView *Viewport
}

func NewController(surface Surface, size Size) *Controller {
	return &Controller{
		surface: surface,
		size:    size,
		zoom:    &ZoomControl{Position: "bottomright"},
	}
}

func (c *Controller) Mount() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mounted {
		return nil
	}
	if err := c.surface.AddControl(c.zoom); err != nil {
		return fmt.Errorf("attaching zoom control: %w", err)
	}
	c.mounted = true
	return nil
}

// Unmount detaches the zoom control. Failures from a surface that is already
// gone are logged and dropped.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted {
		return
	}
	c.mounted = false

	defer func() {
		if r := recover(); r != nil {
			slog.Debug("zoom control detach panicked", "panic", r)
		}
	}()
	if err := c.surface.RemoveControl(c.zoom); err != nil {
		slog.Debug("zoom control detach failed", "error", err)
	}
}

// Update applies a new viewport if the mappable coordinate set changed and
// is non-empty. It reports whether the surface was touched.
func (c *Controller) Update(markers []models.MapMarker) bool {
	key := coordinateKey(markers)

	c.mu.Lock()
	defer c.mu.Unlock()
	if key == c.lastKey {
		return false
	}
	c.lastKey = key

	v, ok := Fit(markers, c.size)
	if !ok {
		return false
	}
	c.lastView = &v
	c.surface.Apply(v)
	return true
}

func (c *Controller) Current() (Viewport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastView == nil {
		return Viewport{}, false
	}
	return *c.lastView, true
}

func coordinateKey(markers []models.MapMarker) string {
	coords := make([]string, 0, len(markers))
	for _, m := range markers {
		if m.Mappable() {
			coords = append(coords, fmt.Sprintf("%g,%g", m.Lat, m.Lng))
		}
	}
	sort.Strings(coords)
	return strings.Join(coords, ";")
}
