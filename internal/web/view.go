package web

import (
	"context"
	"sync"
	"time"

	"github.com/mr1hm/go-lostfound/internal/aggregation"
	"github.com/mr1hm/go-lostfound/internal/events"
	"github.com/mr1hm/go-lostfound/internal/geolocation"
	"github.com/mr1hm/go-lostfound/internal/markers"
	"github.com/mr1hm/go-lostfound/internal/models"
	"github.com/mr1hm/go-lostfound/internal/viewport"
	"github.com/mr1hm/go-lostfound/internal/workflow"
)

// InitialView is shown until the first non-empty marker set arrives.
var InitialView = viewport.Viewport{
	Center:    viewport.Point{Lat: 20, Lng: 0},
	Zoom:      2,
	PaddingPx: viewport.PaddingPx,
	MaxZoom:   viewport.NeighborhoodZoom,
}

// Deps are shared by every view.
type Deps struct {
	Source       aggregation.Source
	Submitter    workflow.Submitter
	Normalizer   *markers.Normalizer
	Previews     *workflow.PreviewStore
	Broadcaster  *events.Broadcaster
	Geolocation  geolocation.Options
	Clock        workflow.Clock
	SuccessDelay time.Duration
	MapSize      viewport.Size

	// InitialCenter replaces InitialView's center when set.
	InitialCenter *viewport.Point

	// DefaultRange is the range a new view loads; invalid means 24h.
	DefaultRange models.TimeRange
}

// View is one browser session's Lost & Found page: its marker list, map
// surface, selection and report form.
type View struct {
	ID string

	deps       Deps
	fetcher    *aggregation.Fetcher
	surface    *viewport.MapState
	controller *viewport.Controller
	workflow   *workflow.Workflow

	// mu guards the fields below. It is never held while calling into the
	// store or the workflow.
	mu          sync.Mutex
	timeRange   models.TimeRange
	selected    string
	unreachable bool
	lastSeen    time.Time
	closed      bool
}

func newView(id string, deps Deps, now time.Time) *View {
	tr := deps.DefaultRange
	if !tr.Valid() {
		tr = models.TimeRangeDay
	}
	v := &View{
		ID:        id,
		deps:      deps,
		timeRange: tr,
		lastSeen:  now,
	}

	initial := InitialView
	if deps.InitialCenter != nil {
		initial.Center = *deps.InitialCenter
	}
	v.surface = viewport.NewMapState(initial)
	v.controller = viewport.NewController(v.surface, deps.MapSize)

	store := aggregation.NewStore(v.markersChanged)
	v.fetcher = aggregation.NewFetcher(deps.Source, deps.Normalizer, store)

	v.workflow = workflow.New(workflow.Options{
		Submitter:    deps.Submitter,
		Refresh:      v.refreshCurrent,
		Previews:     deps.Previews,
		Acquirer:     geolocation.NewAcquirer(nil, deps.Geolocation),
		Clock:        deps.Clock,
		SuccessDelay: deps.SuccessDelay,
		OnChange:     v.reportChanged,
	})
	return v
}

func (v *View) mount() error {
	return v.controller.Mount()
}

// Close unmounts the view: the form is discarded with its preview, late
// fetch results are ignored, the zoom control is detached and the session's
// event streams end so browsers reconnect to a live view.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.workflow.Close()
	v.fetcher.Store().Close()
	v.controller.Unmount()
	v.surface.Close()
	if v.deps.Broadcaster != nil {
		v.deps.Broadcaster.CloseSession(v.ID)
	}
}

// Refresh reloads markers for tr and makes it the current range.
func (v *View) Refresh(ctx context.Context, tr models.TimeRange) aggregation.Result {
	v.mu.Lock()
	v.timeRange = tr
	v.mu.Unlock()

	res := v.fetcher.Refresh(ctx, tr)
	if !res.Applied {
		return res
	}
	v.mu.Lock()
	changed := v.unreachable != res.Unreachable()
	v.unreachable = res.Unreachable()
	v.mu.Unlock()
	if changed {
		v.publish(events.TypeStatus, statusPayload{Unreachable: res.Unreachable()})
	}
	return res
}

func (v *View) refreshCurrent(ctx context.Context) {
	v.Refresh(ctx, v.Range())
}

func (v *View) Range() models.TimeRange {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.timeRange
}

func (v *View) Unreachable() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unreachable
}

func (v *View) Markers() []models.MapMarker {
	return v.fetcher.Store().Markers()
}

// Viewport is the view the map should currently show.
func (v *View) Viewport() viewport.Viewport {
	return v.surface.View()
}

func (v *View) Controls() []string {
	return v.surface.Controls()
}

func (v *View) Workflow() *workflow.Workflow {
	return v.workflow
}

// Select marks id as selected. It reports false if no such marker is loaded.
func (v *View) Select(id string) (Overlay, bool) {
	m, ok := markers.Find(v.Markers(), id)
	if !ok {
		return Overlay{}, false
	}
	v.mu.Lock()
	v.selected = id
	v.mu.Unlock()
	return NewOverlay(m), true
}

func (v *View) ClearSelection() {
	v.mu.Lock()
	v.selected = ""
	v.mu.Unlock()
}

// Selection returns the overlay for the selected marker, if any.
func (v *View) Selection() (Overlay, bool) {
	v.mu.Lock()
	id := v.selected
	v.mu.Unlock()
	if id == "" {
		return Overlay{}, false
	}
	m, ok := markers.Find(v.Markers(), id)
	if !ok {
		return Overlay{}, false
	}
	return NewOverlay(m), true
}

func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *View) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return now.Sub(v.lastSeen)
}

// markersChanged runs under the store lock on every applied refresh.
func (v *View) markersChanged(list []models.MapMarker) {
	v.mu.Lock()
	if v.selected != "" {
		if _, ok := markers.Find(list, v.selected); !ok {
			v.selected = ""
		}
	}
	tr := v.timeRange
	v.mu.Unlock()

	if v.controller.Update(list) {
		v.publish(events.TypeViewport, v.surface.View())
	}
	v.publish(events.TypeMarkers, newMarkersPayload(tr, list))
}

func (v *View) reportChanged(s workflow.Snapshot) {
	v.publish(events.TypeReport, s)
}

func (v *View) publish(eventType string, payload any) {
	if v.deps.Broadcaster == nil {
		return
	}
	v.deps.Broadcaster.Broadcast(events.Event{Session: v.ID, Type: eventType, Payload: payload})
}

type statusPayload struct {
	Unreachable bool `json:"unreachable"`
}

type markersPayload struct {
	Range      int                `json:"range"`
	RangeLabel string             `json:"range_label"`
	Markers    []models.MapMarker `json:"markers"`
	Mappable   []models.MapMarker `json:"mappable"`
}

func newMarkersPayload(tr models.TimeRange, list []models.MapMarker) markersPayload {
	mappable := markers.Mappable(list)
	if mappable == nil {
		mappable = []models.MapMarker{}
	}
	if list == nil {
		list = []models.MapMarker{}
	}
	return markersPayload{
		Range:      tr.Days(),
		RangeLabel: tr.Label(),
		Markers:    list,
		Mappable:   mappable,
	}
}
