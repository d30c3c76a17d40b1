// Package web serves the Lost & Found map: markers, the detail overlay and
// the stray report form, one View per browser session.
package web

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-lostfound/internal/events"
	"github.com/mr1hm/go-lostfound/internal/geolocation"
	"github.com/mr1hm/go-lostfound/internal/models"
	"github.com/mr1hm/go-lostfound/internal/viewport"
	"github.com/mr1hm/go-lostfound/internal/workflow"
)

const (
	SessionCookie = "lostfound_session"
	SessionHeader = "X-Session-ID"

	maxPhotoBytes = 10 << 20

	// an open event stream marks its session active this often
	streamKeepalive = 30 * time.Second
)

var errSessionsClosed = errors.New("server shutting down")

//go:embed templates/*
var assets embed.FS

type Handler struct {
	sessions    *Sessions
	previews    *workflow.PreviewStore
	broadcaster *events.Broadcaster
	cookieAge   time.Duration
	keepalive   time.Duration
}

func NewHandler(sessions *Sessions, previews *workflow.PreviewStore, broadcaster *events.Broadcaster, cookieAge time.Duration) *Handler {
	return &Handler{
		sessions:    sessions,
		previews:    previews,
		broadcaster: broadcaster,
		cookieAge:   cookieAge,
		keepalive:   streamKeepalive,
	}
}

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(assets, "templates/*.html"))
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.SetHTMLTemplate(Templates())

	r.GET("/health", h.health)
	r.GET("/previews/:id", h.preview)

	lf := r.Group("/lost-found")
	lf.GET("", h.page)
	lf.GET("/static/placeholder-pet.svg", h.placeholder)
	lf.GET("/markers", h.markers)
	lf.GET("/markers.geojson", h.markersGeoJSON)
	lf.POST("/range", h.setRange)
	lf.GET("/selection", h.selection)
	lf.POST("/selection", h.selectMarker)
	lf.DELETE("/selection", h.clearSelection)
	lf.GET("/events", h.events)

	report := lf.Group("/report")
	report.GET("", h.reportState)
	report.POST("/open", h.openReport)
	report.POST("/fields", h.updateReport)
	report.POST("/photo", h.attachPhoto)
	report.DELETE("/photo", h.removePhoto)
	report.POST("/locating", h.beginLocating)
	report.POST("/location", h.locate)
	report.POST("/submit", h.submitReport)
	report.POST("/cancel", h.cancelReport)
}

// view resolves the caller's session, mounting a new view when the session
// is unknown or expired.
func (h *Handler) view(c *gin.Context) (*View, bool) {
	id := c.GetHeader(SessionHeader)
	if id == "" {
		id, _ = c.Cookie(SessionCookie)
	}
	if v, ok := h.sessions.Get(id); ok {
		c.Header(SessionHeader, v.ID)
		return v, true
	}

	v, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		slog.Error("failed to mount view", "error", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
		return nil, false
	}
	c.SetCookie(SessionCookie, v.ID, int(h.cookieAge.Seconds()), "/", "", false, true)
	c.Header(SessionHeader, v.ID)
	return v, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

type rangeOption struct {
	Days   int
	Label  string
	Active bool
}

type pageData struct {
	Session  string
	Ranges   []rangeOption
	Markers  []models.MapMarker
	Boot     markersResponse
	Report   workflow.Snapshot
	Selected *Overlay
}

func (h *Handler) page(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	resp := newMarkersResponse(v)

	ranges := make([]rangeOption, 0, len(models.TimeRanges))
	for _, tr := range models.TimeRanges {
		ranges = append(ranges, rangeOption{Days: tr.Days(), Label: tr.Label(), Active: tr == v.Range()})
	}

	c.HTML(http.StatusOK, "lostfound.html", pageData{
		Session:  v.ID,
		Ranges:   ranges,
		Markers:  resp.Markers,
		Boot:     resp,
		Report:   v.Workflow().Snapshot(),
		Selected: resp.Selected,
	})
}

func (h *Handler) placeholder(c *gin.Context) {
	data, err := assets.ReadFile("templates/placeholder-pet.svg")
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", data)
}

type markersResponse struct {
	markersPayload
	Viewport    viewport.Viewport `json:"viewport"`
	Controls    []string          `json:"controls"`
	Unreachable bool              `json:"unreachable"`
	Selected    *Overlay          `json:"selected"`
}

func newMarkersResponse(v *View) markersResponse {
	resp := markersResponse{
		markersPayload: newMarkersPayload(v.Range(), v.Markers()),
		Viewport:       v.Viewport(),
		Controls:       v.Controls(),
		Unreachable:    v.Unreachable(),
	}
	if o, ok := v.Selection(); ok {
		resp.Selected = &o
	}
	return resp
}

func (h *Handler) markers(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newMarkersResponse(v))
}

func (h *Handler) markersGeoJSON(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, toGeoJSON(v.Markers()))
}

type rangeRequest struct {
	Days int `form:"days" json:"days"`
}

func (h *Handler) setRange(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req rangeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "days must be 1, 3 or 7"})
		return
	}
	tr := models.TimeRange(req.Days)
	if !tr.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "days must be 1, 3 or 7"})
		return
	}

	v.Refresh(c.Request.Context(), tr)
	c.JSON(http.StatusOK, newMarkersResponse(v))
}

func (h *Handler) selection(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	o, ok := v.Selection()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"selected": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": o})
}

type selectRequest struct {
	ID string `form:"id" json:"id" binding:"required"`
}

func (h *Handler) selectMarker(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "id is required"})
		return
	}
	o, ok := v.Select(req.ID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "marker not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": o})
}

func (h *Handler) clearSelection(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	v.ClearSelection()
	c.JSON(http.StatusOK, gin.H{"selected": nil})
}

func (h *Handler) reportState(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v.Workflow().Snapshot())
}

func (h *Handler) openReport(c *gin.Context) {
	h.reportAction(c, func(v *View) error { return v.Workflow().Open() })
}

func (h *Handler) updateReport(c *gin.Context) {
	var fields workflow.Fields
	if err := c.ShouldBind(&fields); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid report fields"})
		return
	}
	h.reportAction(c, func(v *View) error { return v.Workflow().Update(fields) })
}

func (h *Handler) attachPhoto(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "photo is required"})
		return
	}
	if fh.Size > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "photo is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable photo"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "unreadable photo"})
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	photo := models.Photo{Filename: fh.Filename, ContentType: contentType, Data: data}

	h.reportAction(c, func(v *View) error { return v.Workflow().AttachPhoto(photo) })
}

func (h *Handler) removePhoto(c *gin.Context) {
	h.reportAction(c, func(v *View) error { return v.Workflow().RemovePhoto() })
}

// beginLocating is posted when the browser starts asking the device, so
// the pending state covers the whole wait.
func (h *Handler) beginLocating(c *gin.Context) {
	h.reportAction(c, func(v *View) error { return v.Workflow().BeginLocating() })
}

// locate applies a browser geolocation reading. A failed lookup is part of
// the form state, not an HTTP error.
func (h *Handler) locate(c *gin.Context) {
	var report geolocation.Report
	if err := c.ShouldBind(&report); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid location reading"})
		return
	}
	h.reportAction(c, func(v *View) error {
		err := v.Workflow().UseCurrentLocation(c.Request.Context(), report.Locator())
		var f *geolocation.Failure
		if errors.As(err, &f) {
			return nil
		}
		return err
	})
}

// submitReport answers with the resulting form state; a rejected
// submission shows up as its error message.
func (h *Handler) submitReport(c *gin.Context) {
	h.reportAction(c, func(v *View) error {
		err := v.Workflow().Submit(c.Request.Context())
		if errors.Is(err, workflow.ErrNotFilling) || errors.Is(err, workflow.ErrClosed) {
			return err
		}
		return nil
	})
}

func (h *Handler) cancelReport(c *gin.Context) {
	h.reportAction(c, func(v *View) error { return v.Workflow().Cancel() })
}

func (h *Handler) reportAction(c *gin.Context, action func(v *View) error) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	if err := action(v); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, workflow.ErrNotFilling):
			status = http.StatusConflict
		case errors.Is(err, workflow.ErrClosed):
			status = http.StatusGone
		case errors.Is(err, workflow.ErrNotImage):
			status = http.StatusUnsupportedMediaType
		}
		c.JSON(status, gin.H{"detail": err.Error(), "report": v.Workflow().Snapshot()})
		return
	}
	c.JSON(http.StatusOK, v.Workflow().Snapshot())
}

func (h *Handler) preview(c *gin.Context) {
	p, ok := h.previews.Open(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "preview not found"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, p.ContentType, p.Data)
}

// events streams the session's marker, viewport and report changes as
// server-sent events, starting with the current state. The stream keeps its
// session alive and ends when the view is unmounted.
func (h *Handler) events(c *gin.Context) {
	v, ok := h.view(c)
	if !ok {
		return
	}
	id, ch := h.broadcaster.Subscribe(v.ID)
	defer h.broadcaster.Unsubscribe(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(events.TypeMarkers, newMarkersPayload(v.Range(), v.Markers()))
	c.SSEvent(events.TypeViewport, v.Viewport())
	c.SSEvent(events.TypeReport, v.Workflow().Snapshot())
	c.SSEvent(events.TypeStatus, statusPayload{Unreachable: v.Unreachable()})
	c.Writer.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(e.Type, e.Payload)
			return true
		case <-keepalive.C:
			_, live := h.sessions.Get(v.ID)
			return live
		case <-ctx.Done():
			return false
		}
	})
}
