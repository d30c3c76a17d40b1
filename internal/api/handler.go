// Package api is the HTTP surface of the reference report backend.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mr1hm/go-lostfound/internal/geocode"
	"github.com/mr1hm/go-lostfound/internal/models"
	"github.com/mr1hm/go-lostfound/internal/reportstore"
)

const (
	strayUploads = "stray"
	lostUploads  = "lost"
	unknownBreed = "Unknown"
)

type Handler struct {
	repo      reportstore.Repository
	geocoder  geocode.Reverser
	uploadDir string
	now       func() time.Time
}

func NewHandler(repo reportstore.Repository, geocoder geocode.Reverser, uploadDir string) *Handler {
	if geocoder == nil {
		geocoder = geocode.Disabled{}
	}
	return &Handler{
		repo:      repo,
		geocoder:  geocoder,
		uploadDir: uploadDir,
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	r.Static("/uploads", h.uploadDir)

	api := r.Group("/api")
	api.GET("/map/stray", h.mapStray)
	api.GET("/map/lost", h.mapLost)
	api.POST("/stray-report", h.createStrayReport)
	api.GET("/stray-report", h.listStrayReports)
	api.POST("/lost-dog", h.createLostDog)
	api.GET("/lost-dog", h.listLostDogs)
	api.PATCH("/lost-dog/:id/status", h.updateLostStatus)
}

// Envelope wraps every successful response.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Code: http.StatusOK, Message: "success", Data: data})
}

func fail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) mapStray(c *gin.Context) {
	filter, err := h.mapFilter(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	reports, err := h.repo.ListStray(c.Request.Context(), filter)
	if err != nil {
		slog.Error("failed to list stray reports", "error", err)
		fail(c, http.StatusInternalServerError, "failed to fetch stray reports")
		return
	}
	success(c, http.StatusOK, reports)
}

func (h *Handler) mapLost(c *gin.Context) {
	filter, err := h.mapFilter(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	filter.ExcludeFound = true
	announcements, err := h.repo.ListLost(c.Request.Context(), filter)
	if err != nil {
		slog.Error("failed to list lost announcements", "error", err)
		fail(c, http.StatusInternalServerError, "failed to fetch lost announcements")
		return
	}
	success(c, http.StatusOK, announcements)
}

// mapFilter reads days, lat, lng and radius. The radius filter only applies
// when all three location parameters are present.
func (h *Handler) mapFilter(c *gin.Context) (reportstore.Filter, error) {
	var filter reportstore.Filter

	if d := c.Query("days"); d != "" {
		days, err := strconv.Atoi(d)
		if err != nil {
			return filter, fmt.Errorf("days must be an integer")
		}
		if days > 0 {
			since := h.now().UTC().AddDate(0, 0, -days)
			filter.Since = &since
		}
	}

	lat, err := queryFloat(c, "lat")
	if err != nil {
		return filter, err
	}
	lng, err := queryFloat(c, "lng")
	if err != nil {
		return filter, err
	}
	radius, err := queryFloat(c, "radius")
	if err != nil {
		return filter, err
	}
	if lat != nil && lng != nil && radius != nil && *radius > 0 {
		filter.Near = &reportstore.Circle{Lat: *lat, Lng: *lng, RadiusMeters: *radius}
	}
	return filter, nil
}

func queryFloat(c *gin.Context, key string) (*float64, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &f, nil
}

func (h *Handler) createStrayReport(c *gin.Context) {
	lat, lng, err := formCoordinates(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	photoPath, err := h.savePhoto(c, strayUploads)
	if err != nil {
		slog.Error("failed to save stray photo", "error", err)
		fail(c, http.StatusInternalServerError, "failed to save photo")
		return
	}

	report := &models.RawStrayReport{
		Description: c.PostForm("description"),
		Lat:         lat,
		Lng:         lng,
		ReportTime:  h.formTime(c.PostForm("report_time")),
		PhotoPath:   photoPath,
	}
	if lat != nil && lng != nil {
		report.Address = h.geocoder.Reverse(c.Request.Context(), *lat, *lng)
	}

	if err := h.repo.AddStray(c.Request.Context(), report); err != nil {
		slog.Error("failed to store stray report", "error", err)
		fail(c, http.StatusInternalServerError, "failed to store report")
		return
	}

	slog.Info("stray report created", "id", report.ID, "has_photo", photoPath != "")
	success(c, http.StatusCreated, report)
}

func (h *Handler) listStrayReports(c *gin.Context) {
	reports, err := h.repo.ListStray(c.Request.Context(), reportstore.Filter{})
	if err != nil {
		slog.Error("failed to list stray reports", "error", err)
		fail(c, http.StatusInternalServerError, "failed to fetch stray reports")
		return
	}
	success(c, http.StatusOK, reports)
}

func (h *Handler) createLostDog(c *gin.Context) {
	lat, lng, err := formCoordinates(c)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	photoPath, err := h.savePhoto(c, lostUploads)
	if err != nil {
		slog.Error("failed to save lost photo", "error", err)
		fail(c, http.StatusInternalServerError, "failed to save photo")
		return
	}

	breed := strings.TrimSpace(c.PostForm("breed"))
	if breed == "" {
		breed = unknownBreed
	}
	a := &models.RawLostAnnouncement{
		Breed:       breed,
		Description: c.PostForm("description"),
		LostTime:    h.formTime(c.PostForm("lost_time")),
		Lat:         lat,
		Lng:         lng,
		Address:     c.PostForm("address"),
		Contact:     c.PostForm("contact"),
		PhotoPath:   photoPath,
		Status:      models.LostStatusPending,
	}

	if err := h.repo.AddLost(c.Request.Context(), a); err != nil {
		slog.Error("failed to store lost announcement", "error", err)
		fail(c, http.StatusInternalServerError, "failed to store announcement")
		return
	}

	slog.Info("lost announcement created", "id", a.ID, "breed", a.Breed)
	success(c, http.StatusCreated, a)
}

func (h *Handler) listLostDogs(c *gin.Context) {
	announcements, err := h.repo.ListLost(c.Request.Context(), reportstore.Filter{})
	if err != nil {
		slog.Error("failed to list lost announcements", "error", err)
		fail(c, http.StatusInternalServerError, "failed to fetch lost announcements")
		return
	}
	success(c, http.StatusOK, announcements)
}

func (h *Handler) updateLostStatus(c *gin.Context) {
	status := c.Query("status")
	if status != models.LostStatusPending && status != models.LostStatusFound {
		fail(c, http.StatusBadRequest, "invalid status")
		return
	}

	a, err := h.repo.SetLostStatus(c.Request.Context(), c.Param("id"), status)
	if errors.Is(err, reportstore.ErrNotFound) {
		fail(c, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		slog.Error("failed to update lost status", "id", c.Param("id"), "error", err)
		fail(c, http.StatusInternalServerError, "failed to update status")
		return
	}
	success(c, http.StatusOK, a)
}

// formCoordinates parses lat and lng; an empty field means not recorded.
func formCoordinates(c *gin.Context) (lat, lng *float64, err error) {
	parse := func(key string) (*float64, error) {
		v := strings.TrimSpace(c.PostForm(key))
		if v == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		return &f, nil
	}
	if lat, err = parse("lat"); err != nil {
		return nil, nil, err
	}
	if lng, err = parse("lng"); err != nil {
		return nil, nil, err
	}
	return lat, lng, nil
}

// formTime stores the submitted time, or now when it is empty or unreadable.
func (h *Handler) formTime(v string) string {
	if t, ok := reportstore.ParseTime(strings.TrimSpace(v)); ok {
		return reportstore.FormatTime(t)
	}
	return reportstore.FormatTime(h.now())
}

// savePhoto stores the "photo" upload under uploadDir/kind and returns its
// public path. Non-image uploads are ignored.
func (h *Handler) savePhoto(c *gin.Context, kind string) (string, error) {
	fh, err := c.FormFile("photo")
	if err != nil {
		return "", nil
	}
	if !isImage(fh) {
		slog.Debug("ignoring non-image upload", "filename", fh.Filename, "content_type", fh.Header.Get("Content-Type"))
		return "", nil
	}

	ext := filepath.Ext(fh.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ext

	dir := filepath.Join(h.uploadDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating upload dir: %w", err)
	}
	if err := c.SaveUploadedFile(fh, filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("error writing upload: %w", err)
	}
	return "/uploads/" + kind + "/" + name, nil
}

func isImage(fh *multipart.FileHeader) bool {
	return fh.Filename != "" && strings.HasPrefix(fh.Header.Get("Content-Type"), "image/")
}
