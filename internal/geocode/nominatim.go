// Package geocode turns coordinates into a street address.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultURL = "https://nominatim.openstreetmap.org"
	userAgent  = "go-lostfound/1.0"
)

type Reverser interface {
	Reverse(ctx context.Context, lat, lng float64) string
}

// Nominatim is a reverse geocoder for the Nominatim JSON API. The public
// instance allows one request per second.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewNominatim(baseURL string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Reverse returns the address at lat/lng, or "" if it cannot be resolved.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) string {
	addr, err := n.reverse(ctx, lat, lng)
	if err != nil {
		slog.Warn("reverse geocoding failed", "lat", lat, "lng", lng, "error", err)
		return ""
	}
	return addr
}

func (n *Nominatim) reverse(ctx context.Context, lat, lng float64) (string, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching address: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}

	var payload struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if payload.Error != "" {
		return "", fmt.Errorf("geocoder: %s", payload.Error)
	}
	return payload.DisplayName, nil
}

// Disabled never resolves an address.
type Disabled struct{}

func (Disabled) Reverse(context.Context, float64, float64) string { return "" }
