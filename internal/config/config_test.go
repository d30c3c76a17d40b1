package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-lostfound/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000/api", cfg.API.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Workflow.SuccessDelay)
	assert.Equal(t, 15*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Geolocation.MaximumAge)
	assert.True(t, cfg.Geolocation.HighAccuracy)
	assert.Equal(t, models.TimeRangeDay, cfg.Map.DefaultRange)
	assert.Equal(t, 20.0, cfg.Map.InitialLat)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://pets.example.com/api")
	t.Setenv("SUCCESS_DELAY", "2s")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("MAP_INITIAL_LAT", "31.2304")
	t.Setenv("MAP_INITIAL_LNG", "north")
	t.Setenv("DEFAULT_RANGE_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://pets.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Workflow.SuccessDelay)
	assert.Equal(t, 8080, cfg.Server.Port, "unparseable values fall back to defaults")
	assert.Equal(t, 31.2304, cfg.Map.InitialLat)
	assert.Equal(t, 0.0, cfg.Map.InitialLng, "unparseable floats fall back to defaults")
	assert.Equal(t, models.TimeRangeWeek, cfg.Map.DefaultRange)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"log level", "LOG_LEVEL", "verbose"},
		{"relative base url", "API_BASE_URL", "/api"},
		{"non-http base url", "API_BASE_URL", "ftp://host/api"},
		{"zero success delay", "SUCCESS_DELAY", "0s"},
		{"unsupported time range", "DEFAULT_RANGE_DAYS", "2"},
		{"zero time range", "DEFAULT_RANGE_DAYS", "0"},
		{"latitude out of range", "MAP_INITIAL_LAT", "91"},
		{"longitude out of range", "MAP_INITIAL_LNG", "-180.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestUploadsOrigin(t *testing.T) {
	tests := map[string]string{
		"http://localhost:3000/api":  "http://localhost:3000",
		"http://localhost:3000/api/": "http://localhost:3000",
		"https://pets.example.com":   "https://pets.example.com",
		"https://example.com/v1/api": "https://example.com/v1",
		"https://example.com/apis":   "https://example.com/apis",
	}
	for in, want := range tests {
		assert.Equal(t, want, UploadsOrigin(in), in)
	}
}
