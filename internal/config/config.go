package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mr1hm/go-lostfound/internal/models"
)

type Config struct {
	Server      ServerConfig
	API         APIConfig
	Backend     BackendConfig
	Workflow    WorkflowConfig
	Geolocation GeolocationConfig
	Map         MapConfig
	Logging     LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
}

// APIConfig points the front ends at the report backend.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit int // client-side requests per second
}

type BackendConfig struct {
	Host            string
	Port            int
	DBPath          string
	UploadDir       string
	GeocoderEnabled bool
	GeocoderURL     string
}

type WorkflowConfig struct {
	SuccessDelay time.Duration
	SessionTTL   time.Duration
}

type GeolocationConfig struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// MapConfig is what a new page shows before any markers load.
type MapConfig struct {
	InitialLat   float64
	InitialLng   float64
	DefaultRange models.TimeRange
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 5),
		},
		API: APIConfig{
			BaseURL:   getEnv("API_BASE_URL", "http://localhost:3000/api"),
			Timeout:   getEnvDuration("API_TIMEOUT", 10*time.Second),
			RateLimit: getEnvInt("API_RATE_LIMIT", 10),
		},
		Backend: BackendConfig{
			Host:            getEnv("BACKEND_HOST", "localhost"),
			Port:            getEnvInt("BACKEND_PORT", 3000),
			DBPath:          getEnv("DB_PATH", "./data/lostfound.db"),
			UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
			GeocoderEnabled: getEnvBool("GEOCODER_ENABLED", false),
			GeocoderURL:     getEnv("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		},
		Workflow: WorkflowConfig{
			SuccessDelay: getEnvDuration("SUCCESS_DELAY", 1500*time.Millisecond),
			SessionTTL:   getEnvDuration("SESSION_TTL", 30*time.Minute),
		},
		Geolocation: GeolocationConfig{
			HighAccuracy: getEnvBool("GEO_HIGH_ACCURACY", true),
			Timeout:      getEnvDuration("GEO_TIMEOUT", 15*time.Second),
			MaximumAge:   getEnvDuration("GEO_MAX_AGE", 60*time.Second),
		},
		Map: MapConfig{
			InitialLat:   getEnvFloat("MAP_INITIAL_LAT", 20),
			InitialLng:   getEnvFloat("MAP_INITIAL_LNG", 0),
			DefaultRange: models.TimeRange(getEnvInt("DEFAULT_RANGE_DAYS", int(models.TimeRangeDay))),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Backend.Port < 1 || c.Backend.Port > 65535 {
		return fmt.Errorf("invalid backend port: %d", c.Backend.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL: %q", c.API.BaseURL)
	}
	if c.API.RateLimit < 1 {
		return fmt.Errorf("API rate limit must be at least 1 rps")
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("server rate limit must be at least 1 rps")
	}

	if c.Workflow.SuccessDelay <= 0 {
		return fmt.Errorf("success delay must be positive")
	}
	if c.Workflow.SessionTTL < time.Minute {
		return fmt.Errorf("session TTL must be at least 1 minute")
	}
	if c.Geolocation.Timeout <= 0 {
		return fmt.Errorf("geolocation timeout must be positive")
	}

	if !c.Map.DefaultRange.Valid() {
		return fmt.Errorf("invalid default range: %d days (must be 1, 3 or 7)", c.Map.DefaultRange)
	}
	if c.Map.InitialLat < -90 || c.Map.InitialLat > 90 {
		return fmt.Errorf("invalid initial map latitude: %v", c.Map.InitialLat)
	}
	if c.Map.InitialLng < -180 || c.Map.InitialLng > 180 {
		return fmt.Errorf("invalid initial map longitude: %v", c.Map.InitialLng)
	}

	return nil
}

// UploadsOrigin is the origin relative photo paths are served from: the API
// base URL without its trailing /api segment.
func (a APIConfig) UploadsOrigin() string {
	return UploadsOrigin(a.BaseURL)
}

func UploadsOrigin(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	return strings.TrimSuffix(base, "/api")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
