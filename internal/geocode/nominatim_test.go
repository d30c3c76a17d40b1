package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNominatim_Reverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "31.2304", r.URL.Query().Get("lat"))
		assert.Equal(t, "121.4737", r.URL.Query().Get("lon"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte(`{"display_name":"People's Square, Huangpu, Shanghai"}`))
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL, time.Second)
	assert.Equal(t, "People's Square, Huangpu, Shanghai", n.Reverse(context.Background(), 31.2304, 121.4737))
}

func TestNominatim_FailuresYieldEmptyAddress(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"geocoder error", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			n := NewNominatim(srv.URL, time.Second)
			assert.Empty(t, n.Reverse(context.Background(), 0.5, 0.5))
		})
	}
}

func TestNominatim_Unreachable(t *testing.T) {
	n := NewNominatim("http://127.0.0.1:1", 200*time.Millisecond)
	assert.Empty(t, n.Reverse(context.Background(), 1, 2))
}
