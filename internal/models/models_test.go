package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMappable(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"regular point", 10, 20, true},
		{"equator only", 0, 20, true},
		{"prime meridian only", 10, 0, true},
		// Known limitation: a genuine report at (0,0) is hidden.
		{"null island sentinel", 0, 0, false},
		{"nan lat", math.NaN(), 20, false},
		{"inf lng", 10, math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MapMarker{Lat: tt.lat, Lng: tt.lng}
			assert.Equal(t, tt.want, m.Mappable())
		})
	}
}

func TestRawRecords_Decode(t *testing.T) {
	var strays []RawStrayReport
	err := json.Unmarshal([]byte(`[
		{"id": 7, "lat": 31.2, "lng": 121.5, "description": "brown dog", "report_time": "2024-05-01T10:00:00", "photo_path": null},
		{"id": "8", "lat": null, "description": "", "report_time": "", "photo_path": "/uploads/stray/a.jpg"}
	]`), &strays)
	require.NoError(t, err)
	require.Len(t, strays, 2)

	assert.Equal(t, RecordID("7"), strays[0].ID)
	assert.Equal(t, 31.2, Float(strays[0].Lat))
	assert.Equal(t, "", strays[0].PhotoPath)
	assert.Equal(t, RecordID("8"), strays[1].ID)
	assert.Equal(t, 0.0, Float(strays[1].Lat))
	assert.Equal(t, 0.0, Float(strays[1].Lng))
}

func TestParseTimeRange(t *testing.T) {
	for _, s := range []string{"1", "3", "7", " 3 "} {
		r, err := ParseTimeRange(s)
		require.NoError(t, err, s)
		assert.True(t, r.Valid())
	}
	for _, s := range []string{"0", "2", "30", "week", ""} {
		_, err := ParseTimeRange(s)
		assert.Error(t, err, s)
	}
	assert.Equal(t, "24h", TimeRangeDay.Label())
	assert.Equal(t, "7 Days", TimeRangeWeek.Label())
}
