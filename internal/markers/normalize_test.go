package markers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-lostfound/internal/models"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer("http://localhost:3000", func() time.Time { return fixedNow })
}

func TestTimeAgo_Boundaries(t *testing.T) {
	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"30 seconds", 30 * time.Second, "Just now"},
		{"90 seconds", 90 * time.Second, "1m ago"},
		{"59 minutes", 59 * time.Minute, "59m ago"},
		{"one hour", time.Hour, "1h ago"},
		{"23 hours", 23*time.Hour + 59*time.Minute, "23h ago"},
		{"25 hours", 25 * time.Hour, "1d ago"},
		{"6 days", 6 * 24 * time.Hour, "6d ago"},
		{"future", -time.Hour, "Just now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := fixedNow.Add(-tt.ago).Format(time.RFC3339)
			assert.Equal(t, tt.want, TimeAgo(ts, fixedNow))
		})
	}
}

func TestTimeAgo_OldAndInvalid(t *testing.T) {
	assert.Equal(t, "Apr 1, 2024", TimeAgo("2024-04-01T08:00:00", fixedNow))
	assert.Equal(t, "", TimeAgo("", fixedNow))
	assert.Equal(t, "", TimeAgo("yesterday-ish", fixedNow))
	assert.Equal(t, "2h ago", TimeAgo("2024-05-10T10:00:00.123456", fixedNow))
	assert.Equal(t, "5m ago", TimeAgo("2024-05-10T11:55", fixedNow))
}

func TestResolveImageURL(t *testing.T) {
	origin := "http://localhost:3000"
	assert.Equal(t, "http://localhost:3000/uploads/stray/a.jpg", ResolveImageURL("/uploads/stray/a.jpg", origin))
	assert.Equal(t, "http://localhost:3000/uploads/b.jpg", ResolveImageURL("uploads/b.jpg", origin+"/"))
	assert.Equal(t, "https://cdn.example.com/c.jpg", ResolveImageURL("https://cdn.example.com/c.jpg", origin))
	assert.Equal(t, "", ResolveImageURL("", origin))
	assert.Equal(t, "", ResolveImageURL("   ", origin))
}

func TestNormalizer_Stray(t *testing.T) {
	n := newTestNormalizer()
	r := models.RawStrayReport{
		ID:          "12",
		Lat:         models.FloatPtr(31.23),
		Lng:         models.FloatPtr(121.47),
		Description: "small white dog near the park",
		ReportTime:  fixedNow.Add(-3 * time.Hour).Format(time.RFC3339),
		PhotoPath:   "/uploads/stray/x.jpg",
	}

	m := n.Stray(r)
	assert.Equal(t, "stray-12", m.ID)
	assert.Equal(t, models.KindStray, m.Kind)
	assert.Equal(t, 31.23, m.Lat)
	assert.Equal(t, "3h ago", m.TimeAgo)
	assert.Equal(t, "http://localhost:3000/uploads/stray/x.jpg", m.ImageURL)
	assert.Empty(t, m.PetName)

	assert.Equal(t, m, n.Stray(r), "normalization is idempotent")
}

func TestNormalizer_MissingCoordinatesDefaultToZero(t *testing.T) {
	n := newTestNormalizer()
	m := n.Stray(models.RawStrayReport{ID: "1"})
	assert.Equal(t, 0.0, m.Lat)
	assert.Equal(t, 0.0, m.Lng)
	assert.False(t, m.Mappable())
}

func TestNormalizer_LostExcludesFound(t *testing.T) {
	n := newTestNormalizer()

	_, ok := n.Lost(models.RawLostAnnouncement{ID: "3", Status: models.LostStatusFound, Lat: models.FloatPtr(1), Lng: models.FloatPtr(1)})
	assert.False(t, ok)

	m, ok := n.Lost(models.RawLostAnnouncement{ID: "4", Status: models.LostStatusPending, Breed: "Corgi", Lat: models.FloatPtr(1), Lng: models.FloatPtr(2)})
	require.True(t, ok)
	assert.Equal(t, "lost-4", m.ID)
	assert.Equal(t, "Corgi", m.PetName)
	assert.Equal(t, models.KindLost, m.Kind)
}

func TestNormalizer_Merge(t *testing.T) {
	n := newTestNormalizer()
	strays := []models.RawStrayReport{
		{ID: "1", Lat: models.FloatPtr(10), Lng: models.FloatPtr(20)},
		{ID: "2"},
	}
	losts := []models.RawLostAnnouncement{
		{ID: "1", Lat: models.FloatPtr(12), Lng: models.FloatPtr(22), Status: "pending"},
		{ID: "2", Lat: models.FloatPtr(13), Lng: models.FloatPtr(23), Status: "found"},
	}

	all := n.Merge(strays, losts)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"stray-1", "stray-2", "lost-1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	mappable := Mappable(all)
	require.Len(t, mappable, 2)
	for _, m := range mappable {
		assert.True(t, m.Mappable())
	}

	_, ok := Find(all, "lost-2")
	assert.False(t, ok)
}
