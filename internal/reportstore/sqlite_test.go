package reportstore

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mr1hm/go-lostfound/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestSQLiteDB_AddAndListStray(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	older := &models.RawStrayReport{Description: "older", Lat: models.FloatPtr(31.23), Lng: models.FloatPtr(121.47), ReportTime: FormatTime(base.Add(-2 * time.Hour))}
	newer := &models.RawStrayReport{Description: "newer", ReportTime: FormatTime(base)}

	if err := db.AddStray(ctx, older); err != nil {
		t.Fatalf("AddStray failed: %v", err)
	}
	if err := db.AddStray(ctx, newer); err != nil {
		t.Fatalf("AddStray failed: %v", err)
	}
	if older.ID != "1" || newer.ID != "2" {
		t.Errorf("expected ids 1 and 2, got %q and %q", older.ID, newer.ID)
	}

	got, err := db.ListStray(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListStray failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].Description != "newer" {
		t.Errorf("expected newest first, got %q", got[0].Description)
	}
	if got[0].Lat != nil || got[0].Lng != nil {
		t.Error("expected missing coordinates to stay nil")
	}
	if got[1].Lat == nil || *got[1].Lat != 31.23 {
		t.Errorf("expected lat 31.23, got %v", got[1].Lat)
	}
}

func TestSQLiteDB_ListStraySince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	db.AddStray(ctx, &models.RawStrayReport{Description: "last week", ReportTime: FormatTime(base.AddDate(0, 0, -6))})
	db.AddStray(ctx, &models.RawStrayReport{Description: "today", ReportTime: FormatTime(base.Add(-time.Hour))})

	since := base.AddDate(0, 0, -1)
	got, err := db.ListStray(ctx, Filter{Since: &since})
	if err != nil {
		t.Fatalf("ListStray failed: %v", err)
	}
	if len(got) != 1 || got[0].Description != "today" {
		t.Errorf("expected only today's report, got %+v", got)
	}
}

func TestSQLiteDB_ListStrayNear(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// People's Square and the Bund are about 1.6km apart
	db.AddStray(ctx, &models.RawStrayReport{Description: "square", Lat: models.FloatPtr(31.2304), Lng: models.FloatPtr(121.4737), ReportTime: FormatTime(base)})
	db.AddStray(ctx, &models.RawStrayReport{Description: "bund", Lat: models.FloatPtr(31.2400), Lng: models.FloatPtr(121.4900), ReportTime: FormatTime(base)})
	db.AddStray(ctx, &models.RawStrayReport{Description: "nowhere", ReportTime: FormatTime(base)})

	got, err := db.ListStray(ctx, Filter{Near: &Circle{Lat: 31.2304, Lng: 121.4737, RadiusMeters: 500}})
	if err != nil {
		t.Fatalf("ListStray failed: %v", err)
	}
	if len(got) != 1 || got[0].Description != "square" {
		t.Errorf("expected only the square report, got %+v", got)
	}
}

func TestSQLiteDB_LostStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := &models.RawLostAnnouncement{Breed: "Shiba Inu", LostTime: FormatTime(base), Contact: "555-0100"}
	if err := db.AddLost(ctx, a); err != nil {
		t.Fatalf("AddLost failed: %v", err)
	}
	if a.Status != models.LostStatusPending {
		t.Errorf("expected default status pending, got %q", a.Status)
	}

	updated, err := db.SetLostStatus(ctx, string(a.ID), models.LostStatusFound)
	if err != nil {
		t.Fatalf("SetLostStatus failed: %v", err)
	}
	if !updated.Found() {
		t.Errorf("expected found, got %q", updated.Status)
	}

	visible, err := db.ListLost(ctx, Filter{ExcludeFound: true})
	if err != nil {
		t.Fatalf("ListLost failed: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("expected found announcements to be excluded, got %d", len(visible))
	}

	all, err := db.ListLost(ctx, Filter{})
	if err != nil {
		t.Fatalf("ListLost failed: %v", err)
	}
	if len(all) != 1 || all[0].Breed != "Shiba Inu" {
		t.Errorf("expected the announcement in the full list, got %+v", all)
	}
}

func TestSQLiteDB_SetLostStatusNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"99", "abc"} {
		if _, err := db.SetLostStatus(ctx, id, models.LostStatusFound); !errors.Is(err, ErrNotFound) {
			t.Errorf("id %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-10T09:41", time.Date(2024, 5, 10, 9, 41, 0, 0, time.UTC), true},
		{"2024-05-10T09:41:12", time.Date(2024, 5, 10, 9, 41, 12, 0, time.UTC), true},
		{"2024-05-10T09:41:12.5", time.Date(2024, 5, 10, 9, 41, 12, 500000000, time.UTC), true},
		{"2024-05-10T17:41:12+08:00", time.Date(2024, 5, 10, 9, 41, 12, 0, time.UTC), true},
		{"2024-05-10T09:41:12Z", time.Date(2024, 5, 10, 9, 41, 12, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDistanceMeters(t *testing.T) {
	// one degree of latitude is about 111.2km
	d := DistanceMeters(0, 0, 1, 0)
	if math.Abs(d-111195) > 50 {
		t.Errorf("expected ~111195m, got %.0f", d)
	}
}
