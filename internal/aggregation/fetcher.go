// Package aggregation refreshes the Lost & Found marker list from the stray
// and lost endpoints.
package aggregation

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-lostfound/internal/backend"
	"github.com/mr1hm/go-lostfound/internal/markers"
	"github.com/mr1hm/go-lostfound/internal/models"
)

type Source interface {
	StrayReports(ctx context.Context, days int) ([]models.RawStrayReport, error)
	LostAnnouncements(ctx context.Context, days int) ([]models.RawLostAnnouncement, error)
}

type Result struct {
	Range    models.TimeRange
	Markers  []models.MapMarker
	StrayErr error
	LostErr  error
	Applied  bool // false when a newer refresh already landed
}

// Unreachable reports whether neither source answered at all.
func (r Result) Unreachable() bool {
	return isTransport(r.StrayErr) && isTransport(r.LostErr)
}

func isTransport(err error) bool {
	if err == nil {
		return false
	}
	var f *backend.Failure
	if errors.As(err, &f) {
		return f.Transport()
	}
	return true
}

type Fetcher struct {
	source     Source
	normalizer *markers.Normalizer
	store      *Store
	seq        atomic.Uint64
}

func NewFetcher(source Source, normalizer *markers.Normalizer, store *Store) *Fetcher {
	return &Fetcher{
		source:     source,
		normalizer: normalizer,
		store:      store,
	}
}

// Refresh queries both sources in parallel and replaces the store's list. A
// source that fails or answers with the wrong shape contributes nothing; if
// both fail the list becomes empty. Refresh never returns an error.
func (f *Fetcher) Refresh(ctx context.Context, tr models.TimeRange) Result {
	seq := f.seq.Add(1)
	days := tr.Days()

	var (
		strays []models.RawStrayReport
		losts  []models.RawLostAnnouncement
		res    = Result{Range: tr}
	)

	var g errgroup.Group
	g.Go(func() error {
		strays, res.StrayErr = f.source.StrayReports(ctx, days)
		if res.StrayErr != nil {
			slog.Warn("stray markers unavailable", "days", days, "error", res.StrayErr)
			strays = nil
		}
		return nil
	})
	g.Go(func() error {
		losts, res.LostErr = f.source.LostAnnouncements(ctx, days)
		if res.LostErr != nil {
			slog.Warn("lost markers unavailable", "days", days, "error", res.LostErr)
			losts = nil
		}
		return nil
	})
	_ = g.Wait()

	res.Markers = f.normalizer.Merge(strays, losts)
	res.Applied = f.store.replace(seq, res.Markers)

	slog.Debug("markers refreshed",
		"days", days,
		"stray", len(strays),
		"lost", len(losts),
		"markers", len(res.Markers),
		"applied", res.Applied,
	)
	return res
}

func (f *Fetcher) Store() *Store { return f.store }
