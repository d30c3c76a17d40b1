package aggregation

import (
	"sync"

	"github.com/mr1hm/go-lostfound/internal/models"
)

// Store holds the marker list. Only the Fetcher writes to it and every write
// replaces the whole list.
type Store struct {
	mu       sync.RWMutex
	markers  []models.MapMarker
	applied  uint64
	closed   bool
	onChange func([]models.MapMarker)
}

func NewStore(onChange func([]models.MapMarker)) *Store {
	return &Store{onChange: onChange}
}

func (s *Store) Markers() []models.MapMarker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MapMarker, len(s.markers))
	copy(out, s.markers)
	return out
}

// replace installs markers fetched by request seq. Results older than the
// newest applied request, or arriving after Close, are dropped. onChange runs
// under the lock so observers see lists in the order they were applied; it
// must not call back into the Store.
func (s *Store) replace(seq uint64, markers []models.MapMarker) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq < s.applied {
		return false
	}
	s.applied = seq
	s.markers = markers

	if s.onChange != nil {
		s.onChange(markers)
	}
	return true
}

// Close disposes the store; later writes are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
