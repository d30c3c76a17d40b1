package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions tracks live views and unmounts the ones left idle.
type Sessions struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu     sync.Mutex
	views  map[string]*View
	closed bool
}

func NewSessions(deps Deps, ttl time.Duration) *Sessions {
	return &Sessions{
		deps:  deps,
		ttl:   ttl,
		now:   time.Now,
		views: make(map[string]*View),
	}
}

// Get returns the live view for id and marks it as active.
func (s *Sessions) Get(id string) (*View, bool) {
	s.mu.Lock()
	v, ok := s.views[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	v.touch(s.now())
	return v, true
}

// Create mounts a new view and loads its markers for the default range.
func (s *Sessions) Create(ctx context.Context) (*View, error) {
	v := newView(uuid.NewString(), s.deps, s.now())
	if err := v.mount(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		v.Close()
		return nil, errSessionsClosed
	}
	s.views[v.ID] = v
	s.mu.Unlock()

	v.Refresh(ctx, v.Range())
	slog.Debug("view mounted", "session", v.ID)
	return v, nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep unmounts views idle for longer than the TTL and returns how many
// were removed.
func (s *Sessions) Sweep() int {
	now := s.now()

	s.mu.Lock()
	var expired []*View
	for id, v := range s.views {
		if v.idleSince(now) > s.ttl {
			expired = append(expired, v)
			delete(s.views, id)
		}
	}
	s.mu.Unlock()

	for _, v := range expired {
		v.Close()
		slog.Debug("view expired", "session", v.ID)
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Info("expired idle sessions", "count", n, "active", s.Len())
			}
		}
	}
}

// Close unmounts every view. Create fails afterwards.
func (s *Sessions) Close() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*View)
	s.closed = true
	s.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}
