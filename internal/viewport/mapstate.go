package viewport

import (
	"errors"
	"sort"
	"sync"
)

var ErrSurfaceClosed = errors.New("map surface closed")

// MapState is a Surface kept on the server and rendered into the page, where
// the browser map library replays it.
type MapState struct {
	mu       sync.RWMutex
	view     Viewport
	hasView  bool
	controls map[string]Control
	closed   bool
}

func NewMapState(initial Viewport) *MapState {
	return &MapState{
		view:     initial,
		hasView:  true,
		controls: make(map[string]Control),
	}
}

func (s *MapState) Apply(v Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.view = v
	s.hasView = true
}

func (s *MapState) AddControl(c Control) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	s.controls[c.Name()] = c
	return nil
}

func (s *MapState) RemoveControl(c Control) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceClosed
	}
	if _, ok := s.controls[c.Name()]; !ok {
		return errors.New("control not attached: " + c.Name())
	}
	delete(s.controls, c.Name())
	return nil
}

func (s *MapState) View() Viewport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

func (s *MapState) Controls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.controls))
	for name := range s.controls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close tears the surface down. Later calls fail or no-op.
func (s *MapState) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.controls = make(map[string]Control)
}
