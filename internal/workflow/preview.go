package workflow

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mr1hm/go-lostfound/internal/models"
)

// PreviewPath is the URL prefix previews are served under.
const PreviewPath = "/previews/"

// PreviewStore keeps attached photos addressable by URL until released.
type PreviewStore struct {
	mu     sync.RWMutex
	photos map[string]models.Photo
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{photos: make(map[string]models.Photo)}
}

// Create registers photo and returns its id and preview URL.
func (s *PreviewStore) Create(photo models.Photo) (id, url string) {
	id = uuid.NewString()

	s.mu.Lock()
	s.photos[id] = photo
	s.mu.Unlock()

	return id, PreviewPath + id
}

func (s *PreviewStore) Open(id string) (models.Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.photos[id]
	return p, ok
}

// Release drops the preview. It reports false if id was unknown or already
// released.
func (s *PreviewStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.photos[id]; !ok {
		return false
	}
	delete(s.photos, id)
	return true
}

func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}
