package presence

import (
	"context"
	"sync"

	"openstream/internal/models"
)

// MemoryRegistry implements Registry with process-local state, for
// single-worker deployments without Redis and for tests.
type MemoryRegistry struct {
	mu        sync.RWMutex
	documents map[uint]map[string]models.PresenceEntry // slideshow id -> principal id -> entry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		documents: make(map[uint]map[string]models.PresenceEntry),
	}
}

func (r *MemoryRegistry) Add(ctx context.Context, slideshowID uint, entry models.PresenceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.documents[slideshowID] == nil {
		r.documents[slideshowID] = make(map[string]models.PresenceEntry)
	}
	r.documents[slideshowID][entry.ID] = entry
	return nil
}

func (r *MemoryRegistry) Remove(ctx context.Context, slideshowID uint, principalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.documents[slideshowID], principalID)
	if len(r.documents[slideshowID]) == 0 {
		delete(r.documents, slideshowID)
	}
	return nil
}

func (r *MemoryRegistry) List(ctx context.Context, slideshowID uint) ([]models.PresenceEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]models.PresenceEntry, 0, len(r.documents[slideshowID]))
	for _, entry := range r.documents[slideshowID] {
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}
