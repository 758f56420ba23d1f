// Package presence tracks which principals currently hold an open,
// authenticated connection to a slideshow. The registry is shared state: a
// deployment may run several connection-handling workers, and every worker
// must see the same set.
//
// The set is keyed by principal id, so two simultaneous connections by the
// same principal collapse to one entry and the first disconnect removes
// it. Entries are not reference-counted.
package presence

import (
	"context"
	"sort"
	"strings"

	"openstream/internal/models"
)

// Registry is the shared per-slideshow set of active editors.
type Registry interface {
	Add(ctx context.Context, slideshowID uint, entry models.PresenceEntry) error
	Remove(ctx context.Context, slideshowID uint, principalID string) error

	// List returns the current entries sorted case-insensitively by display
	// name, for deterministic client rendering.
	List(ctx context.Context, slideshowID uint) ([]models.PresenceEntry, error)
}

func sortEntries(entries []models.PresenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a := strings.ToLower(entries[i].DisplayName)
		b := strings.ToLower(entries[j].DisplayName)
		if a == b {
			return entries[i].ID < entries[j].ID
		}
		return a < b
	})
}
