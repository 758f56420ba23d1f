package presence

import (
	"context"
	"testing"

	"github.com/go-playground/assert/v2"

	"openstream/internal/models"
)

func TestMemoryRegistryListIsSortedByDisplayName(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u3", DisplayName: "carol", Initials: "C"}), nil)
	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u1", DisplayName: "Alice Anderson", Initials: "AA"}), nil)
	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u2", DisplayName: "Bob Brown", Initials: "BB"}), nil)

	entries, err := r.List(ctx, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 3)
	// Case-insensitive ordering: "carol" sorts after "Bob".
	assert.Equal(t, entries[0].ID, "u1")
	assert.Equal(t, entries[1].ID, "u2")
	assert.Equal(t, entries[2].ID, "u3")
}

func TestMemoryRegistryCollapsesSamePrincipal(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	// Two connections by the same principal occupy one slot.
	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u1", DisplayName: "Alice", Initials: "A"}), nil)
	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u1", DisplayName: "Alice", Initials: "A"}), nil)

	entries, err := r.List(ctx, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 1)
}

func TestMemoryRegistryRemove(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	assert.Equal(t, r.Add(ctx, 1, models.PresenceEntry{ID: "u1", DisplayName: "Alice", Initials: "A"}), nil)
	assert.Equal(t, r.Add(ctx, 2, models.PresenceEntry{ID: "u1", DisplayName: "Alice", Initials: "A"}), nil)

	assert.Equal(t, r.Remove(ctx, 1, "u1"), nil)

	entries, err := r.List(ctx, 1)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 0)

	// Other slideshows are untouched.
	entries, err = r.List(ctx, 2)
	assert.Equal(t, err, nil)
	assert.Equal(t, len(entries), 1)

	// Removing an absent principal is a no-op.
	assert.Equal(t, r.Remove(ctx, 1, "ghost"), nil)
}
