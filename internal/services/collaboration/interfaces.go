package collaboration

import (
	"context"

	"openstream/internal/models"
)

// Interfaces for the external collaborators the collaboration channel
// consumes. They are declared here, in the consumer package, and satisfied
// by internal/auth and internal/repository.

// TokenVerifier validates an opaque bearer credential and resolves it to a
// principal. May block on network I/O.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Principal, error)
}

// AccessChecker decides whether a principal may access the branch a
// connection is scoped to. A nil return means allowed.
type AccessChecker interface {
	CheckAccess(ctx context.Context, principal *models.Principal, scope models.DocumentScope) error
}

// SlideshowStore loads and patches slideshow snapshots. ApplyPatch has
// last-write-wins semantics: the returned snapshot reflects the store's
// own serialization of concurrent writers, with no version checking by
// this package.
type SlideshowStore interface {
	Load(ctx context.Context, scope models.DocumentScope) (*models.Slideshow, error)
	ApplyPatch(ctx context.Context, scope models.DocumentScope, data map[string]any) (*models.Slideshow, error)
}
