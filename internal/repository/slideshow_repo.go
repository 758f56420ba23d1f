package repository

import (
	"context"
	"errors"
	"fmt"

	"openstream/internal/models"

	"gorm.io/gorm"
)

// ErrSlideshowNotFound is returned when no slideshow exists for the
// requested id within the scoped branch.
var ErrSlideshowNotFound = errors.New("slideshow not found")

// ValidationError describes a rejected patch payload. Details maps field
// names to the reason each was rejected.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid slideshow data: %v", e.Details)
}

// Columns a patch may set directly. Any other key in the payload is merged
// into the slideshow_data JSON document.
var patchableColumns = map[string]bool{
	"name":               true,
	"mode":               true,
	"previewWidth":       true,
	"previewHeight":      true,
	"isCustomDimensions": true,
}

// SlideshowRepositoryImpl is the document store for collaboration
// sessions: load a snapshot by scope, apply a partial payload with
// last-write-wins semantics.
type SlideshowRepositoryImpl struct {
	db *gorm.DB
}

// NewSlideshowRepository creates a new slideshow repository
func NewSlideshowRepository(db *gorm.DB) *SlideshowRepositoryImpl {
	return &SlideshowRepositoryImpl{db: db}
}

// Load fetches the current snapshot of the slideshow bound to the scope.
// The branch id is part of the lookup, so a slideshow outside the scoped
// branch reads as not found.
func (r *SlideshowRepositoryImpl) Load(ctx context.Context, scope models.DocumentScope) (*models.Slideshow, error) {
	var slideshow models.Slideshow

	err := r.db.WithContext(ctx).
		First(&slideshow, "id = ? AND branch_id = ?", scope.SlideshowID, scope.BranchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlideshowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load slideshow: %w", err)
	}

	return &slideshow, nil
}

// ApplyPatch merges a partial payload into the slideshow and returns the
// new snapshot. Recognized columns are updated in place; everything else
// is merged key-by-key into slideshow_data, replacing prior values
// wholesale (last write wins, no conflict detection).
func (r *SlideshowRepositoryImpl) ApplyPatch(ctx context.Context, scope models.DocumentScope, data map[string]any) (*models.Slideshow, error) {
	slideshow, err := r.Load(ctx, scope)
	if err != nil {
		return nil, err
	}

	if err := applyPatch(slideshow, data); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Save(slideshow).Error; err != nil {
		return nil, fmt.Errorf("failed to update slideshow: %w", err)
	}

	return slideshow, nil
}

// applyPatch validates the payload and merges it into the slideshow in
// place.
func applyPatch(slideshow *models.Slideshow, data map[string]any) error {
	details := map[string]string{}

	merged := make(map[string]any, len(slideshow.SlideshowData)+len(data))
	for k, v := range slideshow.SlideshowData {
		merged[k] = v
	}

	for key, value := range data {
		if !patchableColumns[key] {
			merged[key] = value
			continue
		}

		switch key {
		case "name":
			name, ok := value.(string)
			if !ok || name == "" {
				details["name"] = "must be a non-empty string"
				continue
			}
			slideshow.Name = name
		case "mode":
			mode, ok := value.(string)
			if !ok || (mode != string(models.ModeSlideshow) && mode != string(models.ModeInteractive)) {
				details["mode"] = "must be 'slideshow' or 'interactive'"
				continue
			}
			slideshow.Mode = models.SlideshowMode(mode)
		case "previewWidth", "previewHeight":
			// JSON numbers decode as float64
			n, ok := value.(float64)
			if !ok || n < 1 {
				details[key] = "must be a positive integer"
				continue
			}
			if key == "previewWidth" {
				slideshow.PreviewWidth = int(n)
			} else {
				slideshow.PreviewHeight = int(n)
			}
		case "isCustomDimensions":
			b, ok := value.(bool)
			if !ok {
				details[key] = "must be a boolean"
				continue
			}
			slideshow.IsCustomDimensions = b
		}
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}

	slideshow.SlideshowData = merged
	return nil
}
