package repository

import (
	"context"
	"errors"
	"fmt"

	"openstream/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrBranchNotFound is returned when the scoped branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")
	// ErrBranchRequired is returned when the connection address carried no
	// usable branch id.
	ErrBranchRequired = errors.New("branch id is required")
	// ErrAccessDenied is returned when the principal has no membership
	// granting access to the branch.
	ErrAccessDenied = errors.New("access denied")
)

// BranchAccessRepositoryImpl answers "can this principal access branch B".
// Access is granted by a membership on the exact branch or by a
// super_admin membership anywhere.
type BranchAccessRepositoryImpl struct {
	db *gorm.DB
}

// NewBranchAccessRepository creates a new branch access repository
func NewBranchAccessRepository(db *gorm.DB) *BranchAccessRepositoryImpl {
	return &BranchAccessRepositoryImpl{db: db}
}

// CheckAccess returns nil when the principal may access the scoped branch.
func (r *BranchAccessRepositoryImpl) CheckAccess(ctx context.Context, principal *models.Principal, scope models.DocumentScope) error {
	if scope.BranchID == 0 {
		return ErrBranchRequired
	}

	var branch models.Branch
	err := r.db.WithContext(ctx).First(&branch, "id = ?", scope.BranchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBranchNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up branch: %w", err)
	}

	var count int64
	err = r.db.WithContext(ctx).
		Model(&models.BranchMembership{}).
		Where("user_id = ? AND (branch_id = ? OR role = ?)", principal.ID, scope.BranchID, "super_admin").
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check branch membership: %w", err)
	}

	if count == 0 {
		return ErrAccessDenied
	}

	return nil
}
