package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SlideshowMode string

const (
	ModeSlideshow   SlideshowMode = "slideshow"
	ModeInteractive SlideshowMode = "interactive"
)

// Slideshow is the editable content item a collaboration channel is bound
// to. The slide content itself lives in SlideshowData as an opaque JSON
// payload; the editor replaces it wholesale on every update (last write
// wins, no merge).
type Slideshow struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Name               string         `json:"name" gorm:"type:varchar(255);not null"`
	BranchID           uint           `json:"branch_id" gorm:"index;not null"`
	Mode               SlideshowMode  `json:"mode" gorm:"type:varchar(20);not null;default:'slideshow'"`
	PreviewWidth       int            `json:"previewWidth" gorm:"not null;default:1920"`
	PreviewHeight      int            `json:"previewHeight" gorm:"not null;default:1080"`
	IsCustomDimensions bool           `json:"isCustomDimensions" gorm:"not null;default:true"`
	SlideshowData      map[string]any `json:"slideshow_data" gorm:"serializer:json;type:jsonb;default:'{}'"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// DocumentScope identifies which slideshow a connection is bound to and
// which branch boundary applies. Fixed from the connection address at
// accept time; immutable for the life of the connection.
type DocumentScope struct {
	SlideshowID uint
	BranchID    uint
}

// Branch is the access boundary slideshows belong to.
type Branch struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);not null"`
}

// BranchMembership grants a user access to a branch. A super_admin role
// grants access to every branch regardless of the branch id on the row.
type BranchMembership struct {
	ID       string `json:"id" gorm:"type:varchar(36);primaryKey"`
	BranchID uint   `json:"branch_id" gorm:"index;not null"`
	UserID   string `json:"user_id" gorm:"type:varchar(64);index;not null"`
	Role     string `json:"role" gorm:"type:varchar(32);not null;default:'employee'"`
}

// BeforeCreate hook generates a membership id before inserting
func (m *BranchMembership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
