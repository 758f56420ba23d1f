package models

import (
	"time"

	"github.com/segmentio/ksuid"
)

// SessionInfo is the per-connection metadata carried by an active
// WebSocket session.
type SessionInfo struct {
	ID          string    `json:"id"`
	SlideshowID uint      `json:"slideshow_id"`
	BranchID    uint      `json:"branch_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

func NewSessionInfo(scope DocumentScope) *SessionInfo {
	return &SessionInfo{
		ID:          ksuid.New().String(),
		SlideshowID: scope.SlideshowID,
		BranchID:    scope.BranchID,
		ConnectedAt: time.Now(),
	}
}
