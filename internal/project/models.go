// Package project persists editing projects and manages live editing
// sessions: a timeline store wired to a playback synchronizer per open
// project.
package project

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("project not found")
	ErrNoSession = errors.New("no open session for project")
)

// Project is the persisted metadata of one editing project. Its timeline
// (clips, overlays, playhead) is stored alongside and rehydrated into a live
// session on open.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FrameRate float64   `json:"frame_rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
