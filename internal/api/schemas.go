package api

import (
	"time"

	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	SessionsOpen  int  `json:"sessions_open"`
	Playing       bool `json:"playing"`
	ProjectsCount int  `json:"projects_count"`
}

type CreateProjectRequest struct {
	Name      string  `json:"name"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

type RenameProjectRequest struct {
	Name string `json:"name"`
}

type ProjectResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	FrameRate float64 `json:"frame_rate"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// TimelineResponse is the full session view: the state snapshot plus the
// synchronizer's machine state and any pending player error.
type TimelineResponse struct {
	ProjectID string         `json:"project_id"`
	Playback  string         `json:"playback"`
	State     timeline.State `json:"state"`
	LastError string         `json:"last_error,omitempty"`
}

// AddClipRequest creates a clip. DurationMs may be omitted, in which case the
// source is probed and the clip receives its intrinsic remaining length.
// Volume is a pointer so an absent field gets the default rather than mute.
type AddClipRequest struct {
	SourceURI    string `json:"source_uri"`
	Name         string `json:"name,omitempty"`
	PositionMs   int64  `json:"position_ms"`
	DurationMs   int64  `json:"duration_ms,omitempty"`
	SourceOffset int64  `json:"source_offset_ms,omitempty"`
	Volume       *int   `json:"volume,omitempty"`
}

type MoveClipRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// SplitClipRequest cuts a clip. TimeMs nil means split at the playhead.
type SplitClipRequest struct {
	TimeMs *int64 `json:"time_ms,omitempty"`
}

type SplitResponse struct {
	Left  timeline.Clip `json:"left"`
	Right timeline.Clip `json:"right"`
}

type AddOverlayRequest struct {
	Text       string                 `json:"text"`
	PositionMs int64                  `json:"position_ms"`
	DurationMs int64                  `json:"duration_ms"`
	Style      *timeline.OverlayStyle `json:"style,omitempty"`
}

type SeekRequest struct {
	TimeMs int64 `json:"time_ms"`
}

type SelectRequest struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		FrameRate: p.FrameRate,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.Format(time.RFC3339),
	}
}
