package timeline

import (
	"crypto/rand"
	"fmt"
)

const (
	DefaultVolume = 100
	MaxVolume     = 200
)

// Clip is a placed, time-bounded reference to a media source on the single
// video track. All times are in milliseconds on the global timeline, except
// SourceOffset which is measured within the source media itself.
type Clip struct {
	ID           string `json:"id"`
	SourceURI    string `json:"source_uri"`
	Name         string `json:"name"`
	Position     int64  `json:"position_ms"`
	Duration     int64  `json:"duration_ms"`
	SourceOffset int64  `json:"source_offset_ms"`
	Volume       int    `json:"volume"`
}

// End returns the exclusive end of the clip's interval on the global timeline.
func (c Clip) End() int64 {
	return c.Position + c.Duration
}

// Contains reports whether t falls within the clip's half-open interval
// [Position, Position+Duration).
func (c Clip) Contains(t int64) bool {
	return c.Position <= t && t < c.End()
}

// OverlayStyle positions a text overlay within the frame. X and Y are
// percentages of frame width/height.
type OverlayStyle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize int     `json:"font_size"`
	Color    string  `json:"color"`
}

// TextOverlay is a time-bounded text annotation on the overlay track.
// Overlays may overlap clips and each other freely.
type TextOverlay struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Position int64        `json:"position_ms"`
	Duration int64        `json:"duration_ms"`
	Style    OverlayStyle `json:"style"`
}

func (o TextOverlay) End() int64 {
	return o.Position + o.Duration
}

func (o TextOverlay) Contains(t int64) bool {
	return o.Position <= t && t < o.End()
}

// State is a full snapshot of a timeline session: the clip track, the overlay
// track, the playhead and the play/selection flags. It is plain serializable
// data so the persistence layer can store and rehydrate it directly.
type State struct {
	Clips        []Clip        `json:"clips"`
	TextClips    []TextOverlay `json:"text_clips"`
	CurrentTime  int64         `json:"current_time_ms"`
	IsPlaying    bool          `json:"is_playing"`
	ActiveClipID string        `json:"active_clip_id,omitempty"`
	ActiveTextID string        `json:"active_text_id,omitempty"`
}

// ClipPatch is a partial update for a clip. Nil fields are left unchanged.
type ClipPatch struct {
	SourceURI    *string `json:"source_uri,omitempty"`
	Name         *string `json:"name,omitempty"`
	Position     *int64  `json:"position_ms,omitempty"`
	Duration     *int64  `json:"duration_ms,omitempty"`
	SourceOffset *int64  `json:"source_offset_ms,omitempty"`
	Volume       *int    `json:"volume,omitempty"`
}

// OverlayPatch is a partial update for a text overlay.
type OverlayPatch struct {
	Text     *string       `json:"text,omitempty"`
	Position *int64        `json:"position_ms,omitempty"`
	Duration *int64        `json:"duration_ms,omitempty"`
	Style    *OverlayStyle `json:"style,omitempty"`
}

// NewID mints an opaque unique identifier for clips and overlays.
func NewID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}

func validateClip(c Clip) error {
	if c.Position < 0 {
		return fmt.Errorf("%w: position %d is negative", ErrInvalidClip, c.Position)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration %d must be positive", ErrInvalidClip, c.Duration)
	}
	if c.SourceOffset < 0 {
		return fmt.Errorf("%w: source offset %d is negative", ErrInvalidClip, c.SourceOffset)
	}
	if c.Volume < 0 || c.Volume > MaxVolume {
		return fmt.Errorf("%w: volume %d outside [0,%d]", ErrInvalidClip, c.Volume, MaxVolume)
	}
	return nil
}

func validateOverlay(o TextOverlay) error {
	if o.Position < 0 {
		return fmt.Errorf("%w: position %d is negative", ErrInvalidClip, o.Position)
	}
	if o.Duration <= 0 {
		return fmt.Errorf("%w: duration %d must be positive", ErrInvalidClip, o.Duration)
	}
	return nil
}

// overlaps reports whether two half-open intervals [aPos, aPos+aDur) and
// [bPos, bPos+bDur) intersect.
func overlaps(aPos, aDur, bPos, bDur int64) bool {
	return aPos < bPos+bDur && bPos < aPos+aDur
}
