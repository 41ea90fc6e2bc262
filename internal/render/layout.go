// Package render maps timeline state to pixel geometry for a presentation
// layer. It is pure: the same state and zoom always produce the same
// geometry, so any renderer (canvas UI, text harness) can consume it.
package render

import "github.com/reelcut/reelcut-agent/internal/timeline"

// Rect is the horizontal extent of a timeline element in pixels.
type Rect struct {
	ID    string  `json:"id"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// Layout is the draw geometry for one timeline at a given zoom.
type Layout struct {
	ClipRects    []Rect  `json:"clip_rects"`
	OverlayRects []Rect  `json:"overlay_rects"`
	PlayheadX    float64 `json:"playhead_x"`
	PixelsPerSec float64 `json:"pixels_per_second"`
}

// Compute derives draw geometry from a state snapshot. pixelsPerSecond is the
// zoom factor; non-positive values fall back to 1.
func Compute(st timeline.State, pixelsPerSecond float64) Layout {
	if pixelsPerSecond <= 0 {
		pixelsPerSecond = 1
	}

	l := Layout{
		ClipRects:    make([]Rect, len(st.Clips)),
		OverlayRects: make([]Rect, len(st.TextClips)),
		PlayheadX:    toPixels(st.CurrentTime, pixelsPerSecond),
		PixelsPerSec: pixelsPerSecond,
	}
	for i, c := range st.Clips {
		l.ClipRects[i] = Rect{
			ID:    c.ID,
			Left:  toPixels(c.Position, pixelsPerSecond),
			Width: toPixels(c.Duration, pixelsPerSecond),
		}
	}
	for i, o := range st.TextClips {
		l.OverlayRects[i] = Rect{
			ID:    o.ID,
			Left:  toPixels(o.Position, pixelsPerSecond),
			Width: toPixels(o.Duration, pixelsPerSecond),
		}
	}
	return l
}

func toPixels(ms int64, pixelsPerSecond float64) float64 {
	return float64(ms) / 1000.0 * pixelsPerSecond
}
