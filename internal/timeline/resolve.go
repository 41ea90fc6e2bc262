package timeline

import "sort"

// Active is the result of resolving the playhead against both tracks: the
// single active video clip (nil during a gap) and every overlay whose
// interval contains the playhead.
type Active struct {
	Clip     *Clip
	Overlays []TextOverlay
}

// ResolveActive determines which clip and overlays are live at time t using
// half-open containment: position <= t < position+duration.
//
// Clips are guaranteed non-overlapping by the store, so at most one can
// contain t. Should that invariant ever be violated the clip with the
// smallest position wins, deterministically. Overlays are returned in
// ascending position order, ties broken by id.
//
// The scan is linear; it is called on every playback tick and stays cheap up
// to low hundreds of clips.
func ResolveActive(clips []Clip, overlays []TextOverlay, t int64) Active {
	var active Active
	for i := range clips {
		if !clips[i].Contains(t) {
			continue
		}
		if active.Clip == nil || clips[i].Position < active.Clip.Position {
			c := clips[i]
			active.Clip = &c
		}
	}

	for _, o := range overlays {
		if o.Contains(t) {
			active.Overlays = append(active.Overlays, o)
		}
	}
	sort.Slice(active.Overlays, func(i, j int) bool {
		if active.Overlays[i].Position != active.Overlays[j].Position {
			return active.Overlays[i].Position < active.Overlays[j].Position
		}
		return active.Overlays[i].ID < active.Overlays[j].ID
	})

	return active
}

// NextClip returns the clip with the smallest position strictly greater than
// t, or nil if no clip starts after t. The playback synchronizer uses it to
// advance across clip boundaries and gaps.
func NextClip(clips []Clip, t int64) *Clip {
	var next *Clip
	for i := range clips {
		if clips[i].Position <= t {
			continue
		}
		if next == nil || clips[i].Position < next.Position {
			c := clips[i]
			next = &c
		}
	}
	return next
}
