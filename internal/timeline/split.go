package timeline

import "fmt"

// SplitClip divides the clip containing t into two contiguous clips at t.
// The split point must lie strictly inside a clip's interval; a t equal to a
// clip boundary is rejected rather than producing a zero-length half.
//
// The left half keeps the original position and source offset; the right
// half starts at t and resumes the source where the left half ends, so total
// duration and source material are conserved exactly. Both halves receive
// fresh ids and the original id is retired.
func (s *Store) SplitClip(id string, t int64) (left, right Clip, err error) {
	s.mu.Lock()
	i := s.findClip(id)
	if i < 0 {
		s.mu.Unlock()
		return Clip{}, Clip{}, fmt.Errorf("clip %s: %w", id, ErrNotFound)
	}

	orig := s.state.Clips[i]
	if t <= orig.Position || t >= orig.End() {
		s.mu.Unlock()
		return Clip{}, Clip{}, fmt.Errorf("t=%d not strictly inside clip %s [%d,%d): %w",
			t, id, orig.Position, orig.End(), ErrNoSplitPoint)
	}

	cut := t - orig.Position
	left = Clip{
		ID:           NewID(),
		SourceURI:    orig.SourceURI,
		Name:         orig.Name,
		Position:     orig.Position,
		Duration:     cut,
		SourceOffset: orig.SourceOffset,
		Volume:       orig.Volume,
	}
	right = Clip{
		ID:           NewID(),
		SourceURI:    orig.SourceURI,
		Name:         orig.Name + " (cont.)",
		Position:     t,
		Duration:     orig.Duration - cut,
		SourceOffset: orig.SourceOffset + cut,
		Volume:       orig.Volume,
	}

	// The two halves tile the original interval, so the non-overlap
	// invariant holds against the rest of the track without re-checking.
	s.state.Clips[i] = left
	s.state.Clips = append(s.state.Clips, right)
	sortClips(s.state.Clips)
	if s.state.ActiveClipID == id {
		s.state.ActiveClipID = left.ID
	}
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return left, right, nil
}

// SplitAtPlayhead splits whichever clip contains the current playhead.
func (s *Store) SplitAtPlayhead() (left, right Clip, err error) {
	s.mu.Lock()
	t := s.state.CurrentTime
	var id string
	for _, c := range s.state.Clips {
		if c.Position < t && t < c.End() {
			id = c.ID
			break
		}
	}
	s.mu.Unlock()

	if id == "" {
		return Clip{}, Clip{}, fmt.Errorf("t=%d: %w", t, ErrNoSplitPoint)
	}
	return s.SplitClip(id, t)
}
