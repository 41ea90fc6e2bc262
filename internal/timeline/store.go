package timeline

import (
	"fmt"
	"sort"
	"sync"
)

// Store is the single source of truth for one editing session. All mutation
// goes through its methods; each successful mutation produces a complete
// snapshot before any subscriber is notified, so readers never observe a
// half-updated state.
//
// A Store is created when a session opens and discarded when it closes. It
// performs no I/O.
type Store struct {
	mu    sync.Mutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates an empty Store.
func New() *Store {
	return &Store{subs: make(map[int]func(State))}
}

// NewFromState creates a Store hydrated from a persisted snapshot. Clips are
// validated and must satisfy the non-overlap invariant.
func NewFromState(st State) (*Store, error) {
	for _, c := range st.Clips {
		if err := validateClip(c); err != nil {
			return nil, fmt.Errorf("clip %s: %w", c.ID, err)
		}
	}
	for _, o := range st.TextClips {
		if err := validateOverlay(o); err != nil {
			return nil, fmt.Errorf("overlay %s: %w", o.ID, err)
		}
	}
	for i, a := range st.Clips {
		for _, b := range st.Clips[i+1:] {
			if overlaps(a.Position, a.Duration, b.Position, b.Duration) {
				return nil, fmt.Errorf("clips %s and %s: %w", a.ID, b.ID, ErrOverlap)
			}
		}
	}
	if st.CurrentTime < 0 {
		st.CurrentTime = 0
	}
	s := New()
	s.state = cloneState(st)
	sortClips(s.state.Clips)
	return s, nil
}

// Subscribe registers a change listener. The listener receives a snapshot
// after every successful mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// AddClip inserts a clip onto the video track. The clip's interval must not
// intersect any existing clip's interval.
func (s *Store) AddClip(c Clip) error {
	if err := validateClip(c); err != nil {
		return err
	}
	s.mu.Lock()
	if s.findClip(c.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("clip %s already exists: %w", c.ID, ErrInvalidClip)
	}
	for _, other := range s.state.Clips {
		if overlaps(c.Position, c.Duration, other.Position, other.Duration) {
			s.mu.Unlock()
			return fmt.Errorf("clip %s [%d,%d) intersects %s [%d,%d): %w",
				c.ID, c.Position, c.End(), other.ID, other.Position, other.End(), ErrOverlap)
		}
	}
	s.state.Clips = append(s.state.Clips, c)
	sortClips(s.state.Clips)
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// RemoveClip deletes a clip from the track.
func (s *Store) RemoveClip(id string) error {
	s.mu.Lock()
	i := s.findClip(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("clip %s: %w", id, ErrNotFound)
	}
	s.state.Clips = append(s.state.Clips[:i], s.state.Clips[i+1:]...)
	if s.state.ActiveClipID == id {
		s.state.ActiveClipID = ""
	}
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// UpdateClip merges non-nil patch fields into the clip and re-validates the
// non-overlap invariant against all other clips. On violation the mutation is
// rejected and state is unchanged; positions are never silently clamped.
func (s *Store) UpdateClip(id string, patch ClipPatch) error {
	s.mu.Lock()
	i := s.findClip(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("clip %s: %w", id, ErrNotFound)
	}

	updated := s.state.Clips[i]
	if patch.SourceURI != nil {
		updated.SourceURI = *patch.SourceURI
	}
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.Position != nil {
		updated.Position = *patch.Position
	}
	if patch.Duration != nil {
		updated.Duration = *patch.Duration
	}
	if patch.SourceOffset != nil {
		updated.SourceOffset = *patch.SourceOffset
	}
	if patch.Volume != nil {
		updated.Volume = *patch.Volume
	}

	if err := validateClip(updated); err != nil {
		s.mu.Unlock()
		return err
	}
	for j, other := range s.state.Clips {
		if j == i {
			continue
		}
		if overlaps(updated.Position, updated.Duration, other.Position, other.Duration) {
			s.mu.Unlock()
			return fmt.Errorf("clip %s [%d,%d) intersects %s [%d,%d): %w",
				id, updated.Position, updated.End(), other.ID, other.Position, other.End(), ErrOverlap)
		}
	}

	s.state.Clips[i] = updated
	sortClips(s.state.Clips)
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// MoveClip repositions a clip on the timeline.
func (s *Store) MoveClip(id string, newPosition int64) error {
	return s.UpdateClip(id, ClipPatch{Position: &newPosition})
}

// Seek sets the playhead. Negative times clamp to zero; there is no upper
// bound, the resolver simply reports no active clip past the end. Seek is
// idempotent.
func (s *Store) Seek(timeMs int64) {
	if timeMs < 0 {
		timeMs = 0
	}
	s.mu.Lock()
	s.state.CurrentTime = timeMs
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
}

// SetPlaying toggles the play state. Idempotent.
func (s *Store) SetPlaying(playing bool) {
	s.mu.Lock()
	s.state.IsPlaying = playing
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
}

// SelectClip records the clip the UI has focused. Selection is not
// authoritative for playback; the resolver recomputes the active clip
// independently.
func (s *Store) SelectClip(id string) error {
	s.mu.Lock()
	if id != "" && s.findClip(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("clip %s: %w", id, ErrNotFound)
	}
	s.state.ActiveClipID = id
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// SelectOverlay records the overlay the UI has focused.
func (s *Store) SelectOverlay(id string) error {
	s.mu.Lock()
	if id != "" && s.findOverlay(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("overlay %s: %w", id, ErrNotFound)
	}
	s.state.ActiveTextID = id
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// AddTextOverlay inserts an overlay. Overlays carry no non-overlap
// constraint.
func (s *Store) AddTextOverlay(o TextOverlay) error {
	if err := validateOverlay(o); err != nil {
		return err
	}
	s.mu.Lock()
	if s.findOverlay(o.ID) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("overlay %s already exists: %w", o.ID, ErrInvalidClip)
	}
	s.state.TextClips = append(s.state.TextClips, o)
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// UpdateTextOverlay merges non-nil patch fields into the overlay.
func (s *Store) UpdateTextOverlay(id string, patch OverlayPatch) error {
	s.mu.Lock()
	i := s.findOverlay(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("overlay %s: %w", id, ErrNotFound)
	}

	updated := s.state.TextClips[i]
	if patch.Text != nil {
		updated.Text = *patch.Text
	}
	if patch.Position != nil {
		updated.Position = *patch.Position
	}
	if patch.Duration != nil {
		updated.Duration = *patch.Duration
	}
	if patch.Style != nil {
		updated.Style = *patch.Style
	}

	if err := validateOverlay(updated); err != nil {
		s.mu.Unlock()
		return err
	}

	s.state.TextClips[i] = updated
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// RemoveTextOverlay deletes an overlay.
func (s *Store) RemoveTextOverlay(id string) error {
	s.mu.Lock()
	i := s.findOverlay(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("overlay %s: %w", id, ErrNotFound)
	}
	s.state.TextClips = append(s.state.TextClips[:i], s.state.TextClips[i+1:]...)
	if s.state.ActiveTextID == id {
		s.state.ActiveTextID = ""
	}
	snap := cloneState(s.state)
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// findClip returns the index of the clip with the given id, or -1. Caller
// holds s.mu.
func (s *Store) findClip(id string) int {
	for i, c := range s.state.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) findOverlay(id string) int {
	for i, o := range s.state.TextClips {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// notify delivers a snapshot to all subscribers. It is called after s.mu is
// released so a subscriber may re-enter the store (the synchronizer commits
// seeks from inside its change handler).
func (s *Store) notify(snap State) {
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(cloneState(snap))
	}
}

func sortClips(clips []Clip) {
	sort.Slice(clips, func(i, j int) bool {
		if clips[i].Position != clips[j].Position {
			return clips[i].Position < clips[j].Position
		}
		return clips[i].ID < clips[j].ID
	})
}

func cloneState(st State) State {
	out := st
	out.Clips = make([]Clip, len(st.Clips))
	copy(out.Clips, st.Clips)
	out.TextClips = make([]TextOverlay, len(st.TextClips))
	copy(out.TextClips, st.TextClips)
	return out
}
