package playback

import (
	"log/slog"
	"sync"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// DefaultDriftThresholdMs is how far a player progress report may disagree
// with the store's playhead before the synchronizer commits a corrective
// seek. Sub-threshold jitter is ignored to avoid feedback oscillation.
const DefaultDriftThresholdMs = 50

// State is the synchronizer's position in its state machine.
type State int

const (
	// StateIdle: no clip is loaded (empty timeline, playhead in a gap or
	// past the end, or a player error).
	StateIdle State = iota
	// StateLoading: the active clip changed and the player has not yet
	// reported ready. Play commands are buffered until ready.
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Options tunes a Synchronizer.
type Options struct {
	// DriftThresholdMs overrides DefaultDriftThresholdMs when > 0.
	DriftThresholdMs int64
	Logger           *slog.Logger
	// OnError receives player failures after the synchronizer has already
	// stopped playback. The synchronizer never retries on its own.
	OnError func(error)
}

// Synchronizer drives the single external player from store state. It is the
// only component that issues player commands; every decision about when to do
// so is a pure function of the latest store snapshot and the player signal at
// hand, so the machine is testable with a scripted player.
type Synchronizer struct {
	store   *timeline.Store
	player  Player
	logger  *slog.Logger
	drift   int64
	onError func(error)

	mu           sync.Mutex
	state        State
	loadedClipID string
	// loadGen increments on every Load (and on cancellation); signals
	// carrying an older generation are stale and ignored.
	loadGen uint64
	// lastTime is the playhead value last observed from the store, used to
	// tell seeks apart from unrelated mutations.
	lastTime int64
	// expectedTime marks a playhead value this synchronizer itself committed
	// from a progress report; observing it back is an echo, not a user seek.
	expectedTime int64
	hasExpected  bool

	unsubscribe func()
}

// NewSynchronizer wires a store to a player. Call Start to begin tracking.
func NewSynchronizer(store *timeline.Store, player Player, opts Options) *Synchronizer {
	drift := opts.DriftThresholdMs
	if drift <= 0 {
		drift = DefaultDriftThresholdMs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{
		store:   store,
		player:  player,
		logger:  logger,
		drift:   drift,
		onError: opts.OnError,
		state:   StateIdle,
	}
}

// Start subscribes to the store and synchronizes against its current state,
// loading the active clip if there is one.
func (s *Synchronizer) Start() {
	snap := s.store.Snapshot()
	s.mu.Lock()
	s.lastTime = snap.CurrentTime
	s.mu.Unlock()

	s.unsubscribe = s.store.Subscribe(s.onStoreChange)
	s.onStoreChange(snap)
}

// Stop detaches from the store and quiets the player. Pending loads are
// cancelled; their signals will arrive stale and be dropped.
func (s *Synchronizer) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Lock()
	wasActive := s.state == StatePlaying || s.state == StateLoading
	s.state = StateIdle
	s.loadedClipID = ""
	s.loadGen++
	s.mu.Unlock()

	if wasActive {
		s.player.Pause()
	}
}

// State returns the current machine state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LoadedClipID returns the id of the clip currently loaded (or loading).
func (s *Synchronizer) LoadedClipID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedClipID
}

// onStoreChange re-enters the transition function with a fresh snapshot.
// Player commands are collected under the lock and issued after it is
// released, because a command can synchronously produce the next signal.
func (s *Synchronizer) onStoreChange(st timeline.State) {
	active := timeline.ResolveActive(st.Clips, st.TextClips, st.CurrentTime)

	var actions []func()

	s.mu.Lock()
	seeked := st.CurrentTime != s.lastTime
	echo := s.hasExpected && st.CurrentTime == s.expectedTime
	s.lastTime = st.CurrentTime
	if echo {
		s.hasExpected = false
	}

	switch {
	case active.Clip == nil:
		if s.state != StateIdle {
			s.logger.Debug("playhead left clip coverage", "time_ms", st.CurrentTime)
			s.state = StateIdle
			s.loadedClipID = ""
			s.loadGen++
			actions = append(actions, s.player.Pause)
		}

	case active.Clip.ID != s.loadedClipID || (seeked && !echo):
		// A different clip became active, or the user moved the playhead.
		// Progress echoes never reload; manual seeks always do.
		actions = append(actions, s.beginLoadLocked(*active.Clip, st.CurrentTime))

	default:
		switch {
		case s.state == StateLoading:
			// Play/pause is buffered until the player reports ready.
		case st.IsPlaying && s.state == StateIdle:
			// Idle with an active clip happens after a player error;
			// pressing play again is the user-driven retry.
			actions = append(actions, s.beginLoadLocked(*active.Clip, st.CurrentTime))
		case st.IsPlaying && s.state != StatePlaying:
			s.state = StatePlaying
			actions = append(actions, s.player.Play)
		case !st.IsPlaying && s.state == StatePlaying:
			s.state = StatePaused
			actions = append(actions, s.player.Pause)
		}
	}
	s.mu.Unlock()

	for _, act := range actions {
		act()
	}
}

// beginLoadLocked transitions to Loading and returns the deferred player
// commands for the new load. Caller holds s.mu.
func (s *Synchronizer) beginLoadLocked(c timeline.Clip, currentTime int64) func() {
	s.loadGen++
	gen := s.loadGen
	s.state = StateLoading
	s.loadedClipID = c.ID

	startSeconds := float64(c.SourceOffset+(currentTime-c.Position)) / 1000.0
	uri := c.SourceURI

	s.logger.Debug("loading clip",
		"clip_id", c.ID, "uri", uri, "start_s", startSeconds, "generation", gen)

	return func() {
		s.player.OnReady(func() { s.handleReady(gen) })
		s.player.OnProgress(func(e float64) { s.handleProgress(gen, e) })
		s.player.OnEnded(func() { s.handleEnded(gen) })
		s.player.OnError(func(err error) { s.handleError(gen, err) })
		s.player.Load(uri, startSeconds)
	}
}

func (s *Synchronizer) handleReady(gen uint64) {
	s.mu.Lock()
	if gen != s.loadGen || s.state != StateLoading {
		s.logger.Debug("ignoring stale ready", "generation", gen, "current", s.loadGen)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	playing := s.store.Snapshot().IsPlaying

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	var act func()
	if playing {
		s.state = StatePlaying
		act = s.player.Play
	} else {
		s.state = StatePaused
	}
	s.mu.Unlock()

	if act != nil {
		act()
	}
}

// handleProgress maps the player's intrinsic elapsed time back onto the
// global timeline and corrects the playhead when it drifts past the
// threshold.
func (s *Synchronizer) handleProgress(gen uint64, elapsedSeconds float64) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	clipID := s.loadedClipID
	s.mu.Unlock()

	st := s.store.Snapshot()
	var loaded *timeline.Clip
	for i := range st.Clips {
		if st.Clips[i].ID == clipID {
			loaded = &st.Clips[i]
			break
		}
	}
	if loaded == nil {
		// Clip was edited away mid-flight; the store change already
		// triggered a reload.
		return
	}

	candidate := loaded.Position + int64(elapsedSeconds*1000) - loaded.SourceOffset
	diff := candidate - st.CurrentTime
	if diff < 0 {
		diff = -diff
	}
	if diff <= s.drift {
		return
	}

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		return
	}
	s.expectedTime = candidate
	s.hasExpected = true
	s.mu.Unlock()

	s.store.Seek(candidate)
}

// handleEnded advances to the next clip on the timeline, skipping any gap
// silently, or stops playback at the end of the last clip.
func (s *Synchronizer) handleEnded(gen uint64) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.logger.Debug("ignoring stale ended", "generation", gen, "current", s.loadGen)
		s.mu.Unlock()
		return
	}
	clipID := s.loadedClipID
	s.mu.Unlock()

	st := s.store.Snapshot()
	next := timeline.NextClip(st.Clips, st.CurrentTime)
	if next != nil {
		s.logger.Debug("clip ended, advancing", "next_clip_id", next.ID, "position_ms", next.Position)
		s.store.Seek(next.Position)
		return
	}

	// End of the timeline: park the playhead at the end of the loaded clip.
	// No clip resolves active there, so the store change runs the Idle
	// transition (pause, unload) before playback is switched off.
	s.logger.Debug("clip ended, no next clip, stopping")
	for i := range st.Clips {
		if st.Clips[i].ID == clipID {
			s.store.Seek(st.Clips[i].End())
			break
		}
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.state = StateIdle
		s.loadedClipID = ""
		s.loadGen++
	}
	s.mu.Unlock()

	s.store.SetPlaying(false)
}

// handleError stops playback and surfaces the failure. Retry policy belongs
// to the player integration, not here.
func (s *Synchronizer) handleError(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.loadGen {
		s.logger.Debug("ignoring stale player error", "error", err)
		s.mu.Unlock()
		return
	}
	// Keep loadedClipID: the clip is still the active one, and clearing it
	// would make the stop-playback notification immediately reload the
	// source that just failed.
	s.state = StateIdle
	s.loadGen++
	handler := s.onError
	s.mu.Unlock()

	s.logger.Error("player error", "error", err)
	s.store.SetPlaying(false)
	if handler != nil {
		handler(err)
	}
}
