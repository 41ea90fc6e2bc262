// Package playback bridges the timeline store's global clock to an external
// media player. The player is a black box that plays one source at a time and
// reports progress in the source's own intrinsic time; the synchronizer owns
// the mapping between intrinsic time and the global timeline.
package playback

import "log/slog"

// Player is the external media playback primitive. Load replaces the current
// source and begins buffering at the given intrinsic time (seconds within the
// source). Callbacks are (re)registered before each Load; a registration
// replaces the previous one.
//
// Implementations deliver signals asynchronously and are owned exclusively by
// one Synchronizer.
type Player interface {
	Load(sourceURI string, startIntrinsicSeconds float64)
	Play()
	Pause()
	OnReady(fn func())
	OnProgress(fn func(elapsedSeconds float64))
	OnEnded(fn func())
	OnError(fn func(err error))
}

// StubPlayer is a scriptable Player for tests and for running the agent
// without a media backend. Commands are recorded; signals are fired by the
// caller. Fire* methods invoke the callbacks registered at the time of the
// matching Load, so tests can replay stale signals from an abandoned load.
type StubPlayer struct {
	logger *slog.Logger

	Loads  []StubLoad
	Plays  int
	Pauses int

	onReady    func()
	onProgress func(float64)
	onEnded    func()
	onError    func(error)
}

// StubLoad records one Load command together with the callbacks that were
// registered when it was issued.
type StubLoad struct {
	SourceURI    string
	StartSeconds float64

	ready    func()
	progress func(float64)
	ended    func()
	fail     func(error)
}

func NewStubPlayer(logger *slog.Logger) *StubPlayer {
	return &StubPlayer{logger: logger}
}

func (p *StubPlayer) Load(sourceURI string, startIntrinsicSeconds float64) {
	if p.logger != nil {
		p.logger.Debug("stub player: load", "uri", sourceURI, "start_s", startIntrinsicSeconds)
	}
	p.Loads = append(p.Loads, StubLoad{
		SourceURI:    sourceURI,
		StartSeconds: startIntrinsicSeconds,
		ready:        p.onReady,
		progress:     p.onProgress,
		ended:        p.onEnded,
		fail:         p.onError,
	})
}

func (p *StubPlayer) Play()  { p.Plays++ }
func (p *StubPlayer) Pause() { p.Pauses++ }

func (p *StubPlayer) OnReady(fn func())           { p.onReady = fn }
func (p *StubPlayer) OnProgress(fn func(float64)) { p.onProgress = fn }
func (p *StubPlayer) OnEnded(fn func())           { p.onEnded = fn }
func (p *StubPlayer) OnError(fn func(err error))  { p.onError = fn }

// LastLoad returns the most recent Load command.
func (p *StubPlayer) LastLoad() StubLoad {
	if len(p.Loads) == 0 {
		return StubLoad{}
	}
	return p.Loads[len(p.Loads)-1]
}

// FireReady delivers the ready signal for the i-th Load (negative i counts
// from the end).
func (p *StubPlayer) FireReady(i int) {
	if l := p.loadAt(i); l.ready != nil {
		l.ready()
	}
}

func (p *StubPlayer) FireProgress(i int, elapsedSeconds float64) {
	if l := p.loadAt(i); l.progress != nil {
		l.progress(elapsedSeconds)
	}
}

func (p *StubPlayer) FireEnded(i int) {
	if l := p.loadAt(i); l.ended != nil {
		l.ended()
	}
}

func (p *StubPlayer) FireError(i int, err error) {
	if l := p.loadAt(i); l.fail != nil {
		l.fail(err)
	}
}

func (p *StubPlayer) loadAt(i int) StubLoad {
	if i < 0 {
		i += len(p.Loads)
	}
	if i < 0 || i >= len(p.Loads) {
		return StubLoad{}
	}
	return p.Loads[i]
}
