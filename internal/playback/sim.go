package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSimTick is the progress reporting interval of the simulated player.
const DefaultSimTick = 250 * time.Millisecond

// DurationFunc reports the intrinsic duration of a source in seconds. The
// simulated player uses it to know when a source runs out.
type DurationFunc func(sourceURI string) (float64, error)

// SimPlayer is a Player that advances intrinsic time against the wall clock
// and emits progress ticks, without decoding any media. The agent uses it for
// headless preview so timeline timing (clip hand-off, overlay windows, drift
// correction) behaves exactly as it would against a real player.
type SimPlayer struct {
	logger   *slog.Logger
	tick     time.Duration
	duration DurationFunc

	mu        sync.Mutex
	uri       string
	intrinsic float64
	length    float64
	playing   bool
	gen       int

	onReady    func()
	onProgress func(float64)
	onEnded    func()
	onError    func(error)
}

// NewSimPlayer creates a simulated player. duration resolves each loaded
// source's intrinsic length; tick <= 0 falls back to DefaultSimTick.
func NewSimPlayer(duration DurationFunc, tick time.Duration, logger *slog.Logger) *SimPlayer {
	if tick <= 0 {
		tick = DefaultSimTick
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimPlayer{logger: logger, tick: tick, duration: duration}
}

func (p *SimPlayer) Load(sourceURI string, startIntrinsicSeconds float64) {
	p.mu.Lock()
	p.gen++
	p.uri = sourceURI
	p.intrinsic = startIntrinsicSeconds
	p.playing = false
	ready := p.onReady
	fail := p.onError
	p.mu.Unlock()

	go func() {
		length, err := p.duration(sourceURI)
		if err != nil {
			p.logger.Warn("sim player: cannot resolve source duration", "uri", sourceURI, "error", err)
			if fail != nil {
				fail(fmt.Errorf("load %s: %w", sourceURI, err))
			}
			return
		}

		p.mu.Lock()
		if p.uri != sourceURI {
			p.mu.Unlock()
			return
		}
		p.length = length
		p.mu.Unlock()

		if ready != nil {
			ready()
		}
	}()
}

func (p *SimPlayer) Play() {
	p.mu.Lock()
	if p.playing || p.uri == "" {
		p.mu.Unlock()
		return
	}
	p.playing = true
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	go p.run(gen)
}

func (p *SimPlayer) Pause() {
	p.mu.Lock()
	p.playing = false
	p.gen++
	p.mu.Unlock()
}

func (p *SimPlayer) OnReady(fn func())           { p.mu.Lock(); p.onReady = fn; p.mu.Unlock() }
func (p *SimPlayer) OnProgress(fn func(float64)) { p.mu.Lock(); p.onProgress = fn; p.mu.Unlock() }
func (p *SimPlayer) OnEnded(fn func())           { p.mu.Lock(); p.onEnded = fn; p.mu.Unlock() }
func (p *SimPlayer) OnError(fn func(err error))  { p.mu.Lock(); p.onError = fn; p.mu.Unlock() }

// run ticks intrinsic time forward until the source ends, the player pauses,
// or a newer load/play supersedes this run.
func (p *SimPlayer) run(gen int) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.gen != gen || !p.playing {
			p.mu.Unlock()
			return
		}
		p.intrinsic += p.tick.Seconds()
		elapsed := p.intrinsic
		ended := elapsed >= p.length
		if ended {
			elapsed = p.length
			p.intrinsic = p.length
			p.playing = false
		}
		progress := p.onProgress
		onEnded := p.onEnded
		p.mu.Unlock()

		if progress != nil {
			progress(elapsed)
		}
		if ended {
			if onEnded != nil {
				onEnded()
			}
			return
		}
	}
}
