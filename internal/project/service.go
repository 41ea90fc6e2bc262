package project

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// PlayerFactory creates a fresh player for each opened session. The agent
// hands every session its own player so two open projects never fight over
// one output.
type PlayerFactory func() playback.Player

// Session is a live editing session: the in-memory timeline store for one
// project plus the synchronizer driving its player.
type Session struct {
	ProjectID string
	Store     *timeline.Store
	Sync      *playback.Synchronizer

	mu      sync.Mutex
	lastErr error
}

// LastError returns the most recent player failure, cleared on read. The API
// surfaces it once in the session state and then forgets it.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lastErr
	s.lastErr = nil
	return err
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

type ProjectService interface {
	CreateProject(ctx context.Context, name string, frameRate float64) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error

	OpenSession(ctx context.Context, projectID string) (*Session, error)
	Session(projectID string) (*Session, error)
	SaveSession(ctx context.Context, projectID string) error
	CloseSession(ctx context.Context, projectID string) error
	CloseAll(ctx context.Context)
	SessionCount() int
	AnyPlaying() bool
}

type Service struct {
	repo      Repository
	logger    *slog.Logger
	newPlayer PlayerFactory
	driftMs   int64

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(repo Repository, newPlayer PlayerFactory, driftMs int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		logger:    logger,
		newPlayer: newPlayer,
		driftMs:   driftMs,
		sessions:  make(map[string]*Session),
	}
}

func (s *Service) CreateProject(ctx context.Context, name string, frameRate float64) (*Project, error) {
	if name == "" {
		name = "Untitled"
	}
	if frameRate <= 0 {
		frameRate = 30.0
	}

	now := time.Now()
	p := &Project{
		ID:        timeline.NewID(),
		Name:      name,
		FrameRate: frameRate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("project created", "project_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) RenameProject(ctx context.Context, id, name string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.repo.RenameProject(ctx, id, name)
}

// DeleteProject closes any open session for the project, then removes it and
// its timeline rows.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, open := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if open {
		sess.Sync.Stop()
	}

	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}

// OpenSession rehydrates the project's timeline into a live store and starts
// a synchronizer against a fresh player. Opening an already-open project
// returns the existing session.
func (s *Service) OpenSession(ctx context.Context, projectID string) (*Session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[projectID]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	st, err := s.repo.LoadState(ctx, projectID)
	if err != nil {
		return nil, err
	}

	store, err := timeline.NewFromState(st)
	if err != nil {
		return nil, err
	}

	sess := &Session{ProjectID: projectID, Store: store}
	sess.Sync = playback.NewSynchronizer(store, s.newPlayer(), playback.Options{
		DriftThresholdMs: s.driftMs,
		Logger:           s.logger.With("project_id", projectID),
		OnError:          sess.setError,
	})

	s.mu.Lock()
	if existing, ok := s.sessions[projectID]; ok {
		// Lost the race to a concurrent open.
		s.mu.Unlock()
		return existing, nil
	}
	s.sessions[projectID] = sess
	s.mu.Unlock()

	sess.Sync.Start()
	s.logger.Info("session opened", "project_id", projectID,
		"clips", len(st.Clips), "overlays", len(st.TextClips))
	return sess, nil
}

func (s *Service) Session(projectID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[projectID]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// SaveSession persists the session's current timeline snapshot.
func (s *Service) SaveSession(ctx context.Context, projectID string) error {
	sess, err := s.Session(projectID)
	if err != nil {
		return err
	}
	return s.repo.SaveState(ctx, projectID, sess.Store.Snapshot())
}

// CloseSession saves the timeline, stops the synchronizer and drops the
// session.
func (s *Service) CloseSession(ctx context.Context, projectID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[projectID]
	delete(s.sessions, projectID)
	s.mu.Unlock()
	if !ok {
		return ErrNoSession
	}

	sess.Sync.Stop()
	if err := s.repo.SaveState(ctx, projectID, sess.Store.Snapshot()); err != nil {
		return err
	}
	s.logger.Info("session closed", "project_id", projectID)
	return nil
}

// CloseAll closes every open session, saving each. Used on agent shutdown.
func (s *Service) CloseAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if err := s.CloseSession(ctx, id); err != nil && err != ErrNoSession {
			s.logger.Warn("failed to close session", "project_id", id, "error", err)
		}
	}
}

func (s *Service) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// AnyPlaying reports whether any open session is currently playing.
func (s *Service) AnyPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.Store.Snapshot().IsPlaying {
			return true
		}
	}
	return false
}
