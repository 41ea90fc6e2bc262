package ui

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"
	"github.com/reelcut/reelcut-agent/internal/project"
)

type Tray struct {
	projects project.ProjectService
	logger   *slog.Logger

	statusItem   *systray.MenuItem
	sessionsItem *systray.MenuItem

	mu sync.Mutex

	onSaveAll func() error
	onQuit    func()
}

type TrayConfig struct {
	Projects  project.ProjectService
	Logger    *slog.Logger
	OnSaveAll func() error
	OnQuit    func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		projects:  cfg.Projects,
		logger:    cfg.Logger,
		onSaveAll: cfg.OnSaveAll,
		onQuit:    cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Reelcut")
	systray.SetTooltip("Reelcut Agent")

	t.statusItem = systray.AddMenuItem("Playback: Idle", "Current playback state")
	t.statusItem.Disable()

	t.sessionsItem = systray.AddMenuItem("Sessions: 0", "Open editing sessions")
	t.sessionsItem.Disable()

	systray.AddSeparator()

	saveItem := systray.AddMenuItem("Save All", "Save every open session")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Reelcut Agent")

	go func() {
		for {
			select {
			case <-saveItem.ClickedCh:
				t.handleSaveAll()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleSaveAll() {
	if t.onSaveAll != nil {
		if err := t.onSaveAll(); err != nil {
			t.logger.Error("failed to save sessions", "error", err)
		}
	}
}

// Refresh repaints the status items from the project service.
func (t *Tray) Refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.statusItem == nil {
		return
	}

	state := "Idle"
	if t.projects.AnyPlaying() {
		state = "Playing"
	} else if t.projects.SessionCount() > 0 {
		state = "Paused"
	}
	t.statusItem.SetTitle("Playback: " + state)
	t.sessionsItem.SetTitle(fmt.Sprintf("Sessions: %d", t.projects.SessionCount()))
}

func (t *Tray) Quit() {
	systray.Quit()
}
