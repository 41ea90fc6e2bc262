// Package config provides configuration management for the Reelcut Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort             = 7878
	DefaultLogLevel         = "info"
	DefaultDataDir          = ".reelcut"
	DefaultDriftThresholdMs = 50
	DefaultSimTickMs        = 250

	// Environment variable names
	EnvPort             = "REELCUT_PORT"
	EnvLogLevel         = "REELCUT_LOG_LEVEL"
	EnvDataDir          = "REELCUT_DATA_DIR"
	EnvHeadless         = "REELCUT_HEADLESS"
	EnvDriftThresholdMs = "REELCUT_DRIFT_THRESHOLD_MS"
	EnvSimTickMs        = "REELCUT_SIM_TICK_MS"
	EnvFFProbe          = "REELCUT_FFPROBE"

	// Database filename
	DBFilename = "reelcut.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	DriftThreshold() int64
	SimTick() time.Duration
	FFProbePath() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port      int
	logLevel  string
	dataDir   string
	headless  bool
	driftMs   int64
	simTickMs int64
	ffprobe   string
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:      DefaultPort,
		logLevel:  DefaultLogLevel,
		dataDir:   defaultDataDir(),
		driftMs:   DefaultDriftThresholdMs,
		simTickMs: DefaultSimTickMs,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	if d := os.Getenv(EnvDriftThresholdMs); d != "" {
		drift, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvDriftThresholdMs, err)
		}
		if drift <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvDriftThresholdMs)
		}
		cfg.driftMs = drift
	}

	if tk := os.Getenv(EnvSimTickMs); tk != "" {
		tick, err := strconv.ParseInt(tk, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSimTickMs, err)
		}
		if tick <= 0 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvSimTickMs)
		}
		cfg.simTickMs = tick
	}

	cfg.ffprobe = os.Getenv(EnvFFProbe)

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Headless reports whether the system tray should be skipped
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// DriftThreshold returns the playback drift correction threshold in
// milliseconds
func (c *EnvConfig) DriftThreshold() int64 {
	return c.driftMs
}

// SimTick returns the simulated player's progress interval
func (c *EnvConfig) SimTick() time.Duration {
	return time.Duration(c.simTickMs) * time.Millisecond
}

// FFProbePath returns the ffprobe binary override, empty for $PATH lookup
func (c *EnvConfig) FFProbePath() string {
	return c.ffprobe
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
