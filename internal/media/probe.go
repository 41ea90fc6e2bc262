package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// Prober reports metadata about a media source. The agent uses it to default
// a new clip's duration when the caller does not supply one, and the
// simulated player uses it to know when a source runs out.
type Prober interface {
	Probe(ctx context.Context, sourceURI string) (*ProbeResult, error)
}

type ProbeResult struct {
	DurationMs int64
	Width      int
	Height     int
	Codec      string
}

// FFProbe shells out to ffprobe for source metadata.
type FFProbe struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

func NewFFProbe(binary string, timeout time.Duration, logger *slog.Logger) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{binary: binary, timeout: timeout, logger: logger}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (f *FFProbe) Probe(ctx context.Context, sourceURI string) (*ProbeResult, error) {
	path, err := sourcePath(sourceURI)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parse duration %q: %w", parsed.Format.Duration, err)
	}

	result := &ProbeResult{DurationMs: int64(seconds * 1000)}
	for _, stream := range parsed.Streams {
		if stream.CodecType == "video" {
			result.Width = stream.Width
			result.Height = stream.Height
			result.Codec = stream.CodecName
			break
		}
	}

	if f.logger != nil {
		f.logger.Debug("probed source", "uri", sourceURI, "duration_ms", result.DurationMs)
	}
	return result, nil
}

// StubProber returns a fixed duration for every source; used in tests and
// when ffprobe is unavailable.
type StubProber struct {
	DurationMs int64
	Err        error
}

func (p *StubProber) Probe(ctx context.Context, sourceURI string) (*ProbeResult, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return &ProbeResult{DurationMs: p.DurationMs}, nil
}
