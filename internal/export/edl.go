// Package export renders a timeline snapshot as a CMX3600-style EDL cut
// list: a plain-text description of which source ranges play at which record
// times. It is a data export, not a media render.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// GenerateEDL produces an EDL from the timeline's clip track. Source in/out
// come from each clip's source offset; record in/out come from its timeline
// placement, so gaps between clips survive as gaps in record time. Overlays
// are listed as comments since EDL has no overlay events.
func GenerateEDL(st timeline.State, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 70))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, c := range st.Clips {
		srcIn := msToTimecode(c.SourceOffset, fps)
		srcOut := msToTimecode(c.SourceOffset+c.Duration, fps)
		recIn := msToTimecode(c.Position, fps)
		recOut := msToTimecode(c.End(), fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", SanitizeName(c.Name, 70)),
			fmt.Sprintf("* SOURCE:  %s", c.SourceURI),
		)
		if c.Volume != timeline.DefaultVolume {
			lines = append(lines, fmt.Sprintf("* AUDIO LEVEL:  %d%%", c.Volume))
		}
	}

	for _, o := range st.TextClips {
		lines = append(lines, fmt.Sprintf("* TEXT %s - %s:  %s",
			msToTimecode(o.Position, fps), msToTimecode(o.End(), fps), SanitizeName(o.Text, 70)))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func msToTimecode(ms int64, fps int) string {
	totalFrames := int64(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % int64(fps)
	totalSeconds := totalFrames / int64(fps)
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
