// Package capability holds the two enrichment steps that run against a
// recording's audio file once it is catalogued: probing its duration and
// hashing its contents.
package capability

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DurationProbe shells out to ffprobe to read a file's duration. It holds
// no state beyond the binary path, so a single instance is safe to share
// across concurrent tasks.
type DurationProbe struct {
	ffprobePath string
}

// NewDurationProbe returns a probe that invokes the named ffprobe binary
// (or "ffprobe" if ffprobePath is empty, resolved via PATH).
func NewDurationProbe(ffprobePath string) *DurationProbe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &DurationProbe{ffprobePath: ffprobePath}
}

// Probe returns the duration of the audio file at path. It fails if
// ffprobe cannot be run or reports no duration — the orchestrator treats
// that as a single enrichment task failure, never as a reason to drop the
// recording itself.
func (p *DurationProbe) Probe(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	seconds, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: unparsable duration %q: %w", path, text, err)
	}

	return time.Duration(seconds * float64(time.Second)), nil
}
