package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// MediaInfo is the subset of ffprobe output the pipeline needs.
type MediaInfo struct {
	Duration     float64
	AudioStreams int
	VideoStreams int
}

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

type probeFormat struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

type FFprobeProber struct {
	Binary string
}

func (p FFprobeProber) binary() string {
	if b := strings.TrimSpace(p.Binary); b != "" {
		return b
	}
	return "ffprobe"
}

// Probe runs ffprobe against path and returns its duration and stream counts.
func (p FFprobeProber) Probe(ctx context.Context, path string) (MediaInfo, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", "empty path", nil)
	}

	cmd := exec.CommandContext(ctx, p.binary(), "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return MediaInfo{}, Wrap(ErrProbe, "ffprobe", "not installed", err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return MediaInfo{}, Wrap(ErrProbe, "ffprobe", path, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr))))
		}
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", path, err)
	}
	return parseProbeOutput(output)
}

func parseProbeOutput(output []byte) (MediaInfo, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", "parse output", err)
	}

	info := MediaInfo{}
	for _, stream := range result.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "audio":
			info.AudioStreams++
		case "video":
			info.VideoStreams++
		}
	}

	raw := strings.TrimSpace(result.Format.Duration)
	if raw == "" || raw == "N/A" {
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", "duration unavailable", nil)
	}
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", fmt.Sprintf("unable to parse duration %q", raw), err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return MediaInfo{}, Wrap(ErrProbe, "ffprobe", fmt.Sprintf("invalid duration %v", duration), nil)
	}
	info.Duration = duration
	return info, nil
}
