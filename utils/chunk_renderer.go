package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// ChunkExt is the container used for uploaded chunks; mono 64 kb/s MP3 keeps a
	// full-length chunk well under the provider's upload limit.
	ChunkExt = ".mp3"

	// boundsTolerance absorbs container rounding when a range ends exactly at the probed duration.
	boundsTolerance = 0.05
	// minRenderedFraction is the share of the requested length a rendered chunk must contain.
	minRenderedFraction = 0.5
)

type FFmpegChunkRenderer struct {
	Binary string
	// SourceDuration, when positive, bounds the ranges accepted by RenderChunk.
	SourceDuration float64
	// Prober, when set, re-probes each rendered chunk to confirm it holds the requested audio.
	Prober DurationProber
}

func (r FFmpegChunkRenderer) binary() string {
	if b := strings.TrimSpace(r.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

// RenderChunk writes the [rng.Start, rng.End) slice of sourceFile to chunkFile as mono 16 kHz MP3.
func (r FFmpegChunkRenderer) RenderChunk(ctx context.Context, sourceFile string, rng ChunkRange, chunkFile string) error {
	if err := r.checkBounds(rng); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, r.binary(),
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(rng.Start),
		"-t", formatSeconds(rng.Length()),
		"-i", sourceFile,
		"-vn", "-sn", "-dn",
		"-ac", "1", "-ar", "16000",
		"-c:a", "libmp3lame", "-b:a", "64k",
		chunkFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Wrap(ErrRender, "ffmpeg", "not installed", err)
		}
		return Wrap(ErrRender, "ffmpeg", rng.String(), fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	if r.Prober == nil {
		return nil
	}
	return r.verify(ctx, chunkFile, rng)
}

func (r FFmpegChunkRenderer) checkBounds(rng ChunkRange) error {
	if rng.Start < 0 || rng.Length() <= 0 || math.IsNaN(rng.Start) || math.IsNaN(rng.End) {
		return Wrap(ErrRender, "bounds", fmt.Sprintf("invalid range %s", rng), nil)
	}
	if r.SourceDuration > 0 && rng.End > r.SourceDuration+boundsTolerance {
		return Wrap(ErrRender, "bounds", fmt.Sprintf("%s exceeds source duration %s", rng, FormatTimestamp(r.SourceDuration)), nil)
	}
	return nil
}

// verify rejects chunks that came out empty or much shorter than requested, which is what
// ffmpeg produces when the range lies beyond the end of the source.
func (r FFmpegChunkRenderer) verify(ctx context.Context, chunkFile string, rng ChunkRange) error {
	info, err := r.Prober.Probe(ctx, chunkFile)
	if err != nil {
		return Wrap(ErrRender, "verify", rng.String(), err)
	}
	if info.AudioStreams == 0 || info.Duration < rng.Length()*minRenderedFraction {
		return Wrap(ErrRender, "verify", fmt.Sprintf("%s: rendered %.3fs of audio", rng, info.Duration), nil)
	}
	return nil
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
