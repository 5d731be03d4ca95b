package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/go-audio/wav"
)

type FFmpegAudioExtractor struct {
	Binary string
}

func (e FFmpegAudioExtractor) binary() string {
	if b := strings.TrimSpace(e.Binary); b != "" {
		return b
	}
	return "ffmpeg"
}

// ExtractAudio re-encodes the audio track of videoFile into a mono 16 kHz WAV at audioFile.
// An existing audioFile is overwritten.
func (e FFmpegAudioExtractor) ExtractAudio(ctx context.Context, videoFile, audioFile string) error {
	cmd := exec.CommandContext(ctx, e.binary(),
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", videoFile,
		"-vn", "-sn", "-dn",
		"-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1",
		audioFile,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Wrap(ErrExtraction, "ffmpeg", "not installed", err)
		}
		stderrStr := strings.TrimSpace(stderr.String())
		if strings.Contains(stderrStr, "does not contain any stream") || strings.Contains(stderrStr, "Output file is empty") {
			return Wrap(ErrExtraction, "ffmpeg", videoFile+" has no audio stream", nil)
		}
		return Wrap(ErrExtraction, "ffmpeg", videoFile, fmt.Errorf("%w: %s", err, stderrStr))
	}
	return verifyExtractedAudio(videoFile, audioFile)
}

// verifyExtractedAudio checks that ffmpeg produced a WAV with a non-zero duration.
func verifyExtractedAudio(videoFile, audioFile string) error {
	f, err := os.Open(audioFile)
	if err != nil {
		return Wrap(ErrExtraction, "verify", audioFile, err)
	}
	defer f.Close()

	// IsValidFile also rejects a zero duration.
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Wrap(ErrExtraction, "verify", videoFile+" has no usable audio", dec.Err())
	}
	return nil
}
