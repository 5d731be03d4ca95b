package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const unknownSpeaker = "unknown"

// TranscriptHeader is the provenance block written above the segments.
type TranscriptHeader struct {
	Source    string
	Processed string
	Model     string
	Generated time.Time
}

type FileTranscriptWriter struct{}

// WriteTranscript replaces path with the rendered transcript. The file is written to a
// temporary sibling and renamed into place, so a failed write leaves no partial output.
func (FileTranscriptWriter) WriteTranscript(transcript Transcript, header TranscriptHeader, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Wrap(ErrWrite, "output", "create directory "+dir, err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return Wrap(ErrWrite, "output", "lock "+path, err)
	}
	// The lock file stays behind so every writer locks the same inode.
	defer lock.Unlock()

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return Wrap(ErrWrite, "output", "create temp file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := RenderTranscript(w, transcript, header); err != nil {
		tmp.Close()
		return Wrap(ErrWrite, "output", "render transcript", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return Wrap(ErrWrite, "output", "flush "+tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return Wrap(ErrWrite, "output", "sync "+tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return Wrap(ErrWrite, "output", "close "+tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return Wrap(ErrWrite, "output", "chmod "+tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return Wrap(ErrWrite, "output", "rename to "+path, err)
	}
	committed = true
	return nil
}

// RenderTranscript writes the text form of transcript to w.
func RenderTranscript(w io.StringWriter, transcript Transcript, header TranscriptHeader) error {
	var b strings.Builder
	b.WriteString("#########\n")
	b.WriteString(header.Generated.Format(time.RFC3339) + "\n")
	fmt.Fprintf(&b, "Source file: %s\n", header.Source)
	if header.Processed != "" && header.Processed != header.Source {
		fmt.Fprintf(&b, "Processed file: %s\n", header.Processed)
	}
	fmt.Fprintf(&b, "Model: %s\n", header.Model)
	if transcript.Language != "" {
		fmt.Fprintf(&b, "Language: %s\n", transcript.Language)
	}
	fmt.Fprintf(&b, "Chunks: %d\n", transcript.Chunks)

	b.WriteString("\nSegments:\n")
	for _, seg := range transcript.Segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = unknownSpeaker
		}
		fmt.Fprintf(&b, "[%s - %s] %s: %s\n", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), speaker, seg.Text)
	}

	b.WriteString("\nFull transcript:\n")
	b.WriteString(transcript.Text + "\n")

	_, err := w.WriteString(b.String())
	return err
}
