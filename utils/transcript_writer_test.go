package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/HugeFrog24/diarize-transcriber/utils"
)

func sampleTranscript() utils.Transcript {
	return utils.Transcript{
		Segments: []utils.Segment{
			{Start: 0, End: 5, Speaker: "A", Text: "hi"},
			{Start: 1000, End: 1003, Text: "bye"},
		},
		Text:     "hi bye",
		Chunks:   2,
		Duration: 2000,
		Language: "en",
	}
}

func TestRenderTranscript(t *testing.T) {
	header := utils.TranscriptHeader{
		Source:    "sources/meeting.mp4",
		Processed: "/tmp/transcriber-x/meeting.wav",
		Model:     "gpt-4o-transcribe-diarize",
		Generated: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	var b strings.Builder
	if err := utils.RenderTranscript(&b, sampleTranscript(), header); err != nil {
		t.Fatalf("RenderTranscript returned error: %v", err)
	}

	want := `#########
2025-03-14T09:30:00Z
Source file: sources/meeting.mp4
Processed file: /tmp/transcriber-x/meeting.wav
Model: gpt-4o-transcribe-diarize
Language: en
Chunks: 2

Segments:
[00:00:00.000 - 00:00:05.000] A: hi
[00:16:40.000 - 00:16:43.000] unknown: bye

Full transcript:
hi bye
`
	if got := b.String(); got != want {
		t.Errorf("unexpected rendering:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderTranscriptOmitsRedundantLines(t *testing.T) {
	header := utils.TranscriptHeader{Source: "a.mp3", Processed: "a.mp3", Model: "whisper-1"}
	transcript := sampleTranscript()
	transcript.Language = ""

	var b strings.Builder
	if err := utils.RenderTranscript(&b, transcript, header); err != nil {
		t.Fatalf("RenderTranscript returned error: %v", err)
	}
	if strings.Contains(b.String(), "Processed file:") {
		t.Error("expected no processed line when it matches the source")
	}
	if strings.Contains(b.String(), "Language:") {
		t.Error("expected no language line when none was detected")
	}
}

func TestFileTranscriptWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output", "meeting.txt")
	header := utils.TranscriptHeader{Source: "meeting.mp3", Model: "m", Generated: time.Unix(0, 0).UTC()}

	writer := utils.FileTranscriptWriter{}
	if err := writer.WriteTranscript(sampleTranscript(), header, path); err != nil {
		t.Fatalf("WriteTranscript returned error: %v", err)
	}

	second := sampleTranscript()
	second.Text = "replaced"
	if err := writer.WriteTranscript(second, header, path); err != nil {
		t.Fatalf("second WriteTranscript returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasSuffix(string(data), "Full transcript:\nreplaced\n") {
		t.Errorf("expected the second write to replace the first, got:\n%s", data)
	}
	if strings.Count(string(data), "#########") != 1 {
		t.Errorf("expected a single header block, got:\n%s", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 2 || names[0] != "meeting.txt" || names[1] != "meeting.txt.lock" {
		t.Errorf("expected the transcript and its lock file, found %v", names)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("expected the lock to be released after writing, locked=%v err=%v", locked, err)
	}
	defer lock.Unlock()
}

func TestFileTranscriptWriterWaitsForLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.txt")
	header := utils.TranscriptHeader{Source: "meeting.mp3", Model: "m"}

	held := flock.New(path + ".lock")
	if err := held.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- utils.FileTranscriptWriter{}.WriteTranscript(sampleTranscript(), header, path)
	}()

	select {
	case err := <-done:
		t.Fatalf("write finished while the lock was held: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("transcript written while the lock was held: %v", err)
	}

	if err := held.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("WriteTranscript returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write did not resume after the lock was released")
	}
	if _, err := os.Stat(path + ".lock"); err != nil {
		t.Errorf("expected the lock file to remain: %v", err)
	}
}

func TestFileTranscriptWriterFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	err := utils.FileTranscriptWriter{}.WriteTranscript(sampleTranscript(), utils.TranscriptHeader{}, filepath.Join(blocker, "out.txt"))
	if !errors.Is(err, utils.ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
}
