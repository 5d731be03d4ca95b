package utils

import (
	"context"
	"sync"
)

type MockDurationProber struct {
	ProbeFunc func(ctx context.Context, path string) (MediaInfo, error)
}

func (m *MockDurationProber) Probe(ctx context.Context, path string) (MediaInfo, error) {
	return m.ProbeFunc(ctx, path)
}

type MockAudioExtractor struct {
	ExtractAudioFunc func(ctx context.Context, videoFile, audioFile string) error
}

func (m *MockAudioExtractor) ExtractAudio(ctx context.Context, videoFile, audioFile string) error {
	return m.ExtractAudioFunc(ctx, videoFile, audioFile)
}

type MockChunkRenderer struct {
	RenderChunkFunc func(ctx context.Context, sourceFile string, rng ChunkRange, chunkFile string) error
}

func (m *MockChunkRenderer) RenderChunk(ctx context.Context, sourceFile string, rng ChunkRange, chunkFile string) error {
	return m.RenderChunkFunc(ctx, sourceFile, rng, chunkFile)
}

type MockAudioTranscriber struct {
	TranscribeAudioFunc func(ctx context.Context, audioFile string) ([]Segment, error)
	ModelName           string
}

func (m *MockAudioTranscriber) TranscribeAudio(ctx context.Context, audioFile string) ([]Segment, error) {
	return m.TranscribeAudioFunc(ctx, audioFile)
}

func (m *MockAudioTranscriber) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

type MockTranscriptWriter struct {
	WriteTranscriptFunc func(transcript Transcript, header TranscriptHeader, path string) error
}

func (m *MockTranscriptWriter) WriteTranscript(transcript Transcript, header TranscriptHeader, path string) error {
	return m.WriteTranscriptFunc(transcript, header, path)
}

type MockLanguageDetector struct {
	DetectLanguageFunc func(text string) string
}

func (m *MockLanguageDetector) DetectLanguage(text string) string {
	return m.DetectLanguageFunc(text)
}

// MemorySegmentCache is an in-memory SegmentCache.
type MemorySegmentCache struct {
	mu      sync.Mutex
	entries map[string][]Segment
	Hits    int
}

func (c *MemorySegmentCache) Lookup(_ context.Context, key string) ([]Segment, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	segments, ok := c.entries[key]
	if ok {
		c.Hits++
	}
	return segments, ok, nil
}

func (c *MemorySegmentCache) Store(_ context.Context, key string, segments []Segment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]Segment)
	}
	c.entries[key] = segments
	return nil
}

func (c *MemorySegmentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
