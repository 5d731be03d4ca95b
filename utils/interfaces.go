package utils

import (
	"context"
)

type DurationProber interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoFile, audioFile string) error
}

type ChunkRenderer interface {
	RenderChunk(ctx context.Context, sourceFile string, rng ChunkRange, chunkFile string) error
}

// AudioTranscriber returns speaker-labelled segments relative to the start of audioFile.
type AudioTranscriber interface {
	TranscribeAudio(ctx context.Context, audioFile string) ([]Segment, error)
	Model() string
}

type TranscriptWriter interface {
	WriteTranscript(transcript Transcript, header TranscriptHeader, path string) error
}

// SegmentCache stores per-chunk segments so interrupted runs can resume.
type SegmentCache interface {
	Lookup(ctx context.Context, key string) ([]Segment, bool, error)
	Store(ctx context.Context, key string, segments []Segment) error
}

// ProgressReporter receives chunk progress from the pipeline.
type ProgressReporter interface {
	Start(total int)
	ChunkDone(index int, segments int)
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(int)          {}
func (noopProgress) ChunkDone(int, int) {}
func (noopProgress) Finish()            {}
