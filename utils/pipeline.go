package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes chunking, concurrency and temp file handling for a Pipeline. Zero values take
// the package defaults.
type Options struct {
	MaxChunkSeconds    float64
	TargetChunkSeconds float64
	MinChunkFraction   float64
	// Workers > 1 transcribes chunks concurrently.
	Workers int
	// TempDir is the parent of each run's working directory; empty means os.TempDir().
	TempDir  string
	KeepTemp bool
	// Language is part of the cache key; it must match what the transcriber was configured with.
	Language string
}

func (o Options) withDefaults() Options {
	if o.MaxChunkSeconds <= 0 {
		o.MaxChunkSeconds = DefaultMaxChunkSeconds
	}
	if o.TargetChunkSeconds <= 0 {
		o.TargetChunkSeconds = DefaultTargetChunkSeconds
	}
	if o.MinChunkFraction <= 0 {
		o.MinChunkFraction = DefaultMinChunkFraction
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	return o
}

// Pipeline turns one media file into a merged, speaker-labelled transcript.
type Pipeline struct {
	Prober    DurationProber
	Extractor AudioExtractor
	// NewRenderer builds the chunk renderer once the source duration is known.
	NewRenderer func(sourceDuration float64) ChunkRenderer
	Transcriber AudioTranscriber
	Writer      TranscriptWriter
	// Cache and Detector are optional.
	Cache    SegmentCache
	Detector LanguageDetector
	Progress ProgressReporter
	Logger   *zap.Logger
	Options  Options

	now func() time.Time
}

type Result struct {
	RunID      string
	Transcript Transcript
	Plan       ChunkPlan
	// AudioPath is the file chunks were cut from: the source itself or the extracted WAV.
	AudioPath string
}

// ProcessFile runs the pipeline on media and writes the transcript to outputPath. Nothing is
// written unless every chunk succeeded.
func (p *Pipeline) ProcessFile(ctx context.Context, media MediaFile, outputPath string) (Result, error) {
	if p.Writer == nil {
		return Result{}, Wrap(ErrWrite, "output", "no transcript writer configured", nil)
	}
	result, err := p.Run(ctx, media)
	if err != nil {
		return result, err
	}

	header := TranscriptHeader{
		Source:    media.Path,
		Processed: result.AudioPath,
		Model:     p.Transcriber.Model(),
		Generated: p.clock()(),
	}
	if err := p.Writer.WriteTranscript(result.Transcript, header, outputPath); err != nil {
		return result, err
	}

	fields := []zap.Field{zap.String("run_id", result.RunID), zap.String("output", outputPath)}
	if info, err := os.Stat(outputPath); err == nil {
		fields = append(fields, zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	p.logger().Info("transcript written", fields...)
	return result, nil
}

// Run probes, prepares, chunks, transcribes and merges media.
func (p *Pipeline) Run(ctx context.Context, media MediaFile) (Result, error) {
	opts := p.Options.withDefaults()
	runID := uuid.NewString()
	logger := p.logger().With(zap.String("run_id", runID), zap.String("source", media.Name()))
	result := Result{RunID: runID, AudioPath: media.Path}

	workDir := filepath.Join(opts.TempDir, "transcriber-"+runID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, Wrap(ErrPrecondition, "workspace", "create "+workDir, err)
	}
	defer func() {
		if opts.KeepTemp {
			logger.Info("keeping temp files", zap.String("dir", workDir))
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("failed to remove temp dir", zap.String("dir", workDir), zap.Error(err))
		}
	}()

	info, err := p.Prober.Probe(ctx, media.Path)
	if err != nil {
		return result, err
	}

	if media.IsVideo() {
		if info.AudioStreams == 0 && info.VideoStreams > 0 {
			return result, Wrap(ErrExtraction, "ffmpeg", media.Path+" has no audio stream", nil)
		}
		audioPath := filepath.Join(workDir, media.BaseName()+".wav")
		logger.Info("extracting audio", zap.String("audio", audioPath))
		if err := p.Extractor.ExtractAudio(ctx, media.Path, audioPath); err != nil {
			return result, err
		}
		result.AudioPath = audioPath
		if info, err = p.Prober.Probe(ctx, audioPath); err != nil {
			return result, err
		}
	}

	if info.Duration <= 0 {
		return result, Wrap(ErrProbe, "ffprobe", result.AudioPath+": zero duration", nil)
	}

	plan, err := PlanChunks(info.Duration, opts.MaxChunkSeconds, opts.TargetChunkSeconds, opts.MinChunkFraction)
	if err != nil {
		return result, err
	}
	result.Plan = plan
	logger.Info("chunk plan ready",
		zap.Float64("duration", plan.Total),
		zap.Int("chunks", plan.Len()),
		zap.Int("workers", opts.Workers),
	)

	run := &chunkRun{
		pipeline:  p,
		logger:    logger,
		plan:      plan,
		audioPath: result.AudioPath,
		workDir:   workDir,
		renderer:  p.NewRenderer(plan.Total),
	}
	if p.Cache != nil {
		run.cacheKeys = p.cacheKeys(media, plan, opts.Language, logger)
	}

	perChunk, err := run.transcribeAll(ctx, opts.Workers)
	if err != nil {
		return result, err
	}

	transcript, err := MergeTranscript(plan, perChunk)
	if err != nil {
		return result, err
	}
	if transcript.ClampedSegments > 0 {
		logger.Warn("segments overran their chunk and were clamped", zap.Int("segments", transcript.ClampedSegments))
	}
	if p.Detector != nil {
		transcript.Language = p.Detector.DetectLanguage(transcript.Text)
	}
	result.Transcript = transcript

	logger.Info("transcript merged",
		zap.Int("segments", len(transcript.Segments)),
		zap.String("language", transcript.Language),
	)
	return result, nil
}

func (p *Pipeline) cacheKeys(media MediaFile, plan ChunkPlan, language string, logger *zap.Logger) []string {
	fingerprint, err := FingerprintFile(media.Path)
	if err != nil {
		logger.Warn("chunk cache disabled for this run", zap.Error(err))
		return nil
	}
	keys := make([]string, plan.Len())
	for i, rng := range plan.Ranges {
		keys[i] = ChunkCacheKey(fingerprint, rng, p.Transcriber.Model(), language)
	}
	return keys
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

func (p *Pipeline) progress() ProgressReporter {
	if p.Progress == nil {
		return noopProgress{}
	}
	return p.Progress
}

func (p *Pipeline) clock() func() time.Time {
	if p.now == nil {
		return time.Now
	}
	return p.now
}

// chunkRun holds the per-run state shared by chunk workers.
type chunkRun struct {
	pipeline  *Pipeline
	logger    *zap.Logger
	plan      ChunkPlan
	audioPath string
	workDir   string
	renderer  ChunkRenderer
	cacheKeys []string
}

// transcribeAll returns the segments of every chunk, indexed by chunk. The first failure
// cancels the chunks still in flight.
func (r *chunkRun) transcribeAll(ctx context.Context, workers int) ([][]Segment, error) {
	progress := r.pipeline.progress()
	progress.Start(r.plan.Len())
	defer progress.Finish()

	results := make([][]Segment, r.plan.Len())
	if workers > r.plan.Len() {
		workers = r.plan.Len()
	}

	if workers <= 1 {
		for i := range r.plan.Ranges {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			segments, err := r.transcribe(ctx, i)
			if err != nil {
				return nil, err
			}
			results[i] = segments
			progress.ChunkDone(i, len(segments))
		}
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				segments, err := r.transcribe(ctx, i)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				results[i] = segments
				progress.ChunkDone(i, len(segments))
			}
		}()
	}

feed:
	for i := range r.plan.Ranges {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chunkRun) transcribe(ctx context.Context, i int) ([]Segment, error) {
	segments, err := r.transcribeChunk(ctx, i)
	if err != nil {
		var chunkErr *ChunkError
		if errors.As(err, &chunkErr) {
			return nil, err
		}
		return nil, &ChunkError{Index: i, Total: r.plan.Len(), Range: r.plan.Ranges[i], Err: err}
	}
	return segments, nil
}

func (r *chunkRun) transcribeChunk(ctx context.Context, i int) ([]Segment, error) {
	rng := r.plan.Ranges[i]
	logger := r.logger.With(
		zap.Int("chunk", i+1),
		zap.String("start", FormatTimestamp(rng.Start)),
		zap.String("end", FormatTimestamp(rng.End)),
	)

	key := ""
	if r.cacheKeys != nil {
		key = r.cacheKeys[i]
		segments, ok, err := r.pipeline.Cache.Lookup(ctx, key)
		switch {
		case err != nil:
			logger.Warn("chunk cache lookup failed", zap.Error(err))
		case ok:
			logger.Info("chunk served from cache", zap.Int("segments", len(segments)))
			return segments, nil
		}
	}

	chunkFile := filepath.Join(r.workDir, fmt.Sprintf("chunk_%03d%s", i, ChunkExt))
	defer func() {
		if err := os.Remove(chunkFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove chunk file", zap.String("file", chunkFile), zap.Error(err))
		}
	}()

	if err := r.renderer.RenderChunk(ctx, r.audioPath, rng, chunkFile); err != nil {
		return nil, err
	}
	if info, err := os.Stat(chunkFile); err == nil {
		logger.Debug("chunk rendered", zap.String("size", humanize.Bytes(uint64(info.Size()))))
	}

	segments, err := r.pipeline.Transcriber.TranscribeAudio(ctx, chunkFile)
	if err != nil {
		return nil, err
	}
	logger.Info("chunk transcribed", zap.Int("segments", len(segments)))

	if key != "" {
		if err := r.pipeline.Cache.Store(ctx, key, segments); err != nil {
			logger.Warn("chunk cache store failed", zap.Error(err))
		}
	}
	return segments, nil
}
