package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/diarize-transcriber/utils"
)

func (a *app) runTranscribe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	media, err := a.selectSource(cmd, args)
	if err != nil {
		return err
	}

	transcriberCfg := utils.TranscriberConfig{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.Model,
		Language: cfg.OpenAI.Language,
		Timeout:  cfg.RequestTimeout(),
	}

	checks, err := utils.Preflight(ctx, utils.PreflightConfig{
		FFmpegBinary:  cfg.Tools.FFmpeg,
		FFprobeBinary: cfg.Tools.FFprobe,
		OutputDir:     cfg.Paths.OutputDir,
		Transcriber:   transcriberCfg,
		VerifyKey:     a.flags.verifyKey,
	})
	for _, check := range checks {
		a.logger.Debug("preflight", zap.String("check", check.Name), zap.Bool("passed", check.Passed), zap.String("detail", check.Detail))
	}
	if err != nil {
		return err
	}

	transcriber, err := utils.NewTranscriber(cfg.OpenAI.Provider, transcriberCfg)
	if err != nil {
		return err
	}

	prober := utils.FFprobeProber{Binary: cfg.Tools.FFprobe}
	pipeline := &utils.Pipeline{
		Prober:    prober,
		Extractor: utils.FFmpegAudioExtractor{Binary: cfg.Tools.FFmpeg},
		NewRenderer: func(sourceDuration float64) utils.ChunkRenderer {
			return utils.FFmpegChunkRenderer{Binary: cfg.Tools.FFmpeg, SourceDuration: sourceDuration, Prober: prober}
		},
		Transcriber: transcriber,
		Writer:      utils.FileTranscriptWriter{},
		Detector:    &utils.LinguaDetector{},
		Progress:    utils.NewProgressReporter(os.Stderr),
		Logger:      a.logger,
		Options: utils.Options{
			MaxChunkSeconds:    cfg.Chunking.MaxSeconds,
			TargetChunkSeconds: cfg.Chunking.TargetSeconds,
			MinChunkFraction:   cfg.Chunking.MinFraction,
			Workers:            cfg.Chunking.Workers,
			TempDir:            cfg.Paths.TempDir,
			KeepTemp:           cfg.Paths.KeepTemp,
			Language:           cfg.OpenAI.Language,
		},
	}

	if cfg.Cache.Enabled {
		cache, err := utils.OpenChunkCache(cfg.Cache.Path)
		if err != nil {
			a.logger.Warn("chunk cache unavailable", zap.String("path", cfg.Cache.Path), zap.Error(err))
		} else {
			defer cache.Close()
			pipeline.Cache = cache
		}
	}

	outputPath := cfg.OutputPath(media.Path)
	a.logger.Info("transcribing", zap.String("source", media.Path), zap.String("model", transcriber.Model()))

	result, err := pipeline.ProcessFile(ctx, media, outputPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Transcript saved to %s\n", outputPath)
	fmt.Fprintf(out, "%d segments from %d chunk(s)", len(result.Transcript.Segments), result.Plan.Len())
	if result.Transcript.Language != "" {
		fmt.Fprintf(out, ", language %s", result.Transcript.Language)
	}
	fmt.Fprintln(out)
	return nil
}
