package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/diarize-transcriber/config"
	"github.com/HugeFrog24/diarize-transcriber/logging"
	"github.com/HugeFrog24/diarize-transcriber/utils"
)

const (
	exitOK           = 0
	exitFailure      = 1
	exitPrecondition = 2
)

func main() {
	// A missing .env is fine; the environment may already carry the key.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand(os.Stdin).ExecuteContext(ctx)
	stop()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted, temporary files removed")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case utils.IsPrecondition(err):
		return exitPrecondition
	default:
		return exitFailure
	}
}

// cliFlags holds the persistent flags shared by every command.
type cliFlags struct {
	configPath string
	sourcesDir string
	outputDir  string
	provider   string
	model      string
	language   string
	logLevel   string
	logFormat  string
	workers    int
	latest     bool
	keepTemp   bool
	verifyKey  bool
}

// app carries the loaded configuration and logger between cobra hooks and commands.
type app struct {
	flags  cliFlags
	stdin  io.Reader
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCommand(stdin io.Reader) *cobra.Command {
	a := &app{stdin: stdin}

	rootCmd := &cobra.Command{
		Use:           "transcriber [source]",
		Short:         "Transcribe audio and video files into speaker-labelled transcripts",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTranscribe(cmd, args)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVar(&a.flags.sourcesDir, "sources", "", "Directory scanned for source files")
	pf.StringVarP(&a.flags.outputDir, "output", "o", "", "Directory transcripts are written to")
	pf.StringVar(&a.flags.provider, "provider", "", "Transcription provider (openai-diarize or whisper)")
	pf.StringVar(&a.flags.model, "model", "", "Transcription model")
	pf.StringVarP(&a.flags.language, "language", "l", "", "Spoken language hint (ISO 639-1)")
	pf.IntVarP(&a.flags.workers, "workers", "w", 0, "Chunks transcribed concurrently")
	pf.BoolVar(&a.flags.keepTemp, "keep-temp", false, "Keep extracted audio and chunk files")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "Log format (console or json)")

	rootCmd.Flags().BoolVar(&a.flags.latest, "latest", false, "Transcribe the most recently modified source")
	rootCmd.Flags().BoolVar(&a.flags.verifyKey, "verify-key", false, "Check the API key against the models endpoint before starting")

	rootCmd.AddCommand(newSourcesCommand(a))
	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

// load reads the configuration, applies flag overrides and builds the logger.
func (a *app) load(cmd *cobra.Command) error {
	cfg, _, _, err := config.Load(a.flags.configPath)
	if err != nil {
		return utils.Wrap(utils.ErrPrecondition, "config", "", err)
	}

	changed := func(name string) bool {
		f := cmd.Flag(name)
		return f != nil && f.Changed
	}
	overrides := []struct {
		flag  string
		apply func() error
	}{
		{"sources", func() (err error) { cfg.Paths.SourcesDir, err = config.ExpandPath(a.flags.sourcesDir); return }},
		{"output", func() (err error) { cfg.Paths.OutputDir, err = config.ExpandPath(a.flags.outputDir); return }},
		{"provider", func() error { cfg.OpenAI.Provider = strings.ToLower(strings.TrimSpace(a.flags.provider)); return nil }},
		{"model", func() error { cfg.OpenAI.Model = a.flags.model; return nil }},
		{"language", func() error { cfg.OpenAI.Language = strings.ToLower(strings.TrimSpace(a.flags.language)); return nil }},
		{"workers", func() error { cfg.Chunking.Workers = a.flags.workers; return nil }},
		{"keep-temp", func() error { cfg.Paths.KeepTemp = a.flags.keepTemp; return nil }},
		{"log-level", func() error { cfg.Logging.Level = a.flags.logLevel; return nil }},
		{"log-format", func() error { cfg.Logging.Format = a.flags.logFormat; return nil }},
	}
	for _, o := range overrides {
		if !changed(o.flag) {
			continue
		}
		if err := o.apply(); err != nil {
			return utils.Wrap(utils.ErrPrecondition, "flags", "--"+o.flag, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return utils.Wrap(utils.ErrPrecondition, "config", "", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return utils.Wrap(utils.ErrPrecondition, "logging", "", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
