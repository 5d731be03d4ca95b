package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/HugeFrog24/diarize-transcriber/config"
	"github.com/HugeFrog24/diarize-transcriber/utils"
)

func newPlanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <file>",
		Short: "Probe a file and print how it would be chunked",
		Long: "Probe a file and print how it would be chunked.\n\n" +
			"Video files are planned from the container duration. Transcription plans from the extracted\n" +
			"audio track, which can differ by a few milliseconds and occasionally move a chunk boundary.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			media, err := utils.NewMediaFile(args[0])
			if err != nil {
				return err
			}
			info, err := utils.FFprobeProber{Binary: a.cfg.Tools.FFprobe}.Probe(cmd.Context(), media.Path)
			if err != nil {
				return err
			}
			ch := a.cfg.Chunking
			plan, err := utils.PlanChunks(info.Duration, ch.MaxSeconds, ch.TargetSeconds, ch.MinFraction)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, planSummary(media, info, plan))
			fmt.Fprintln(out, renderPlanTable(plan))
			return nil
		},
	}
}

func planSummary(media utils.MediaFile, info utils.MediaInfo, plan utils.ChunkPlan) string {
	summary := fmt.Sprintf("%s: %s, %d audio stream(s), %d chunk(s)\n",
		media.Name(), utils.FormatTimestamp(info.Duration), info.AudioStreams, plan.Len())
	if media.IsVideo() {
		summary += "note: planned from the container duration; the extracted audio may differ slightly\n"
	}
	return summary
}

func renderPlanTable(plan utils.ChunkPlan) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Chunk", "Start", "End", "Length (s)"})
	for _, rng := range plan.Ranges {
		tw.AppendRow(table.Row{
			rng.Index + 1,
			utils.FormatTimestamp(rng.Start),
			utils.FormatTimestamp(rng.End),
			fmt.Sprintf("%.3f", rng.Length()),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration utilities",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Create a sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var target string
			var err error
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				target, err = config.ExpandPath(strings.TrimSpace(args[0]))
			} else {
				target, err = config.DefaultConfigPath()
			}
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}

			if err := config.CreateSample(target, overwrite); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set openai.api_key (or export OPENAI_API_KEY) before transcribing.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
