package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/HugeFrog24/diarize-transcriber/utils"
)

func newSourcesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List source files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := utils.ScanSources(a.cfg.Paths.SourcesDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSourceTable(files))
			return nil
		},
	}
}

// selectSource resolves the file to transcribe from the argument, --latest or an interactive prompt.
func (a *app) selectSource(cmd *cobra.Command, args []string) (utils.MediaFile, error) {
	if len(args) == 1 {
		return utils.NewMediaFile(args[0])
	}

	files, err := utils.ScanSources(a.cfg.Paths.SourcesDir)
	if err != nil {
		return utils.MediaFile{}, err
	}
	if a.flags.latest {
		return files[0], nil
	}
	if !isInteractive(a.stdin) {
		return utils.MediaFile{}, utils.Wrap(utils.ErrPrecondition, "sources",
			"no source selected; pass a file path or --latest when not running in a terminal", nil)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Available files (sorted by most recent):")
	fmt.Fprintln(out, renderSourceTable(files))
	return promptForSource(a.stdin, out, files)
}

// promptForSource reads a 1-based choice from in until it names one of files.
func promptForSource(in io.Reader, out io.Writer, files []utils.MediaFile) (utils.MediaFile, error) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(out, "\nSelect a file (1-%d): ", len(files))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return utils.MediaFile{}, utils.Wrap(utils.ErrPrecondition, "sources", "read selection", err)
			}
			return utils.MediaFile{}, utils.Wrap(utils.ErrPrecondition, "sources", "no file selected", nil)
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(out, "Invalid input. Please enter a number.")
			continue
		}
		if choice < 1 || choice > len(files) {
			fmt.Fprintf(out, "Please enter a number between 1 and %d\n", len(files))
			continue
		}
		return files[choice-1], nil
	}
}

func renderSourceTable(files []utils.MediaFile) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Kind", "Size", "Modified"})
	for i, f := range files {
		tw.AppendRow(table.Row{
			i + 1,
			f.Name(),
			string(f.Kind),
			humanize.Bytes(uint64(f.Size)),
			f.ModTime.Format("2006-01-02 15:04:05"),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return tw.Render()
}

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
