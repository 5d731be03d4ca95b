package utils

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// BarProgress draws a chunk progress bar on w.
type BarProgress struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewProgressReporter returns a progress bar when f is a terminal and a no-op reporter otherwise.
func NewProgressReporter(f *os.File) ProgressReporter {
	if f == nil || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return noopProgress{}
	}
	return &BarProgress{w: f}
}

func (p *BarProgress) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription("transcribing chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *BarProgress) ChunkDone(int, int) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *BarProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
