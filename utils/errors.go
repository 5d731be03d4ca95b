package utils

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrecondition     = errors.New("precondition failed")
	ErrProbe            = errors.New("probe error")
	ErrExtraction       = errors.New("extraction error")
	ErrPlan             = errors.New("plan error")
	ErrRender           = errors.New("render error")
	ErrTranscription    = errors.New("transcription error")
	ErrUnsupportedAudio = errors.New("unsupported audio")
	ErrMerge            = errors.New("merge error")
	ErrWrite            = errors.New("write error")
)

// Wrap tags err with marker and prefixes it with the stage and operation that failed.
func Wrap(marker error, stage, operation string, err error) error {
	if marker == nil {
		marker = ErrTranscription
	}
	detail := buildDetail(stage, operation)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}

// ChunkError reports a failure while processing a single chunk.
type ChunkError struct {
	Index int
	Total int
	Range ChunkRange
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d/%d [%s - %s]: %v",
		e.Index+1, e.Total, FormatTimestamp(e.Range.Start), FormatTimestamp(e.Range.End), e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// IsPrecondition reports whether err should stop a run before any work starts.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
