package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Segment is a speaker-labelled span of text. Start and End are relative to the chunk it was
// transcribed from until MergeTranscript rewrites them to global time.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Transcript is the merged result for one source file.
type Transcript struct {
	Segments []Segment
	Text     string
	Duration float64
	Chunks   int
	Language string
	// ClampedSegments counts segments whose times overran their chunk and were pulled back inside it.
	ClampedSegments int
}

// timestampPlaces keeps merged timestamps at millisecond precision.
const timestampPlaces = 3

// MergeTranscript shifts every chunk's segments by the chunk's start offset and concatenates
// them in plan order. perChunk[i] must hold the segments of plan.Ranges[i].
func MergeTranscript(plan ChunkPlan, perChunk [][]Segment) (Transcript, error) {
	if len(perChunk) != plan.Len() {
		return Transcript{}, Wrap(ErrMerge, "merge", fmt.Sprintf("got segments for %d chunks, plan has %d", len(perChunk), plan.Len()), nil)
	}

	total := 0
	for _, segs := range perChunk {
		total += len(segs)
	}

	out := Transcript{
		Segments: make([]Segment, 0, total),
		Duration: plan.Total,
		Chunks:   plan.Len(),
	}
	texts := make([]string, 0, total)

	for i, segs := range perChunk {
		offset := decimal.NewFromFloat(plan.Offset(i))
		lower := plan.Offset(i)
		upper := plan.Bound(i)

		for _, seg := range segs {
			start := decimal.NewFromFloat(seg.Start).Add(offset).Round(timestampPlaces).InexactFloat64()
			end := decimal.NewFromFloat(seg.End).Add(offset).Round(timestampPlaces).InexactFloat64()

			clampedStart := clamp(start, lower, upper)
			clampedEnd := clamp(math.Max(end, clampedStart), clampedStart, upper)
			if clampedStart != start || clampedEnd != end {
				out.ClampedSegments++
			}

			text := CleanText(seg.Text)
			out.Segments = append(out.Segments, Segment{
				Start:   clampedStart,
				End:     clampedEnd,
				Speaker: strings.TrimSpace(seg.Speaker),
				Text:    text,
			})
			if text != "" {
				texts = append(texts, text)
			}
		}
	}

	out.Text = strings.Join(texts, " ")
	return out, nil
}

// CleanText trims and NFC-normalises segment text.
func CleanText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	hours := totalMs / 3_600_000
	totalMs %= 3_600_000
	minutes := totalMs / 60_000
	totalMs %= 60_000
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, float64(totalMs)/1000)
}
