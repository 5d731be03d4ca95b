package utils

import (
	"fmt"
	"math"
)

const (
	// DefaultMaxChunkSeconds is the longest recording sent to the model in one request.
	DefaultMaxChunkSeconds = 1400.0
	// DefaultTargetChunkSeconds leaves headroom below the model limit.
	DefaultTargetChunkSeconds = 1300.0
	// DefaultMinChunkFraction is the shortest trailing chunk kept on its own, as a fraction of the target.
	DefaultMinChunkFraction = 0.10

	// MinChunkSeconds is the shortest trailing chunk kept on its own regardless of the fraction.
	MinChunkSeconds = 1.0
	// MaxPlanChunks bounds the plan size; larger durations come from corrupt probe output.
	MaxPlanChunks = 10000
)

// ChunkRange is the half-open interval [Start, End) of the source, in seconds.
type ChunkRange struct {
	Index int
	Start float64
	End   float64
}

func (r ChunkRange) Length() float64 {
	return r.End - r.Start
}

func (r ChunkRange) String() string {
	return fmt.Sprintf("chunk %d: %s-%s", r.Index, FormatTimestamp(r.Start), FormatTimestamp(r.End))
}

// ChunkPlan covers [0, Total) with contiguous, non-overlapping ranges.
type ChunkPlan struct {
	Total  float64
	Ranges []ChunkRange
}

func (p ChunkPlan) Len() int {
	return len(p.Ranges)
}

// Offset returns the global start of chunk i.
func (p ChunkPlan) Offset(i int) float64 {
	return p.Ranges[i].Start
}

// Bound returns the global end of chunk i.
func (p ChunkPlan) Bound(i int) float64 {
	if i == len(p.Ranges)-1 {
		return p.Total
	}
	return p.Ranges[i+1].Start
}

// PlanChunks splits total seconds into ranges no longer than maxLen.
//
// Recordings up to maxLen stay whole. Longer ones are cut every target seconds; a trailing
// remainder shorter than minFraction*target (and never shorter than MinChunkSeconds) is folded
// into the previous range, or, when that would exceed maxLen, the last two ranges are
// rebalanced to equal halves.
func PlanChunks(total, maxLen, target, minFraction float64) (ChunkPlan, error) {
	switch {
	case math.IsNaN(total) || math.IsInf(total, 0) || total < 0:
		return ChunkPlan{}, Wrap(ErrPlan, "planner", fmt.Sprintf("invalid duration %v", total), nil)
	case maxLen <= 0 || math.IsNaN(maxLen):
		return ChunkPlan{}, Wrap(ErrPlan, "planner", fmt.Sprintf("invalid max chunk length %v", maxLen), nil)
	case target <= 0 || target > maxLen || math.IsNaN(target):
		return ChunkPlan{}, Wrap(ErrPlan, "planner", fmt.Sprintf("target %v must be in (0, %v]", target, maxLen), nil)
	case minFraction <= 0 || minFraction >= 1 || math.IsNaN(minFraction):
		return ChunkPlan{}, Wrap(ErrPlan, "planner", fmt.Sprintf("min fraction %v must be in (0, 1)", minFraction), nil)
	case total/target > MaxPlanChunks:
		return ChunkPlan{}, Wrap(ErrPlan, "planner",
			fmt.Sprintf("duration %s needs more than %d chunks", FormatTimestamp(total), MaxPlanChunks), nil)
	}

	if total <= maxLen {
		return ChunkPlan{Total: total, Ranges: []ChunkRange{{Index: 0, Start: 0, End: total}}}, nil
	}

	full := int(math.Floor(total / target))
	remainder := total - float64(full)*target
	if remainder < 0 {
		full--
		remainder += target
	}

	// Cut points strictly inside (0, total); computed from the index to avoid drift.
	cuts := make([]float64, 0, full)
	for i := 1; i <= full; i++ {
		cuts = append(cuts, float64(i)*target)
	}

	const epsilon = 1e-9
	minRemainder := math.Max(minFraction*target, MinChunkSeconds)
	switch {
	case remainder <= epsilon:
		// The last full range already ends at total.
		cuts = cuts[:len(cuts)-1]
	case remainder < minRemainder:
		cuts = cuts[:len(cuts)-1]
		if target+remainder > maxLen {
			prev := 0.0
			if len(cuts) > 0 {
				prev = cuts[len(cuts)-1]
			}
			cuts = append(cuts, prev+(total-prev)/2)
		}
	}

	ranges := make([]ChunkRange, 0, len(cuts)+1)
	start := 0.0
	for i, cut := range cuts {
		ranges = append(ranges, ChunkRange{Index: i, Start: start, End: cut})
		start = cut
	}
	ranges = append(ranges, ChunkRange{Index: len(cuts), Start: start, End: total})

	return ChunkPlan{Total: total, Ranges: ranges}, nil
}
