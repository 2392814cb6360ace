// Package align snaps externally supplied segment boundaries (typically
// transcript-derived) onto detected scene boundaries and a keyframe grid.
package align

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

// maxKeyframeShift bounds how far keyframe snapping may move an edge.
const maxKeyframeShift = 1.0

// Aligner snaps segment edges to scene boundaries within a maximum
// distance. The keyframe interval approximates container keyframes with a
// fixed grid; edges that find no scene boundary snap onto that grid
// instead.
type Aligner struct {
	maxDistance      float64
	keyframeInterval float64
	logger           zerolog.Logger
}

// New creates an aligner.
func New(maxDistance, keyframeInterval float64, logger zerolog.Logger) *Aligner {
	return &Aligner{
		maxDistance:      maxDistance,
		keyframeInterval: keyframeInterval,
		logger:           logger.With().Str("component", "align").Logger(),
	}
}

// BoundarySet collects the union of all scene start and end times, sorted
// and deduplicated.
func BoundarySet(scenes []models.Scene) []float64 {
	seen := make(map[float64]struct{}, len(scenes)*2)
	for _, s := range scenes {
		seen[s.StartTime] = struct{}{}
		seen[s.EndTime] = struct{}{}
	}

	boundaries := make([]float64, 0, len(seen))
	for b := range seen {
		boundaries = append(boundaries, b)
	}
	sort.Float64s(boundaries)
	return boundaries
}

// Align snaps one segment's edges to the nearest boundaries. An edge with
// no boundary within reach falls back to the keyframe grid so cuts stay
// decodable. If boundary snapping would invert or collapse the segment,
// both snaps are discarded and the original range is grid-snapped with
// SceneAligned false.
func (a *Aligner) Align(seg models.Segment, boundaries []float64) models.AlignedSegment {
	start, startSnapped := nearestBoundary(seg.StartTime, boundaries, a.maxDistance)
	end, endSnapped := nearestBoundary(seg.EndTime, boundaries, a.maxDistance)

	if start >= end {
		a.logger.Warn().
			Float64("start", seg.StartTime).
			Float64("end", seg.EndTime).
			Msg("boundary snap produced invalid range, keeping original")
		kfStart, kfEnd := a.SnapToKeyframes(seg.StartTime, seg.EndTime)
		return models.AlignedSegment{
			Segment:      seg,
			AlignedStart: kfStart,
			AlignedEnd:   kfEnd,
			SceneAligned: false,
		}
	}

	// Grid snapping only widens, so the range stays valid.
	kfStart, kfEnd := a.SnapToKeyframes(start, end)
	if !startSnapped {
		start = kfStart
	}
	if !endSnapped {
		end = kfEnd
	}

	return models.AlignedSegment{
		Segment:      seg,
		AlignedStart: start,
		AlignedEnd:   end,
		SceneAligned: true,
	}
}

// AlignAll aligns every segment against the boundary set of the given
// scenes. Segments with start >= end are dropped.
func (a *Aligner) AlignAll(segments []models.Segment, scenes []models.Scene) []models.AlignedSegment {
	boundaries := BoundarySet(scenes)

	out := make([]models.AlignedSegment, 0, len(segments))
	for _, seg := range segments {
		if err := seg.Validate(); err != nil {
			a.logger.Warn().Err(err).Msg("dropping segment")
			continue
		}
		out = append(out, a.Align(seg, boundaries))
	}
	return out
}

// nearestBoundary returns the closest boundary to t when it lies within
// maxDistance. The second result reports whether a boundary was in reach.
func nearestBoundary(t float64, boundaries []float64, maxDistance float64) (float64, bool) {
	if len(boundaries) == 0 {
		return t, false
	}

	nearest := boundaries[0]
	minDist := math.Abs(t - nearest)
	for _, b := range boundaries[1:] {
		if d := math.Abs(t - b); d < minDist {
			nearest = b
			minDist = d
		}
	}

	if minDist <= maxDistance {
		return nearest, true
	}
	return t, false
}

// SnapToKeyframes widens a time range onto the simulated keyframe grid:
// the start floors to the grid, the end ceils, and neither edge moves more
// than one second. The range never shrinks, so content at the edges is kept
// rather than clipped.
func (a *Aligner) SnapToKeyframes(start, end float64) (float64, float64) {
	interval := a.keyframeInterval
	if interval <= 0 {
		return start, end
	}

	alignedStart := math.Floor(start/interval) * interval
	if start-alignedStart > maxKeyframeShift {
		alignedStart = start
	}
	if alignedStart < 0 {
		alignedStart = 0
	}

	alignedEnd := math.Ceil(end/interval) * interval
	if alignedEnd-end > maxKeyframeShift {
		alignedEnd = end
	}

	return alignedStart, alignedEnd
}
