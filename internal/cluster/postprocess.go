package cluster

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

// mergeGapLimit is the largest gap between a too-short scene and its
// successor that still allows merging them.
const mergeGapLimit = 1.0

// PostProcessor repairs clustering artifacts: scenes shorter than the
// minimum get merged into their neighbor, and clusters whose shots are not
// time-contiguous get split into contiguous runs.
type PostProcessor struct {
	minClusterDuration float64
	maxGap             float64
	split              bool
	logger             zerolog.Logger
}

// NewPostProcessor creates a post-processor. maxGap bounds the shot-to-shot
// gap still considered contiguous during splitting; split disables the
// continuity pass entirely when false.
func NewPostProcessor(minClusterDuration, maxGap float64, split bool, logger zerolog.Logger) *PostProcessor {
	return &PostProcessor{
		minClusterDuration: minClusterDuration,
		maxGap:             maxGap,
		split:              split,
		logger:             logger.With().Str("component", "postprocess").Logger(),
	}
}

// Process runs both passes over a time-ordered scene sequence and reindexes
// the result.
func (p *PostProcessor) Process(scenes []models.Scene) []models.Scene {
	if len(scenes) == 0 {
		return scenes
	}

	merged := p.mergeShortScenes(scenes)
	if p.split {
		merged = p.splitDiscontinuous(merged)
	}
	reindexScenes(merged)
	return merged
}

// mergeShortScenes walks scenes in time order, merging any scene shorter
// than the minimum into its successor when the gap between them is small
// enough. Each pass shrinks the slice, so iteration is bounded by the scene
// count. A short scene with no mergeable neighbor stays short.
func (p *PostProcessor) mergeShortScenes(scenes []models.Scene) []models.Scene {
	for pass := 0; pass < len(scenes); pass++ {
		mergedAny := false
		var out []models.Scene
		current := scenes[0]

		for i := 1; i < len(scenes); i++ {
			next := scenes[i]
			if current.Duration < p.minClusterDuration && next.StartTime-current.EndTime <= mergeGapLimit {
				p.logger.Debug().
					Float64("start", current.StartTime).
					Float64("duration", current.Duration).
					Msg("merging short scene forward")
				current = mergeScenes(current, next)
				mergedAny = true
				continue
			}
			out = append(out, current)
			current = next
		}
		out = append(out, current)
		scenes = out

		if !mergedAny || len(scenes) == 1 {
			break
		}
	}
	return scenes
}

// mergeScenes unions two adjacent scenes. Confidence takes the weaker of
// the two.
func mergeScenes(a, b models.Scene) models.Scene {
	shots := append(append([]models.Shot{}, a.Shots...), b.Shots...)
	sort.Slice(shots, func(i, j int) bool {
		return shots[i].StartTime < shots[j].StartTime
	})

	confidence := a.Confidence
	if b.Confidence < confidence {
		confidence = b.Confidence
	}

	return models.Scene{
		ID:         models.NewSceneID(),
		Label:      a.Label,
		StartTime:  a.StartTime,
		EndTime:    b.EndTime,
		Duration:   b.EndTime - a.StartTime,
		ShotCount:  a.ShotCount + b.ShotCount,
		Confidence: confidence,
		Shots:      shots,
	}
}

// splitDiscontinuous breaks each scene into maximal runs of time-contiguous
// shots. Clustering groups by visual similarity, so one cluster can contain
// shots far apart in time; each contiguous run becomes its own scene with
// the same label and confidence.
func (p *PostProcessor) splitDiscontinuous(scenes []models.Scene) []models.Scene {
	var out []models.Scene
	for _, scene := range scenes {
		runs := p.contiguousRuns(scene)
		if len(runs) > 1 {
			p.logger.Debug().
				Str("label", scene.Label).
				Int("segments", len(runs)).
				Msg("split discontinuous scene")
		}
		out = append(out, runs...)
	}
	return out
}

func (p *PostProcessor) contiguousRuns(scene models.Scene) []models.Scene {
	if len(scene.Shots) <= 1 {
		return []models.Scene{scene}
	}

	shots := append([]models.Shot{}, scene.Shots...)
	sort.Slice(shots, func(i, j int) bool {
		return shots[i].StartTime < shots[j].StartTime
	})

	var runs []models.Scene
	runStart := 0
	runEnd := shots[0].EndTime

	flush := func(from, to int) {
		members := shots[from:to]
		start := members[0].StartTime
		end := members[len(members)-1].EndTime
		runs = append(runs, models.Scene{
			ID:         models.NewSceneID(),
			Label:      scene.Label,
			StartTime:  start,
			EndTime:    end,
			Duration:   end - start,
			ShotCount:  len(members),
			Confidence: scene.Confidence,
			Shots:      append([]models.Shot{}, members...),
		})
	}

	for i := 1; i < len(shots); i++ {
		if shots[i].StartTime-runEnd > p.maxGap {
			flush(runStart, i)
			runStart = i
		}
		runEnd = shots[i].EndTime
	}
	flush(runStart, len(shots))

	if len(runs) == 1 {
		// Contiguous cluster, keep the original scene untouched.
		return []models.Scene{scene}
	}
	return runs
}
