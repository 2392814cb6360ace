package detector

import "github.com/sceneforge/sceneworker/internal/models"

// cut is one candidate scene change.
type cut struct {
	time       float64
	confidence float64
	rawScore   float64
}

// filterCuts drops candidates closer than minSceneLength to the previously
// retained cut. Input must be time-ordered.
func filterCuts(cuts []cut, minSceneLength float64) []cut {
	var kept []cut
	for _, c := range cuts {
		if len(kept) == 0 || c.time-kept[len(kept)-1].time >= minSceneLength {
			kept = append(kept, c)
		}
	}
	return kept
}

// buildShots assembles a duration-covering shot sequence from retained cuts.
// The opening shot always gets confidence 1.0; every later shot carries the
// confidence of the cut that opened it. Cuts at or beyond the video end are
// dropped rather than producing an empty shot. With no usable cuts the whole
// video becomes a single synthetic shot.
func buildShots(cuts []cut, duration float64, method models.Method) (shots []models.Shot, degraded bool) {
	var usable []cut
	for _, c := range cuts {
		if c.time > 0 && c.time < duration {
			usable = append(usable, c)
		}
	}

	if len(usable) == 0 {
		return []models.Shot{{
			StartTime:  0,
			EndTime:    duration,
			Confidence: 1.0,
			Method:     method,
		}}, true
	}

	shots = make([]models.Shot, 0, len(usable)+1)
	shots = append(shots, models.Shot{
		StartTime:  0,
		EndTime:    usable[0].time,
		Confidence: 1.0,
		Method:     method,
	})
	for i, c := range usable {
		end := duration
		if i+1 < len(usable) {
			end = usable[i+1].time
		}
		shots = append(shots, models.Shot{
			StartTime:  c.time,
			EndTime:    end,
			Confidence: c.confidence,
			Method:     method,
			RawScore:   c.rawScore,
		})
	}
	return shots, false
}
