package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SceneScore is one scene-change candidate reported by ffmpeg's scene filter.
type SceneScore struct {
	Time  float64
	Score float64
}

// SceneScores runs ffmpeg's scene filter over the whole video and returns
// every frame that scored above the filter threshold, with its score.
// Candidates come back in presentation order.
func (e *Executor) SceneScores(ctx context.Context, videoPath string, threshold float64) ([]SceneScore, error) {
	stdout, stderr, err := e.runFFmpeg(ctx,
		"-i", videoPath,
		"-filter:v", fmt.Sprintf("select='gt(scene,%g)',metadata=print:file=-", threshold),
		"-f", "null",
		"-",
		"-v", "quiet",
	)
	if err != nil {
		return nil, fmt.Errorf("scene filter failed: %w", err)
	}

	// metadata=print:file=- targets stdout, but some builds route it through
	// stderr with the rest of the log. Parse both.
	scores := ParseSceneMetadata(string(stdout) + "\n" + string(stderr))
	e.logger.Debug().
		Float64("threshold", threshold).
		Int("candidates", len(scores)).
		Msg("scene filter complete")
	return scores, nil
}

// ParseSceneMetadata extracts (pts_time, scene_score) pairs from the metadata
// filter's output. The format interleaves frame headers and key=value lines:
//
//	frame:0    pts:13      pts_time:0.433333
//	lavfi.scene_score=0.656445
func ParseSceneMetadata(output string) []SceneScore {
	var scores []SceneScore
	currentTime := -1.0

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "frame:") && strings.Contains(line, "pts_time:") {
			part := line[strings.Index(line, "pts_time:")+len("pts_time:"):]
			fields := strings.Fields(strings.TrimSpace(part))
			if len(fields) == 0 {
				continue
			}
			t, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				continue
			}
			currentTime = t
		} else if strings.HasPrefix(line, "lavfi.scene_score=") && currentTime >= 0 {
			s, err := strconv.ParseFloat(line[len("lavfi.scene_score="):], 64)
			if err != nil {
				continue
			}
			scores = append(scores, SceneScore{Time: currentTime, Score: s})
			currentTime = -1
		}
	}
	return scores
}
