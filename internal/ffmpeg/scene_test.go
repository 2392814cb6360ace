package ffmpeg

import (
	"math"
	"testing"
)

func TestParseSceneMetadata(t *testing.T) {
	output := `
frame:0    pts:13      pts_time:0.433333
lavfi.scene_score=0.656445
frame:1    pts:150     pts_time:5.000000
lavfi.scene_score=0.412000
frame:2    pts:371     pts_time:12.366667
lavfi.scene_score=0.089120
`
	scores := ParseSceneMetadata(output)
	if len(scores) != 3 {
		t.Fatalf("got %d scores, want 3", len(scores))
	}

	want := []SceneScore{
		{Time: 0.433333, Score: 0.656445},
		{Time: 5.0, Score: 0.412},
		{Time: 12.366667, Score: 0.08912},
	}
	for i, w := range want {
		if math.Abs(scores[i].Time-w.Time) > 1e-6 {
			t.Errorf("score[%d].Time = %g, want %g", i, scores[i].Time, w.Time)
		}
		if math.Abs(scores[i].Score-w.Score) > 1e-6 {
			t.Errorf("score[%d].Score = %g, want %g", i, scores[i].Score, w.Score)
		}
	}
}

func TestParseSceneMetadataMalformedLines(t *testing.T) {
	output := `
frame:0    pts:13      pts_time:garbage
lavfi.scene_score=0.5
frame:1    pts:150     pts_time:2.0
lavfi.scene_score=notanumber
frame:2    pts:371     pts_time:3.0
lavfi.scene_score=0.7
lavfi.scene_score=0.9
`
	scores := ParseSceneMetadata(output)
	// Only the well-formed frame/score pair survives; an orphan score with no
	// preceding frame header is dropped.
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1: %v", len(scores), scores)
	}
	if scores[0].Time != 3.0 || scores[0].Score != 0.7 {
		t.Errorf("got %+v, want {3 0.7}", scores[0])
	}
}

func TestParseSceneMetadataEmpty(t *testing.T) {
	if scores := ParseSceneMetadata(""); len(scores) != 0 {
		t.Fatalf("got %d scores from empty output, want 0", len(scores))
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 29.97002997002997},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseFrameRate(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("parseFrameRate(%q) = %g, want %g", tt.in, got, tt.want)
		}
	}
}
