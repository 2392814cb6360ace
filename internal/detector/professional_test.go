package detector

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

type stubScorer struct {
	calls  int
	scores [][]ffmpeg.SceneScore
	err    error
}

func (s *stubScorer) SceneScores(ctx context.Context, videoPath string, threshold float64) ([]ffmpeg.SceneScore, error) {
	if s.err != nil {
		return nil, s.err
	}
	var scores []ffmpeg.SceneScore
	if s.calls < len(s.scores) {
		scores = s.scores[s.calls]
	}
	s.calls++
	return scores, nil
}

type stubFallback struct {
	called bool
	result *Result
}

func (d *stubFallback) Method() models.Method { return models.MethodContent }

func (d *stubFallback) Detect(ctx context.Context, videoPath string, duration float64) (*Result, error) {
	d.called = true
	return d.result, nil
}

func TestProfessionalFallsBackAfterEmptyRetry(t *testing.T) {
	scorer := &stubScorer{}
	fallback := &stubFallback{result: &Result{
		Shots: []models.Shot{
			{StartTime: 0, EndTime: 5, Confidence: 1.0, Method: models.MethodContent},
			{StartTime: 5, EndTime: 10, Confidence: 0.8, Method: models.MethodContent},
		},
	}}

	d := newProfessionalDetector(scorer, Params{Threshold: 0.3, MinSceneLength: 1.0}, fallback, zerolog.Nop())
	res, err := d.Detect(context.Background(), "video.mp4", 10)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if scorer.calls != 2 {
		t.Errorf("scene filter ran %d times, want 2 (initial + half-threshold retry)", scorer.calls)
	}
	if !fallback.called {
		t.Fatal("content fallback not consulted after empty retry")
	}
	if len(res.Shots) != 2 {
		t.Errorf("got %d shots, want the fallback's 2", len(res.Shots))
	}
	if len(res.Degradations) == 0 || res.Degradations[0] != models.DegradationDetectorFallback {
		t.Errorf("degradations = %v, want detector_fallback first", res.Degradations)
	}
}

func TestProfessionalUsesFilterCuts(t *testing.T) {
	scorer := &stubScorer{scores: [][]ffmpeg.SceneScore{
		{{Time: 4.0, Score: 0.5}, {Time: 8.0, Score: 0.3}},
	}}
	fallback := &stubFallback{result: &Result{}}

	d := newProfessionalDetector(scorer, Params{Threshold: 0.3, MinSceneLength: 1.0}, fallback, zerolog.Nop())
	res, err := d.Detect(context.Background(), "video.mp4", 10)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	if fallback.called {
		t.Error("fallback consulted despite usable cuts")
	}
	if len(res.Shots) != 3 {
		t.Fatalf("got %d shots, want 3", len(res.Shots))
	}
	if res.Shots[0].StartTime != 0 || res.Shots[2].EndTime != 10 {
		t.Errorf("shots do not cover [0,10]: first %+v last %+v", res.Shots[0], res.Shots[2])
	}
}
