// Package detector turns a video into an ordered, duration-covering
// sequence of shots using one of three boundary detection strategies.
package detector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/ffmpeg"
	"github.com/sceneforge/sceneworker/internal/models"
)

// Params are the detection settings for one run.
type Params struct {
	Threshold         float64
	MinSceneLength    float64
	DetectionInterval float64
}

// Result is a detection run's output. Degradations record any fallback taken
// (tool unavailable, zero boundaries found); the shot sequence is always
// valid and duration-covering.
type Result struct {
	Shots        []models.Shot
	Degradations []models.Degradation
}

// Detector is one boundary detection strategy.
type Detector interface {
	Method() models.Method
	Detect(ctx context.Context, videoPath string, duration float64) (*Result, error)
}

// New returns the detector for the given method. The professional detector
// falls back to content-diff when the external tool fails, so it is handed
// one here.
func New(method models.Method, exec *ffmpeg.Executor, params Params, logger zerolog.Logger) (Detector, error) {
	switch method {
	case models.MethodContent:
		return newContentDetector(exec, params, logger), nil
	case models.MethodHistogram:
		return newHistogramDetector(exec, params, logger), nil
	case models.MethodProfessional:
		fallback := newContentDetector(exec, params, logger)
		return newProfessionalDetector(exec, params, fallback, logger), nil
	default:
		return nil, fmt.Errorf("unknown detection method %q", method)
	}
}
