package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Method selects the boundary detection strategy.
type Method string

const (
	MethodProfessional Method = "professional"
	MethodContent      Method = "content"
	MethodHistogram    Method = "histogram"
)

// ParseMethod validates a method name from config or a job payload.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodProfessional, MethodContent, MethodHistogram:
		return Method(s), nil
	case "":
		return MethodContent, nil
	default:
		return "", fmt.Errorf("unknown detection method %q", s)
	}
}

// Shot is a single continuous camera take between two detected cuts.
// Times are seconds from the start of the video. Shots are immutable once
// produced by a detector run.
type Shot struct {
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	RawScore   float64 `json:"rawScore,omitempty"`
}

// Duration returns the shot length in seconds.
func (s Shot) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Valid reports whether the shot has a usable time range.
func (s Shot) Valid() bool {
	return s.EndTime > s.StartTime
}

// Feature vector layout. Blocks are independently normalized before
// concatenation; the full vector is z-score standardized across the batch.
const (
	ColorBins      = 32
	ColorDims      = 3 * ColorBins // H, S, V histograms
	LBPBins        = 16
	TextureDims    = 2 + LBPBins // stddev, mean gradient, LBP histogram
	EdgeGridSize   = 4
	EdgeDims       = 1 + EdgeGridSize*EdgeGridSize // global ratio + grid densities
	BrightnessDims = 4
	FeatureDims    = ColorDims + TextureDims + EdgeDims + BrightnessDims
)

// FeatureVector is a fixed-length visual fingerprint of one shot's
// midpoint frame.
type FeatureVector []float64

// IsZero reports whether every component is zero, the degraded value used
// when the midpoint frame could not be decoded.
func (v FeatureVector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// ZeroFeatureVector returns the degraded all-zero fingerprint.
func ZeroFeatureVector() FeatureVector {
	return make(FeatureVector, FeatureDims)
}

// Scene is one or more visually similar shots grouped into a coherent
// segment. Created by the clusterer, mutated only by post-processing.
type Scene struct {
	ID         string  `json:"id"`
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Duration   float64 `json:"duration"`
	ShotCount  int     `json:"shotCount"`
	Confidence float64 `json:"confidence"`
	Shots      []Shot  `json:"shots,omitempty"`
}

// Valid reports whether the scene has a usable time range.
func (s Scene) Valid() bool {
	return s.EndTime > s.StartTime
}

// Segment is a caller-supplied time range (typically transcript-derived)
// to be snapped onto detected scene boundaries. Payload is carried through
// untouched.
type Segment struct {
	StartTime float64         `json:"startTime"`
	EndTime   float64         `json:"endTime"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Validate rejects segments whose range is empty or inverted.
func (s Segment) Validate() error {
	if s.EndTime <= s.StartTime {
		return fmt.Errorf("%w: [%g,%g]", ErrInvalidTimeRange, s.StartTime, s.EndTime)
	}
	return nil
}

// AlignedSegment is a Segment plus its snapped boundaries. The original
// times are preserved alongside the aligned ones.
type AlignedSegment struct {
	Segment
	AlignedStart float64 `json:"alignedStart"`
	AlignedEnd   float64 `json:"alignedEnd"`
	SceneAligned bool    `json:"sceneAligned"`
}

// Degradation records a non-fatal fallback the pipeline took. The run is
// still valid; these exist so callers can tell a clean result from a
// degraded one.
type Degradation string

const (
	DegradationDetectorFallback    Degradation = "detector_fallback"
	DegradationSingleSceneFallback Degradation = "single_scene_fallback"
	DegradationZeroVectorFeature   Degradation = "zero_vector_feature"
	DegradationClusteringSkipped   Degradation = "clustering_skipped"
)

// SegmentationResult is the output of one pipeline run over one video.
type SegmentationResult struct {
	JobID          string        `json:"jobId"`
	VideoPath      string        `json:"videoPath"`
	Duration       float64       `json:"duration"`
	Method         Method        `json:"method"`
	ShotCount      int           `json:"shotCount"`
	Scenes         []Scene       `json:"scenes"`
	Degradations   []Degradation `json:"degradations,omitempty"`
	ProcessingTime float64       `json:"processingTime"`
	StartedAt      time.Time     `json:"startedAt"`
	CompletedAt    time.Time     `json:"completedAt"`
}

// Degraded reports whether the run took any fallback path.
func (r *SegmentationResult) Degraded() bool {
	return len(r.Degradations) > 0
}

// JobOptions carries per-job overrides of the configured defaults. Nil
// fields fall back to config values.
type JobOptions struct {
	Method              *string  `json:"method,omitempty"`
	Threshold           *float64 `json:"threshold,omitempty"`
	MinSceneLength      *float64 `json:"minSceneLength,omitempty"`
	DetectionInterval   *float64 `json:"detectionInterval,omitempty"`
	SimilarityThreshold *float64 `json:"similarityThreshold,omitempty"`
	MinClusterDuration  *float64 `json:"minClusterDuration,omitempty"`
	MaxClusters         *int     `json:"maxClusters,omitempty"`
	MaxGap              *float64 `json:"maxGap,omitempty"`
	SplitDiscontinuous  *bool    `json:"splitDiscontinuous,omitempty"`
}

// JobPayload is a queued segmentation job.
type JobPayload struct {
	JobID     string     `json:"jobId"`
	VideoPath string     `json:"videoPath"`
	Options   JobOptions `json:"options"`
	Segments  []Segment  `json:"segments,omitempty"` // optional, aligned after segmentation
}

// ProgressUpdate is published over Redis pub/sub while a job runs.
type ProgressUpdate struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Progress  float64   `json:"progress"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalBinary lets go-redis publish the update directly.
func (p ProgressUpdate) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// NewJobID generates a unique job ID.
func NewJobID() string {
	return uuid.New().String()
}

// NewSceneID generates a unique scene ID.
func NewSceneID() string {
	return uuid.New().String()
}
