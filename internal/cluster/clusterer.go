package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

// sceneConfidence is the fixed baseline for clustered scenes. Cluster
// membership is structural, not a measured probability.
const sceneConfidence = 0.95

// Clusterer groups shots into scenes by visual similarity.
type Clusterer struct {
	similarityThreshold float64
	logger              zerolog.Logger
}

// NewClusterer creates a clusterer. The similarity threshold feeds the
// automatic cluster count estimate, not the clustering itself.
func NewClusterer(similarityThreshold float64, logger zerolog.Logger) *Clusterer {
	return &Clusterer{
		similarityThreshold: similarityThreshold,
		logger:              logger.With().Str("component", "cluster").Logger(),
	}
}

// Cluster groups shots into time-ordered scenes. Vectors must be the
// standardized fingerprints of the same shots, index for index. With two or
// fewer shots clustering is skipped and shots pass through 1:1. maxClusters
// of 0 means auto-estimate.
func (c *Clusterer) Cluster(shots []models.Shot, vectors []models.FeatureVector, maxClusters int) ([]models.Scene, []models.Degradation, error) {
	if len(shots) != len(vectors) {
		return nil, nil, fmt.Errorf("shot/vector count mismatch: %d vs %d", len(shots), len(vectors))
	}
	if len(shots) == 0 {
		return nil, nil, nil
	}

	if len(shots) <= 2 {
		c.logger.Info().Int("shots", len(shots)).Msg("too few shots, skipping clustering")
		return passthroughScenes(shots), []models.Degradation{models.DegradationClusteringSkipped}, nil
	}

	matrix := SimilarityMatrix(vectors)

	k := maxClusters
	if k <= 0 {
		k = c.estimateClusters(matrix)
	}
	if k > len(shots) {
		k = len(shots)
	}

	distance := make([][]float64, len(matrix))
	for i, row := range matrix {
		distance[i] = make([]float64, len(row))
		for j, sim := range row {
			distance[i][j] = 1 - sim
		}
	}

	c.logger.Info().Int("shots", len(shots)).Int("clusters", k).Msg("running agglomerative clustering")
	labels := agglomerate(distance, k)

	scenes := buildScenes(shots, labels)
	labelScenes(scenes)
	return scenes, nil, nil
}

// estimateClusters picks a target cluster count from the fraction of shot
// pairs above the similarity threshold: mostly-similar footage collapses to
// few scenes, dissimilar footage keeps most shots apart.
func (c *Clusterer) estimateClusters(matrix [][]float64) int {
	n := len(matrix)

	highPairs, totalPairs := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if matrix[i][j] > c.similarityThreshold {
				highPairs++
			}
			totalPairs++
		}
	}
	if totalPairs == 0 {
		return n
	}

	ratio := float64(highPairs) / float64(totalPairs)

	var estimated int
	switch {
	case ratio > 0.5:
		estimated = max(2, n/3)
	case ratio > 0.3:
		estimated = max(2, n/2)
	default:
		estimated = max(2, int(math.Round(0.8*float64(n))))
	}

	if estimated > n {
		estimated = n
	}
	c.logger.Info().
		Float64("similarity_ratio", ratio).
		Int("estimated_clusters", estimated).
		Msg("estimated cluster count")
	return estimated
}

// buildScenes creates one scene per cluster label, spanning the cluster's
// earliest shot start to its latest shot end.
func buildScenes(shots []models.Shot, labels []int) []models.Scene {
	byLabel := make(map[int][]models.Shot)
	for i, label := range labels {
		byLabel[label] = append(byLabel[label], shots[i])
	}

	scenes := make([]models.Scene, 0, len(byLabel))
	for _, members := range byLabel {
		sort.Slice(members, func(i, j int) bool {
			return members[i].StartTime < members[j].StartTime
		})

		start := members[0].StartTime
		end := members[len(members)-1].EndTime
		scenes = append(scenes, models.Scene{
			ID:         models.NewSceneID(),
			StartTime:  start,
			EndTime:    end,
			Duration:   end - start,
			ShotCount:  len(members),
			Confidence: sceneConfidence,
			Shots:      members,
		})
	}
	return scenes
}

// passthroughScenes maps shots 1:1 onto scenes.
func passthroughScenes(shots []models.Shot) []models.Scene {
	scenes := make([]models.Scene, 0, len(shots))
	for _, shot := range shots {
		scenes = append(scenes, models.Scene{
			ID:         models.NewSceneID(),
			StartTime:  shot.StartTime,
			EndTime:    shot.EndTime,
			Duration:   shot.EndTime - shot.StartTime,
			ShotCount:  1,
			Confidence: shot.Confidence,
			Shots:      []models.Shot{shot},
		})
	}
	labelScenes(scenes)
	return scenes
}

// labelScenes sorts freshly built scenes by start time and assigns their
// permanent labels. Later passes may merge, split or reorder scenes, but
// the label keeps identifying the originating cluster.
func labelScenes(scenes []models.Scene) {
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].StartTime < scenes[j].StartTime
	})
	for i := range scenes {
		scenes[i].Index = i + 1
		scenes[i].Label = fmt.Sprintf("scene-%d", i+1)
	}
}

// reindexScenes sorts scenes by start time and renumbers them. Labels are
// left alone; they are fixed at creation.
func reindexScenes(scenes []models.Scene) {
	sort.Slice(scenes, func(i, j int) bool {
		return scenes[i].StartTime < scenes[j].StartTime
	})
	for i := range scenes {
		scenes[i].Index = i + 1
	}
}
