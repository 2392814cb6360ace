// Package cluster groups visually similar shots into scenes using a
// cosine similarity matrix and hierarchical agglomerative clustering.
package cluster

import (
	"math"

	"github.com/sceneforge/sceneworker/internal/models"
)

// SimilarityMatrix computes the full pairwise cosine similarity matrix over
// standardized fingerprints. The matrix is symmetric with a unit diagonal.
func SimilarityMatrix(vectors []models.FeatureVector) [][]float64 {
	n := len(vectors)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := Cosine(vectors[i], vectors[j])
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}

// Cosine is the cosine similarity of two vectors. Two zero-norm vectors are
// treated as identical (similarity 1): degraded shots with zero fingerprints
// must cluster together rather than scatter. A zero vector against a
// non-zero one shares nothing, so that pair scores 0.
func Cosine(a, b models.FeatureVector) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 && normB == 0 {
		return 1.0
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
