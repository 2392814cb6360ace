package features

import (
	"math"

	"github.com/sceneforge/sceneworker/internal/models"
)

// Standardize applies z-score standardization per dimension across the
// batch, in place. Dimensions with zero variance are left at zero so a
// constant feature cannot dominate similarity. Standardizing per batch
// rather than per vector keeps shots comparable to each other.
func Standardize(vectors []models.FeatureVector) {
	if len(vectors) == 0 {
		return
	}
	dims := len(vectors[0])

	for d := 0; d < dims; d++ {
		var mean float64
		for _, v := range vectors {
			mean += v[d]
		}
		mean /= float64(len(vectors))

		var variance float64
		for _, v := range vectors {
			diff := v[d] - mean
			variance += diff * diff
		}
		variance /= float64(len(vectors))
		std := math.Sqrt(variance)

		for _, v := range vectors {
			if std > 0 {
				v[d] = (v[d] - mean) / std
			} else {
				v[d] = 0
			}
		}
	}
}
