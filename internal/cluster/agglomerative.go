package cluster

// agglomerate runs bottom-up hierarchical clustering with average linkage
// over a precomputed distance matrix, merging the closest pair of clusters
// until k remain. Returns a cluster label per input index, labelled 0..k-1
// in first-member order.
func agglomerate(distance [][]float64, k int) []int {
	n := len(distance)
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}

	for len(clusters) > k {
		bestA, bestB := 0, 1
		bestDist := linkage(distance, clusters[0], clusters[1])
		for a := 0; a < len(clusters); a++ {
			for b := a + 1; b < len(clusters); b++ {
				if d := linkage(distance, clusters[a], clusters[b]); d < bestDist {
					bestA, bestB, bestDist = a, b, d
				}
			}
		}

		clusters[bestA] = append(clusters[bestA], clusters[bestB]...)
		clusters = append(clusters[:bestB], clusters[bestB+1:]...)
	}

	labels := make([]int, n)
	for id, members := range clusters {
		for _, idx := range members {
			labels[idx] = id
		}
	}
	return labels
}

// linkage is the average pairwise distance between two clusters' members.
func linkage(distance [][]float64, a, b []int) float64 {
	var sum float64
	for _, i := range a {
		for _, j := range b {
			sum += distance[i][j]
		}
	}
	return sum / float64(len(a)*len(b))
}
