package cluster

import "math"

const noiseLabel = -1

// dbscan assigns a cluster label to every point, with -1 marking noise.
// Points are visited in index order so the labeling is deterministic for
// a given input.
func dbscan(points [][]float64, eps float64, minPoints int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = noiseLabel
	}
	visited := make([]bool, n)

	cluster := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPoints {
			continue
		}

		labels[i] = cluster
		// Expand the cluster breadth-first over density-reachable points.
		for j := 0; j < len(neighbors); j++ {
			p := neighbors[j]
			if labels[p] == noiseLabel {
				labels[p] = cluster
			}
			if visited[p] {
				continue
			}
			visited[p] = true
			next := regionQuery(points, p, eps)
			if len(next) >= minPoints {
				neighbors = append(neighbors, next...)
			}
		}
		cluster++
	}
	return labels
}

func regionQuery(points [][]float64, center int, eps float64) []int {
	var neighbors []int
	for i := range points {
		if euclidean(points[center], points[i]) <= eps {
			neighbors = append(neighbors, i)
		}
	}
	return neighbors
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
