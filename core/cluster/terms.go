package cluster

import (
	"math"
	"sort"

	"github.com/siherrmann/trendsense/core/dedup"
)

// representativeTerms ranks the tokens of each cluster by class-based
// TF-IDF: term frequency within the cluster weighted by how rare the term
// is across all clusters. Returns the top limit terms per cluster label.
func representativeTerms(texts []string, labels []int, limit int) map[int][]string {
	clusterCounts := make(map[int]map[string]int)
	clusterSizes := make(map[int]int)
	corpusCounts := make(map[string]int)

	for i, text := range texts {
		label := labels[i]
		if label == noiseLabel {
			continue
		}
		counts, ok := clusterCounts[label]
		if !ok {
			counts = make(map[string]int)
			clusterCounts[label] = counts
		}
		for _, tok := range dedup.NormalizeTitle(text) {
			counts[tok]++
			clusterSizes[label]++
			corpusCounts[tok]++
		}
	}
	if len(clusterSizes) == 0 {
		return nil
	}

	var totalTokens int
	for _, size := range clusterSizes {
		totalTokens += size
	}
	avgClusterTokens := float64(totalTokens) / float64(len(clusterSizes))

	result := make(map[int][]string, len(clusterCounts))
	for label, counts := range clusterCounts {
		type scored struct {
			term  string
			score float64
		}
		ranked := make([]scored, 0, len(counts))
		size := float64(clusterSizes[label])
		for term, count := range counts {
			tf := float64(count) / size
			idf := math.Log1p(avgClusterTokens / float64(corpusCounts[term]))
			ranked = append(ranked, scored{term: term, score: tf * idf})
		}
		sort.Slice(ranked, func(a, b int) bool {
			if ranked[a].score != ranked[b].score {
				return ranked[a].score > ranked[b].score
			}
			return ranked[a].term < ranked[b].term
		})
		top := limit
		if top > len(ranked) {
			top = len(ranked)
		}
		terms := make([]string, top)
		for i := 0; i < top; i++ {
			terms[i] = ranked[i].term
		}
		result[label] = terms
	}
	return result
}
