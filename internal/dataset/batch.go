package dataset

import "math/rand/v2"

// DefaultBatchSize is the mini-batch size used by the search objective.
const DefaultBatchSize = 32

// Batches returns a freshly shuffled partition of the sample indices
// [0, n) into mini-batches of at most size elements. The last batch may be
// short. n == 0 yields no batches.
func Batches(n, size int, rng *rand.Rand) [][]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}

	perm := rng.Perm(n)
	batches := make([][]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, perm[start:end])
	}
	return batches
}

// Gather collects the windows and labels at the given indices.
func (s *Set) Gather(idx []int) ([][]float64, []float64) {
	windows := make([][]float64, len(idx))
	labels := make([]float64, len(idx))
	for i, j := range idx {
		windows[i] = s.Windows[j]
		labels[i] = s.Labels[j]
	}
	return windows, labels
}
