package risk

import "math"

// quantile7 returns the q-quantile of an ascending sample, interpolating linearly between
// the two nearest order statistics at rank q*(n-1) (Hyndman-Fan type 7, numpy's default).
func quantile7(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 || q <= 0 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// tailMean averages the sorted values at or below threshold. An empty tail cannot be
// averaged, so the worst observation stands in for it.
func tailMean(sorted []float64, threshold float64) float64 {
	var sum float64
	k := 0
	for _, v := range sorted {
		if v > threshold {
			break
		}
		sum += v
		k++
	}
	if k == 0 {
		return sorted[0]
	}
	return sum / float64(k)
}
