package priority

import (
	"math"
	"sort"
)

// Normalize maps values to percentile ranks in [0, 1]. The output is
// index-aligned with the input. Equal values share the average of the
// sorted positions they span, so ties always get identical output.
// A single value maps to 1.0 and an empty input to an empty slice.
// NaN ranks as 0.
func Normalize(values []float64) []float64 {
	n := len(values)
	out := make([]float64, n)
	switch n {
	case 0:
		return out
	case 1:
		out[0] = 1.0
		return out
	}

	vals := make([]float64, n)
	for i, v := range values {
		if math.IsNaN(v) {
			v = 0
		}
		vals[i] = v
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})

	for i := 0; i < n; {
		j := i
		for j+1 < n && vals[order[j+1]] == vals[order[i]] {
			j++
		}
		rank := float64(i+j) / 2
		for k := i; k <= j; k++ {
			out[order[k]] = rank / float64(n-1)
		}
		i = j + 1
	}

	return out
}
