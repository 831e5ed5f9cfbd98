// Package ranking implements the scoring core: per-site aggregation, score normalization,
// heuristic combination, the recency window and pagination math
package ranking

// NormalizeOnMax divides every value by the maximum of the sequence
// Output has the same length and order as the input, so it can be zipped back against the hit list.
// An empty input or a zero maximum yields all zeros.
func NormalizeOnMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	maxValue := values[0]
	for _, v := range values[1:] {
		if v > maxValue {
			maxValue = v
		}
	}

	if maxValue == 0 {
		return out
	}

	for i, v := range values {
		out[i] = v / maxValue
	}
	return out
}
