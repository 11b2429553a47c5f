package similarity

import "math"

// VectorStats summarizes the norms of a vector set. Only non-empty vectors
// count toward the aggregates; an all-empty input yields zeroed stats with
// Count still set.
type VectorStats struct {
	Count      int     `json:"count"`
	ValidCount int     `json:"valid_count"`
	Dimensions int     `json:"dimensions"`
	MeanNorm   float64 `json:"mean_norm"`
	StdNorm    float64 `json:"std_norm"`
	MinNorm    float64 `json:"min_norm"`
	MaxNorm    float64 `json:"max_norm"`
}

func Statistics(vectors [][]float32) VectorStats {
	st := VectorStats{Count: len(vectors)}
	norms := make([]float64, 0, len(vectors))
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if st.ValidCount == 0 {
			st.Dimensions = len(v)
		}
		norms = append(norms, norm(v))
		st.ValidCount++
	}
	if len(norms) == 0 {
		return st
	}
	var sum float64
	st.MinNorm = norms[0]
	st.MaxNorm = norms[0]
	for _, n := range norms {
		sum += n
		if n < st.MinNorm {
			st.MinNorm = n
		}
		if n > st.MaxNorm {
			st.MaxNorm = n
		}
	}
	st.MeanNorm = sum / float64(len(norms))
	var variance float64
	for _, n := range norms {
		d := n - st.MeanNorm
		variance += d * d
	}
	st.StdNorm = math.Sqrt(variance / float64(len(norms)))
	return st
}
