// Package similarity implements pure numeric comparison of embedding
// vectors. Nothing here does I/O or keeps state; dimension mismatches and
// empty vectors resolve to neutral values (0 similarity, +Inf distance)
// instead of errors.
package similarity

import (
	"math"
	"sort"
)

// Result is one ranked candidate: its position in the input slice and its
// score under the chosen metric (higher is always more similar).
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Cosine returns the normalized dot product of a and b in [-1, 1].
// Empty input, mismatched dimensions, zero norms and NaN all yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	v := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// EuclideanDistance returns the L2 distance, +Inf on empty or mismatched
// input.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	v := math.Sqrt(sum)
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}

// EuclideanSimilarity maps distance into (0, 1] via 1/(1+d); the neutral
// value for unusable input is 0.
func EuclideanSimilarity(a, b []float32) float64 {
	d := EuclideanDistance(a, b)
	if math.IsInf(d, 1) {
		return 0
	}
	return 1 / (1 + d)
}

// DotProduct returns the raw dot product, 0 on empty or mismatched input.
func DotProduct(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if math.IsNaN(dot) {
		return 0
	}
	return dot
}

// ManhattanDistance returns the L1 distance, +Inf on empty or mismatched
// input.
func ManhattanDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	if math.IsNaN(sum) {
		return math.Inf(1)
	}
	return sum
}

// AllMetrics computes every metric for one pair.
func AllMetrics(a, b []float32) map[string]float64 {
	return map[string]float64{
		CosineSim.String():     Cosine(a, b),
		EuclideanDist.String(): EuclideanDistance(a, b),
		EuclideanSim.String():  EuclideanSimilarity(a, b),
		DotProductSim.String(): DotProduct(a, b),
		ManhattanDist.String(): ManhattanDistance(a, b),
	}
}

// Score ranks a candidate against the query under m. Distance metrics are
// negated so that higher score always means more similar.
func Score(m Metric, query, candidate []float32) float64 {
	switch m {
	case CosineSim:
		return Cosine(query, candidate)
	case EuclideanSim:
		return EuclideanSimilarity(query, candidate)
	case DotProductSim:
		return DotProduct(query, candidate)
	case EuclideanDist:
		return -EuclideanDistance(query, candidate)
	case ManhattanDist:
		return -ManhattanDistance(query, candidate)
	default:
		return Cosine(query, candidate)
	}
}

// FindMostSimilar scores every non-empty candidate and returns at most topK
// results sorted by descending score. The sort is stable, so ties keep
// candidate order; Index always refers to the candidates slice as given.
func FindMostSimilar(query []float32, candidates [][]float32, m Metric, topK int) []Result {
	if len(query) == 0 || len(candidates) == 0 || topK <= 0 {
		return nil
	}
	results := make([]Result, 0, len(candidates))
	for i, candidate := range candidates {
		if len(candidate) == 0 {
			continue
		}
		results = append(results, Result{Index: i, Score: Score(m, query, candidate)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Matrix returns the symmetric pairwise similarity matrix over the
// non-empty vectors. Cosine uses a normalized product over precomputed
// norms; euclidean distance is mapped through 1/(1+d); remaining metrics
// go element-wise with a fixed 1.0 diagonal.
func Matrix(vectors [][]float32, m Metric) [][]float64 {
	valid := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		if len(v) > 0 {
			valid = append(valid, v)
		}
	}
	n := len(valid)
	if n == 0 {
		return nil
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	switch m {
	case CosineSim:
		norms := make([]float64, n)
		for i, v := range valid {
			norms[i] = norm(v)
		}
		for i := 0; i < n; i++ {
			out[i][i] = 1.0
			for j := i + 1; j < n; j++ {
				var v float64
				if norms[i] != 0 && norms[j] != 0 {
					v = DotProduct(valid[i], valid[j]) / (norms[i] * norms[j])
					if math.IsNaN(v) {
						v = 0
					}
				}
				out[i][j] = v
				out[j][i] = v
			}
		}
	case EuclideanDist, EuclideanSim:
		for i := 0; i < n; i++ {
			out[i][i] = 1.0
			for j := i + 1; j < n; j++ {
				v := EuclideanSimilarity(valid[i], valid[j])
				out[i][j] = v
				out[j][i] = v
			}
		}
	case ManhattanDist:
		for i := 0; i < n; i++ {
			out[i][i] = 1.0
			for j := i + 1; j < n; j++ {
				d := ManhattanDistance(valid[i], valid[j])
				v := 0.0
				if !math.IsInf(d, 1) {
					v = 1 / (1 + d)
				}
				out[i][j] = v
				out[j][i] = v
			}
		}
	case DotProductSim:
		for i := 0; i < n; i++ {
			out[i][i] = 1.0
			for j := i + 1; j < n; j++ {
				v := DotProduct(valid[i], valid[j])
				out[i][j] = v
				out[j][i] = v
			}
		}
	default:
		return Matrix(vectors, CosineSim)
	}
	return out
}

// Normalize returns L2 unit copies of the vectors. A zero-norm or empty
// vector normalizes to an empty slice, the sentinel for "cannot
// normalize".
func Normalize(vectors [][]float32) [][]float32 {
	out := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		nrm := norm(v)
		if len(v) == 0 || nrm == 0 {
			out = append(out, []float32{})
			continue
		}
		scaled := make([]float32, len(v))
		for i := range v {
			scaled[i] = float32(float64(v[i]) / nrm)
		}
		out = append(out, scaled)
	}
	return out
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
