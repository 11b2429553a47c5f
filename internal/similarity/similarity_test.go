package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSelfSimilarity(t *testing.T) {
	v := []float32{0.1, 0.2, 0.3, 0.4}
	require.InDelta(t, 1.0, Cosine(v, v), 1e-9)
}

func TestCosineNeutralValues(t *testing.T) {
	require.Equal(t, 0.0, Cosine(nil, []float32{1, 2}))
	require.Equal(t, 0.0, Cosine([]float32{1, 2}, nil))
	require.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	require.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 2}))
}

func TestEuclideanDistance(t *testing.T) {
	require.InDelta(t, 5.0, EuclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-9)
	require.True(t, math.IsInf(EuclideanDistance(nil, []float32{1}), 1))
	require.True(t, math.IsInf(EuclideanDistance([]float32{1}, []float32{1, 2}), 1))
}

func TestEuclideanSimilarityBounds(t *testing.T) {
	v := []float32{1, 2, 3}
	require.InDelta(t, 1.0, EuclideanSimilarity(v, v), 1e-9)
	require.Equal(t, 0.0, EuclideanSimilarity(nil, v))
	sim := EuclideanSimilarity([]float32{0, 0}, []float32{3, 4})
	require.InDelta(t, 1.0/6.0, sim, 1e-9)
}

func TestDotAndManhattan(t *testing.T) {
	require.InDelta(t, 11.0, DotProduct([]float32{1, 2}, []float32{3, 4}), 1e-6)
	require.Equal(t, 0.0, DotProduct(nil, []float32{1}))
	require.InDelta(t, 4.0, ManhattanDistance([]float32{1, 2}, []float32{3, 4}), 1e-6)
	require.True(t, math.IsInf(ManhattanDistance([]float32{1}, nil), 1))
}

func TestAllMetrics(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	all := AllMetrics(a, b)
	require.Len(t, all, 5)
	require.InDelta(t, 0.0, all["cosine_similarity"], 1e-9)
	require.InDelta(t, math.Sqrt2, all["euclidean_distance"], 1e-6)
	require.InDelta(t, 2.0, all["manhattan_distance"], 1e-6)
}

func TestFindMostSimilarRanking(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{1, 0}, {0, 1}, {-1, 0}}
	results := FindMostSimilar(query, candidates, CosineSim, 2)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Index)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.Equal(t, 1, results[1].Index)
	require.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestFindMostSimilarSkipsEmptyCandidates(t *testing.T) {
	query := []float32{1, 0}
	candidates := [][]float32{{}, {1, 0}, nil}
	results := FindMostSimilar(query, candidates, CosineSim, 10)
	require.Len(t, results, 1)
	require.Equal(t, 1, results[0].Index)
}

func TestFindMostSimilarDistanceMetricNegated(t *testing.T) {
	query := []float32{0, 0}
	candidates := [][]float32{{3, 4}, {1, 0}}
	results := FindMostSimilar(query, candidates, EuclideanDist, 2)
	require.Len(t, results, 2)
	// nearer candidate ranks first even though raw distance is smaller
	require.Equal(t, 1, results[0].Index)
	require.InDelta(t, -1.0, results[0].Score, 1e-9)
	require.InDelta(t, -5.0, results[1].Score, 1e-9)
}

func TestFindMostSimilarSortedAndBounded(t *testing.T) {
	query := []float32{1, 1}
	candidates := [][]float32{{1, 0}, {1, 1}, {0, 1}, {2, 2}, {-1, -1}}
	results := FindMostSimilar(query, candidates, CosineSim, 3)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		require.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestMatrixCosine(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}, {}}
	m := Matrix(vectors, CosineSim)
	require.Len(t, m, 2)
	require.InDelta(t, 1.0, m[0][0], 1e-9)
	require.InDelta(t, 1.0, m[1][1], 1e-9)
	require.InDelta(t, 0.0, m[0][1], 1e-9)
	require.InDelta(t, m[0][1], m[1][0], 1e-12)
}

func TestMatrixEmpty(t *testing.T) {
	require.Nil(t, Matrix(nil, CosineSim))
	require.Nil(t, Matrix([][]float32{{}, nil}, CosineSim))
}

func TestNormalize(t *testing.T) {
	out := Normalize([][]float32{{3, 4}, {0, 0}, {}})
	require.Len(t, out, 3)
	require.InDelta(t, 1.0, norm(out[0]), 1e-6)
	require.Empty(t, out[1])
	require.Empty(t, out[2])
}

func TestStatistics(t *testing.T) {
	st := Statistics([][]float32{{3, 4}, {0, 1}, {}})
	require.Equal(t, 3, st.Count)
	require.Equal(t, 2, st.ValidCount)
	require.Equal(t, 2, st.Dimensions)
	require.InDelta(t, 3.0, st.MeanNorm, 1e-9)
	require.InDelta(t, 2.0, st.StdNorm, 1e-9)
	require.InDelta(t, 1.0, st.MinNorm, 1e-9)
	require.InDelta(t, 5.0, st.MaxNorm, 1e-9)
}

func TestStatisticsAllEmpty(t *testing.T) {
	st := Statistics([][]float32{{}, nil})
	require.Equal(t, 2, st.Count)
	require.Equal(t, 0, st.ValidCount)
	require.Equal(t, 0.0, st.MeanNorm)
}

func TestParseMetric(t *testing.T) {
	m, ok := ParseMetric("euclidean_distance")
	require.True(t, ok)
	require.Equal(t, EuclideanDist, m)
	m, ok = ParseMetric("bogus")
	require.False(t, ok)
	require.Equal(t, CosineSim, m)
}
