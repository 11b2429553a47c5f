package similarity

import "strings"

// Metric selects how two vectors are compared. String names are stable and
// appear in query results and reports.
type Metric int

const (
	CosineSim Metric = iota
	EuclideanDist
	EuclideanSim
	DotProductSim
	ManhattanDist
)

func (m Metric) String() string {
	switch m {
	case CosineSim:
		return "cosine_similarity"
	case EuclideanDist:
		return "euclidean_distance"
	case EuclideanSim:
		return "euclidean_similarity"
	case DotProductSim:
		return "dot_product"
	case ManhattanDist:
		return "manhattan_distance"
	default:
		return "unknown"
	}
}

// ParseMetric resolves a metric by its stable name. Unknown names resolve
// to cosine similarity with ok=false so callers can warn and proceed.
func ParseMetric(name string) (Metric, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cosine_similarity", "cosine":
		return CosineSim, true
	case "euclidean_distance":
		return EuclideanDist, true
	case "euclidean_similarity":
		return EuclideanSim, true
	case "dot_product":
		return DotProductSim, true
	case "manhattan_distance", "manhattan":
		return ManhattanDist, true
	default:
		return CosineSim, false
	}
}
