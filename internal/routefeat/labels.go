package routefeat

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/locowear/wheelwear/internal/models"
)

// MountainousLatSpan is the latitude span above which a route counts as mountainous
const MountainousLatSpan = 2.0

// ClimateZoneFor buckets a mean latitude
func ClimateZoneFor(lat float64) models.ClimateZone {
	switch {
	case lat > 60:
		return models.ClimateArctic
	case lat > 50:
		return models.ClimateNorth
	case lat > 40:
		return models.ClimateTemperate
	default:
		return models.ClimateSouth
	}
}

// IsMountainous applies the latitude span threshold
func IsMountainous(latSpan float64) bool {
	return latSpan > MountainousLatSpan
}

var usageLabels = []models.UsageIntensity{
	models.UsageVeryLow,
	models.UsageLow,
	models.UsageMedium,
	models.UsageHigh,
	models.UsageVeryHigh,
}

// UsageBuckets holds the quantile edges of visits per day
type UsageBuckets struct {
	Edges []float64
}

// NewUsageBuckets computes the 5-way quantile edges for a population
func NewUsageBuckets(values []float64) UsageBuckets {
	if len(values) == 0 {
		return UsageBuckets{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, len(usageLabels)+1)
	edges[0] = sorted[0]
	edges[len(edges)-1] = sorted[len(sorted)-1]
	for i := 1; i < len(usageLabels); i++ {
		edges[i] = stat.Quantile(float64(i)/float64(len(usageLabels)), stat.LinInterp, sorted, nil)
	}
	return UsageBuckets{Edges: edges}
}

// Label returns the bucket for a value. Buckets are right-closed.
func (b UsageBuckets) Label(v float64) models.UsageIntensity {
	if len(b.Edges) == 0 {
		return models.UsageMedium
	}
	for i := 1; i < len(b.Edges)-1; i++ {
		if v <= b.Edges[i] {
			return usageLabels[i-1]
		}
	}
	return usageLabels[len(usageLabels)-1]
}
