package model

// OtherCategory collects rare values of columns listed in Config.RareColumns
const OtherCategory = "other"

// CategoryEncoder maps a categorical column to the smoothed mean target of each value
type CategoryEncoder struct {
	Column    string             `json:"column"`
	Index     int                `json:"index"`
	Prior     float64            `json:"prior"`
	Means     map[string]float64 `json:"means"`
	MergeRare bool               `json:"merge_rare"`
}

func fitEncoder(column string, index int, values []string, y []float64, prior, smoothing float64, mergeRare bool, minCount int) *CategoryEncoder {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}

	sums := make(map[string]float64)
	ns := make(map[string]float64)
	for i, v := range values {
		if mergeRare && counts[v] < minCount {
			v = OtherCategory
		}
		sums[v] += y[i]
		ns[v]++
	}

	enc := &CategoryEncoder{
		Column:    column,
		Index:     index,
		Prior:     prior,
		Means:     make(map[string]float64, len(sums)),
		MergeRare: mergeRare,
	}
	for v, sum := range sums {
		enc.Means[v] = (sum + prior*smoothing) / (ns[v] + smoothing)
	}
	return enc
}

// Encode returns the numeric value of a category. Unseen values fall back to
// the rare bucket when rare merging is on, otherwise to the prior.
func (e *CategoryEncoder) Encode(value string) float64 {
	if m, ok := e.Means[value]; ok {
		return m
	}
	if e.MergeRare {
		if m, ok := e.Means[OtherCategory]; ok {
			return m
		}
	}
	return e.Prior
}
