package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locowear/wheelwear/internal/features"
)

var testSchema = features.NewSchema([]string{"depo", "mileage_start", "total_repairs"})

// synthetic wear: depot A wears faster, wear grows with mileage
func syntheticData(n int, seed int64) ([]features.Vector, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([]features.Vector, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		depo := "B"
		bump := 0.0
		if rng.Intn(2) == 0 {
			depo = "A"
			bump = 0.5
		}
		mileage := rng.Float64() * 200000
		repairs := float64(rng.Intn(5))
		x[i] = features.Vector{
			Columns: testSchema.Columns,
			Values: []features.Value{
				{Cat: depo, IsCat: true},
				{Num: mileage},
				{Num: repairs},
			},
		}
		y[i] = bump + mileage/200000 + 0.05*repairs
	}
	return x, y
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Iterations = 80
	cfg.Depth = 3
	cfg.MaxBins = 32
	cfg.EarlyStoppingRounds = 10
	cfg.MinCategoryCount = 1
	cfg.OutlierQuantile = 0
	return cfg
}

func TestTrainLearnsSignal(t *testing.T) {
	x, y := syntheticData(400, 1)
	xEval, yEval := syntheticData(100, 2)

	m, report, err := Train(x, y, &EvalSet{X: xEval, Y: yEval}, smallConfig(), nil)
	require.NoError(t, err)

	baseline := make([]float64, len(yEval))
	for i := range baseline {
		baseline[i] = m.BaseScore
	}
	assert.Less(t, report.EvalRMSE, RMSE(yEval, baseline)/3)
	assert.Greater(t, report.Iterations, 0)
	assert.LessOrEqual(t, report.Iterations, 80)

	require.Len(t, report.Importances, 3)
	var total float64
	for _, imp := range report.Importances {
		total += imp.Percent
	}
	assert.InDelta(t, 100, total, 1e-6)
	assert.Equal(t, "total_repairs", report.Importances[2].Feature)
}

func TestTrainIsDeterministic(t *testing.T) {
	x, y := syntheticData(200, 3)
	cfg := smallConfig()
	cfg.Subsample = 0.8

	m1, _, err := Train(x, y, nil, cfg, nil)
	require.NoError(t, err)
	m2, _, err := Train(x, y, nil, cfg, nil)
	require.NoError(t, err)

	p1, err := m1.Predict(x[:20])
	require.NoError(t, err)
	p2, err := m2.Predict(x[:20])
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestTrainDropsDuplicatesAndOutliers(t *testing.T) {
	x, y := syntheticData(100, 4)
	x = append(x, x[0], x[1])
	y = append(y, y[0], y[1])
	y[5] = 1000

	cfg := smallConfig()
	cfg.OutlierQuantile = 0.99

	_, report, err := Train(x, y, nil, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Duplicates)
	assert.GreaterOrEqual(t, report.Outliers, 1)
	assert.Equal(t, 100-report.Outliers, report.Rows)
}

func TestTrainErrors(t *testing.T) {
	x, y := syntheticData(10, 5)

	_, _, err := Train(x, y[:5], nil, smallConfig(), nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, _, err = Train(nil, nil, nil, smallConfig(), nil)
	assert.ErrorIs(t, err, ErrNoTrainingData)

	bad := smallConfig()
	bad.LearningRate = 0
	_, _, err = Train(x, y, nil, bad, nil)
	assert.Error(t, err)
}

func TestPredictRejectsForeignSchema(t *testing.T) {
	x, y := syntheticData(50, 6)
	m, _, err := Train(x, y, nil, smallConfig(), nil)
	require.NoError(t, err)

	other := features.Vector{Columns: []string{"depo"}, Values: []features.Value{{Cat: "A", IsCat: true}}}
	_, err = m.Predict([]features.Vector{other})
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	out, err := m.Predict(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCategoryEncoder(t *testing.T) {
	values := []string{"a", "a", "a", "b", "c"}
	y := []float64{1, 1, 1, 0, 0}

	enc := fitEncoder("steel_num", 0, values, y, 0.6, 1, true, 2)
	assert.InDelta(t, (3+0.6)/4, enc.Encode("a"), 1e-12)
	assert.Contains(t, enc.Means, OtherCategory)
	assert.NotContains(t, enc.Means, "b")
	assert.Equal(t, enc.Means[OtherCategory], enc.Encode("never-seen"))

	plain := fitEncoder("depo", 0, values, y, 0.6, 1, false, 2)
	assert.Equal(t, 0.6, plain.Encode("never-seen"))
	assert.Contains(t, plain.Means, "b")
}

func TestQualityLabel(t *testing.T) {
	assert.Equal(t, "excellent", QualityLabel(0.1))
	assert.Equal(t, "good", QualityLabel(0.25))
	assert.Equal(t, "acceptable", QualityLabel(0.35))
	assert.Equal(t, "needs improvement", QualityLabel(0.5))
}

func TestRMSE(t *testing.T) {
	assert.Equal(t, 0.0, RMSE(nil, nil))
	assert.InDelta(t, math.Sqrt(2.5), RMSE([]float64{1, 2}, []float64{0, 4}), 1e-12)
}
