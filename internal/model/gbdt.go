package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/locowear/wheelwear/internal/features"
)

// ModelType is reported by the info endpoint
const ModelType = "GradientBoostedTrees"

var (
	ErrNoTrainingData = errors.New("no training rows")
	ErrLengthMismatch = errors.New("features and targets differ in length")
	ErrSchemaMismatch = errors.New("vector columns do not match the model features")
	ErrUntrainedModel = errors.New("model has no trees")
)

// Predictor is anything that can score prepared vectors
type Predictor interface {
	Predict(vectors []features.Vector) ([]float64, error)
}

// Model is a trained gradient-boosted regression tree ensemble
type Model struct {
	Type         string             `json:"type"`
	Version      string             `json:"version"`
	Features     []string           `json:"features"`
	BaseScore    float64            `json:"base_score"`
	LearningRate float64            `json:"learning_rate"`
	Encoders     []*CategoryEncoder `json:"encoders"`
	Trees        []Tree             `json:"trees"`
	Importances  []float64          `json:"importances"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Schema returns the ordered feature list the model expects
func (m *Model) Schema() features.Schema {
	return features.Schema{Columns: m.Features}
}

// EvalSet is an optional held-out set used for early stopping
type EvalSet struct {
	X []features.Vector
	Y []float64
}

// TrainReport summarises a training run
type TrainReport struct {
	Rows           int
	Duplicates     int
	Outliers       int
	Iterations     int
	BestIteration  int
	TrainRMSE      float64
	EvalRMSE       float64
	Importances    []Importance
	TrainingTimeMs int64
}

// Importance is the total split gain of one feature
type Importance struct {
	Feature string
	Gain    float64
	Percent float64
}

// Train fits a model on prepared vectors. All vectors must share one schema.
func Train(x []features.Vector, y []float64, eval *EvalSet, cfg Config, logger *zap.Logger) (*Model, *TrainReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if len(x) != len(y) {
		return nil, nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return nil, nil, ErrNoTrainingData
	}

	start := time.Now()
	report := &TrainReport{}

	if cfg.DropDuplicates {
		x, y, report.Duplicates = dropDuplicateVectors(x, y)
	}
	if cfg.OutlierQuantile > 0 && cfg.OutlierQuantile < 1 {
		x, y, report.Outliers = dropOutliers(x, y, cfg.OutlierQuantile)
	}
	report.Rows = len(x)
	if len(x) == 0 {
		return nil, nil, ErrNoTrainingData
	}

	columns := x[0].Columns
	for i := range x {
		if !sameColumns(x[i].Columns, columns) {
			return nil, nil, fmt.Errorf("row %d: %w", i, ErrSchemaMismatch)
		}
	}

	m := &Model{
		Type:         ModelType,
		Version:      "1.0.0",
		Features:     append([]string(nil), columns...),
		BaseScore:    stat.Mean(y, nil),
		LearningRate: cfg.LearningRate,
		TrainedAt:    time.Now().UTC(),
	}
	m.fitEncoders(x, y, cfg)

	xTrain := m.encode(x)
	var xEval [][]float64
	if eval != nil && len(eval.X) > 0 {
		if len(eval.X) != len(eval.Y) {
			return nil, nil, fmt.Errorf("eval set: %w", ErrLengthMismatch)
		}
		for i := range eval.X {
			if !sameColumns(eval.X[i].Columns, columns) {
				return nil, nil, fmt.Errorf("eval row %d: %w", i, ErrSchemaMismatch)
			}
		}
		xEval = m.encode(eval.X)
	}

	predTrain := make([]float64, len(y))
	for i := range predTrain {
		predTrain[i] = m.BaseScore
	}
	var predEval []float64
	if xEval != nil {
		predEval = make([]float64, len(xEval))
		for i := range predEval {
			predEval[i] = m.BaseScore
		}
	}

	tb := &treeBuilder{
		binning:   newBinning(xTrain, len(columns), cfg.MaxBins),
		residuals: make([]float64, len(y)),
		cfg:       cfg,
		gains:     make([]float64, len(columns)),
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	bestEval := math.Inf(1)
	bestIter := 0
	var bestGains []float64
	all := make([]int, len(y))
	for i := range all {
		all[i] = i
	}

	for iter := 0; iter < cfg.Iterations; iter++ {
		for i := range y {
			tb.residuals[i] = y[i] - predTrain[i]
		}

		samples := all
		if cfg.Subsample < 1 {
			samples = samples[:0:0]
			for _, i := range all {
				if rng.Float64() < cfg.Subsample {
					samples = append(samples, i)
				}
			}
			if len(samples) == 0 {
				samples = all
			}
		}

		tree := tb.build(samples)
		scaleLeaves(&tree, cfg.LearningRate)
		m.Trees = append(m.Trees, tree)

		for i, row := range xTrain {
			predTrain[i] += tree.predict(row)
		}

		if xEval == nil {
			continue
		}
		for i, row := range xEval {
			predEval[i] += tree.predict(row)
		}
		score := RMSE(eval.Y, predEval)
		if score < bestEval {
			bestEval = score
			bestIter = iter + 1
			bestGains = append(bestGains[:0], tb.gains...)
		} else if cfg.EarlyStoppingRounds > 0 && iter+1-bestIter >= cfg.EarlyStoppingRounds {
			logger.Info("early stopping",
				zap.Int("iteration", iter+1),
				zap.Int("best_iteration", bestIter),
				zap.Float64("best_eval_rmse", bestEval),
			)
			break
		}
		if (iter+1)%100 == 0 {
			logger.Debug("boosting progress", zap.Int("iteration", iter+1), zap.Float64("eval_rmse", score))
		}
	}

	gains := tb.gains
	if xEval != nil && bestIter > 0 {
		m.Trees = m.Trees[:bestIter]
		gains = bestGains
		report.EvalRMSE = bestEval
	}
	report.Iterations = len(m.Trees)
	report.BestIteration = bestIter

	m.Importances = gains
	report.Importances = m.FeatureImportances()

	trainPred, err := m.Predict(x)
	if err != nil {
		return nil, nil, err
	}
	report.TrainRMSE = RMSE(y, trainPred)
	report.TrainingTimeMs = time.Since(start).Milliseconds()

	logger.Info("model trained",
		zap.Int("rows", report.Rows),
		zap.Int("trees", report.Iterations),
		zap.Float64("train_rmse", report.TrainRMSE),
		zap.Float64("eval_rmse", report.EvalRMSE),
		zap.Int64("training_time_ms", report.TrainingTimeMs),
	)

	return m, report, nil
}

// Predict scores prepared vectors. It is safe for concurrent use.
func (m *Model) Predict(vectors []features.Vector) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, ErrUntrainedModel
	}
	for i := range vectors {
		if !sameColumns(vectors[i].Columns, m.Features) {
			return nil, fmt.Errorf("vector %d: %w", i, ErrSchemaMismatch)
		}
	}

	rows := m.encode(vectors)
	out := make([]float64, len(rows))
	for i, row := range rows {
		score := m.BaseScore
		for t := range m.Trees {
			score += m.Trees[t].predict(row)
		}
		out[i] = score
	}
	return out, nil
}

// FeatureImportances returns gain-based importances, highest first
func (m *Model) FeatureImportances() []Importance {
	total := floats.Sum(m.Importances)
	out := make([]Importance, len(m.Features))
	for i, name := range m.Features {
		imp := Importance{Feature: name}
		if i < len(m.Importances) {
			imp.Gain = m.Importances[i]
		}
		if total > 0 {
			imp.Percent = imp.Gain / total * 100
		}
		out[i] = imp
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Gain > out[j].Gain })
	return out
}

func (m *Model) fitEncoders(x []features.Vector, y []float64, cfg Config) {
	rare := make(map[string]bool, len(cfg.RareColumns))
	for _, c := range cfg.RareColumns {
		rare[c] = true
	}

	m.Encoders = nil
	for idx, col := range m.Features {
		if !x[0].Values[idx].IsCat {
			continue
		}
		values := make([]string, len(x))
		for i := range x {
			values[i] = x[i].Values[idx].Cat
		}
		m.Encoders = append(m.Encoders, fitEncoder(col, idx, values, y, m.BaseScore, cfg.Smoothing, rare[col], cfg.MinCategoryCount))
	}
}

func (m *Model) encode(vectors []features.Vector) [][]float64 {
	encoders := make(map[int]*CategoryEncoder, len(m.Encoders))
	for _, e := range m.Encoders {
		encoders[e.Index] = e
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v.Values))
		for j, val := range v.Values {
			if enc, ok := encoders[j]; ok {
				row[j] = enc.Encode(val.Cat)
			} else if val.IsCat {
				row[j] = m.BaseScore
			} else {
				row[j] = val.Num
			}
		}
		out[i] = row
	}
	return out
}

func scaleLeaves(t *Tree, rate float64) {
	for i := range t.Nodes {
		if t.Nodes[i].Leaf {
			t.Nodes[i].Value *= rate
		}
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dropDuplicateVectors(x []features.Vector, y []float64) ([]features.Vector, []float64, int) {
	seen := make(map[string]struct{}, len(x))
	outX := make([]features.Vector, 0, len(x))
	outY := make([]float64, 0, len(y))
	for i, v := range x {
		key := strings.Join(v.Strings(), "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		outX = append(outX, v)
		outY = append(outY, y[i])
	}
	return outX, outY, len(x) - len(outX)
}

// dropOutliers removes rows whose target exceeds the q-th quantile
func dropOutliers(x []features.Vector, y []float64, q float64) ([]features.Vector, []float64, int) {
	sorted := append([]float64(nil), y...)
	sort.Float64s(sorted)
	limit := stat.Quantile(q, stat.LinInterp, sorted, nil)

	outX := make([]features.Vector, 0, len(x))
	outY := make([]float64, 0, len(y))
	for i := range x {
		if y[i] <= limit {
			outX = append(outX, x[i])
			outY = append(outY, y[i])
		}
	}
	return outX, outY, len(x) - len(outX)
}

// RMSE is the root mean squared error
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// QualityLabel grades a test RMSE
func QualityLabel(rmse float64) string {
	switch {
	case rmse < 0.2:
		return "excellent"
	case rmse < 0.3:
		return "good"
	case rmse < 0.4:
		return "acceptable"
	default:
		return "needs improvement"
	}
}
