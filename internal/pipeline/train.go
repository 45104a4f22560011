package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/features"
	"github.com/locowear/wheelwear/internal/model"
)

// TrainConfig locates the split files and the artifact directory
type TrainConfig struct {
	XTrain   string
	YTrain   string
	XTest    string
	YTest    string
	ModelDir string
	Version  string
	Model    model.Config
}

// TrainResult is the fitted model plus its evaluation
type TrainResult struct {
	Model        *model.Model
	Report       *model.TrainReport
	TestRMSE     float64
	Quality      string
	ModelPath    string
	FeaturesPath string
}

// DefaultTrainConfig reads splits from dir, preferring route-enriched X files
// from enrichedDir when they exist
func DefaultTrainConfig(splitsDir, enrichedDir, modelDir string) TrainConfig {
	cfg := TrainConfig{
		XTrain:   filepath.Join(splitsDir, dataset.XTrainFile),
		YTrain:   filepath.Join(splitsDir, dataset.YTrainFile),
		XTest:    filepath.Join(splitsDir, dataset.XTestFile),
		YTest:    filepath.Join(splitsDir, dataset.YTestFile),
		ModelDir: modelDir,
		Model:    model.DefaultConfig(),
	}
	if enrichedDir != "" {
		if p := filepath.Join(enrichedDir, XTrainEnrichedFile); fileExists(p) {
			cfg.XTrain = p
		}
		if p := filepath.Join(enrichedDir, XTestEnrichedFile); fileExists(p) {
			cfg.XTest = p
		}
	}
	return cfg
}

// TrainModel fits the regressor, evaluates it on the test split and saves
// model.json and features.json
func TrainModel(cfg TrainConfig, logger *zap.Logger) (*TrainResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("Step 1/4: Loading splits...")
	xTrainTable, err := dataset.ReadTable(cfg.XTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.XTrain, err)
	}
	xTestTable, err := dataset.ReadTable(cfg.XTest)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.XTest, err)
	}
	xTrainTable, yTrain, err := alignTargets(xTrainTable, cfg.YTrain, logger)
	if err != nil {
		return nil, err
	}
	xTestTable, yTest, err := alignTargets(xTestTable, cfg.YTest, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Step 2/4: Preparing features...")
	schema := features.SchemaFromColumns(xTrainTable.Columns)
	xTrain, err := prepareTable(xTrainTable, schema)
	if err != nil {
		return nil, fmt.Errorf("train features: %w", err)
	}
	xTest, err := prepareTable(xTestTable, schema)
	if err != nil {
		return nil, fmt.Errorf("test features: %w", err)
	}
	logger.Info("features prepared",
		zap.Int("features", schema.Len()),
		zap.Int("categorical", len(schema.CategoricalIndices())),
		zap.Int("train_rows", len(xTrain)),
		zap.Int("test_rows", len(xTest)),
	)

	logger.Info("Step 3/4: Training gradient boosted trees...")
	var eval *model.EvalSet
	if len(xTest) > 0 {
		eval = &model.EvalSet{X: xTest, Y: yTest}
	}
	m, report, err := model.Train(xTrain, yTrain, eval, cfg.Model, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Version != "" {
		m.Version = cfg.Version
	}

	res := &TrainResult{Model: m, Report: report}
	if len(xTest) > 0 {
		preds, err := m.Predict(xTest)
		if err != nil {
			return nil, err
		}
		res.TestRMSE = model.RMSE(yTest, preds)
	} else {
		res.TestRMSE = report.TrainRMSE
	}
	res.Quality = model.QualityLabel(res.TestRMSE)

	logger.Info("Step 4/4: Saving artifacts...", zap.String("dir", cfg.ModelDir))
	res.ModelPath, res.FeaturesPath, err = model.Save(cfg.ModelDir, m)
	if err != nil {
		return nil, err
	}

	logger.Info("Training complete",
		zap.Float64("train_rmse", report.TrainRMSE),
		zap.Float64("test_rmse", res.TestRMSE),
		zap.String("quality", res.Quality),
		zap.Int("trees", len(m.Trees)),
	)
	return res, nil
}

func prepareTable(t *dataset.Table, schema features.Schema) ([]features.Vector, error) {
	recs := make([]features.Record, t.Len())
	for i, row := range t.Rows {
		recs[i] = features.RowRecord(t.Columns, row)
	}
	return features.PrepareBatch(recs, schema)
}

// alignTargets reads the first column of a y_*.csv file and drops rows
// without a target from both X and y
func alignTargets(x *dataset.Table, path string, logger *zap.Logger) (*dataset.Table, []float64, error) {
	t, err := dataset.ReadTable(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(t.Columns) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no columns", dataset.ErrMissingTarget, path)
	}
	if t.Len() != x.Len() {
		return nil, nil, fmt.Errorf("%w: %s has %d rows, features have %d", model.ErrLengthMismatch, path, t.Len(), x.Len())
	}

	keep := make([]int, 0, t.Len())
	y := make([]float64, 0, t.Len())
	for i, row := range t.Rows {
		cell := strings.TrimSpace(row[0])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: invalid target %q", path, i+2, row[0])
		}
		keep = append(keep, i)
		y = append(y, v)
	}

	if skipped := t.Len() - len(keep); skipped > 0 {
		logger.Warn("rows without target skipped", zap.String("path", path), zap.Int("count", skipped))
		x = x.Select(keep)
	}
	return x, y, nil
}
