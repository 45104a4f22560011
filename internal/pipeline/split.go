package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
)

// SplitConfig names the dataset, the output directory and the split parameters
type SplitConfig struct {
	Input  string
	OutDir string
	Target string
	dataset.SplitConfig
}

// SplitDataset reads a prepared dataset and writes the six split files
func SplitDataset(cfg SplitConfig, logger *zap.Logger) (*dataset.SplitResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Target == "" {
		cfg.Target = dataset.ColWearIntensity
	}

	logger.Info("Step 1/3: Reading dataset...", zap.String("path", cfg.Input))
	table, err := dataset.ReadTable(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	logger.Info("Step 2/3: Splitting...",
		zap.Float64("test_fraction", cfg.TestFraction),
		zap.Int64("seed", cfg.Seed),
	)
	res, err := dataset.Split(table, cfg.Target, cfg.SplitConfig)
	if err != nil {
		return nil, err
	}
	if res.Duplicates > 0 {
		logger.Warn("dropped duplicate rows", zap.Int("count", res.Duplicates))
	}

	trainMean, trainStd := res.TargetStats(res.Train)
	testMean, testStd := res.TargetStats(res.Test)
	logger.Info("target distribution",
		zap.Int("train_rows", res.Train.Len()),
		zap.Int("test_rows", res.Test.Len()),
		zap.Float64("train_mean", trainMean),
		zap.Float64("train_std", trainStd),
		zap.Float64("test_mean", testMean),
		zap.Float64("test_std", testStd),
	)

	logger.Info("Step 3/3: Writing split files...", zap.String("dir", cfg.OutDir))
	if err := res.Write(cfg.OutDir); err != nil {
		return nil, err
	}
	return res, nil
}
