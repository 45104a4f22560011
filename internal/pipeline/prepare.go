package pipeline

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
)

// PrepareConfig locates the raw inputs and the dataset outputs
type PrepareConfig struct {
	DataDir       string
	Output        string
	RepairsOutput string
}

// PrepareSummary reports what PrepareDataset produced
type PrepareSummary struct {
	Events     int
	Aggregates int
	Mismatches int
	Rows       int
	Join       dataset.JoinReport
	Duration   time.Duration
}

// PrepareDataset aggregates repair history and joins it onto the wheels
func PrepareDataset(cfg PrepareConfig, logger *zap.Logger) (*PrepareSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	parser := dataset.NewParser(logger)
	summary := &PrepareSummary{}

	logger.Info("Step 1/4: Parsing service history...")
	events, err := parser.ParseServiceEvents(filepath.Join(cfg.DataDir, dataset.ServiceDatesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service dates: %w", err)
	}
	summary.Events = len(events)

	logger.Info("Step 2/4: Aggregating repairs per locomotive...")
	aggs := dataset.AggregateRepairs(events)
	summary.Aggregates = len(aggs)
	if mismatches := dataset.CheckRepairSums(aggs); len(mismatches) > 0 {
		summary.Mismatches = len(mismatches)
		logger.Warn("repair counters do not add up",
			zap.Int("locomotives", len(mismatches)),
			zap.String("first_series", mismatches[0].Key.Series),
			zap.String("first_number", mismatches[0].Key.Number),
		)
	}
	if cfg.RepairsOutput != "" {
		if err := dataset.WriteTable(cfg.RepairsOutput, dataset.RepairTable(aggs)); err != nil {
			return nil, fmt.Errorf("failed to write repair aggregates: %w", err)
		}
	}

	logger.Info("Step 3/4: Joining wheels with repair history...")
	wheels, err := parser.ParseWheels(filepath.Join(cfg.DataDir, dataset.WearFile))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wheels: %w", err)
	}
	table, report := dataset.BuildWearDataset(wheels, aggs, logger)
	summary.Join = report
	summary.Rows = table.Len()

	logger.Info("Step 4/4: Writing dataset...", zap.String("path", cfg.Output))
	if err := dataset.WriteTable(cfg.Output, table); err != nil {
		return nil, fmt.Errorf("failed to write dataset: %w", err)
	}

	summary.Duration = time.Since(start)
	logger.Info("Dataset prepared",
		zap.Int("rows", summary.Rows),
		zap.Int("locomotives", summary.Aggregates),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
