package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/routefeat"
)

// Enriched output file names
const (
	RouteFeaturesFile  = "locomotive_route_features.csv"
	XTrainEnrichedFile = "X_train_enriched.csv"
	XTestEnrichedFile  = "X_test_enriched.csv"
)

// RouteConfig locates the displacement inputs and the split files to enrich
type RouteConfig struct {
	DataDir   string
	SplitsDir string
	OutDir    string
	JoinMode  routefeat.JoinMode
}

// RouteSummary reports what BuildRouteFeatures produced
type RouteSummary struct {
	Build routefeat.Report
	Joins map[string]routefeat.JoinStats
}

// BuildRouteFeatures derives per-locomotive route features and joins them
// onto X_train/X_test when those exist in SplitsDir
func BuildRouteFeatures(cfg RouteConfig, logger *zap.Logger) (*RouteSummary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JoinMode == "" {
		cfg.JoinMode = routefeat.JoinSeriesNumber
	}
	parser := dataset.NewParser(logger)

	logger.Info("Step 1/4: Parsing stations...")
	stations, err := parser.ParseStations(filepath.Join(cfg.DataDir, dataset.StationInfoFile))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stations: %w", err)
	}

	logger.Info("Step 2/4: Parsing displacement log...")
	recs, err := parser.ParseDisplacements(filepath.Join(cfg.DataDir, dataset.DisplacementFile))
	if err != nil {
		return nil, fmt.Errorf("failed to parse displacements: %w", err)
	}

	logger.Info("Step 3/4: Computing route features...", zap.Int("records", len(recs)))
	feats, report := routefeat.NewBuilder(stations, logger).Build(recs)
	summary := &RouteSummary{Build: report, Joins: make(map[string]routefeat.JoinStats)}

	if err := dataset.WriteTable(filepath.Join(cfg.OutDir, RouteFeaturesFile), routefeat.Table(feats)); err != nil {
		return nil, fmt.Errorf("failed to write route features: %w", err)
	}

	logger.Info("Step 4/4: Joining route features onto splits...", zap.String("mode", string(cfg.JoinMode)))
	targets := []struct{ in, out string }{
		{dataset.XTrainFile, XTrainEnrichedFile},
		{dataset.XTestFile, XTestEnrichedFile},
	}
	for _, target := range targets {
		inPath := filepath.Join(cfg.SplitsDir, target.in)
		table, err := dataset.ReadTable(inPath)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("split file not found, skipping", zap.String("path", inPath))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", inPath, err)
		}

		joined, stats, err := routefeat.Join(table, feats, cfg.JoinMode, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to join %s: %w", target.in, err)
		}
		summary.Joins[target.in] = stats

		if err := dataset.WriteTable(filepath.Join(cfg.OutDir, target.out), joined); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", target.out, err)
		}
	}

	return summary, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
