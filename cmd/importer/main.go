package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/config"
	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/db"
	"github.com/locowear/wheelwear/internal/logging"
	"github.com/locowear/wheelwear/internal/store"
)

func main() {
	dataDir := flag.String("data", "", "Directory with service_dates.csv and station_info.csv (required)")
	skipStations := flag.Bool("skip-stations", false, "Import repair history only")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	if *dataDir == "" {
		fmt.Println("Usage: importer --data=<dir> [--skip-stations]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logging.New(os.Getenv("ENV"), *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Only the database settings are needed here, so skip artifact validation
	cfg, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("Configuration error", zap.Error(err))
	}
	if !cfg.Enabled() {
		logger.Fatal("DB_HOST is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	st := store.New(pool, logger)
	if err := st.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to prepare schema", zap.Error(err))
	}

	logID, err := st.CreateImportLog(ctx, *dataDir)
	if err != nil {
		logger.Fatal("Failed to create import log", zap.Error(err))
	}

	message, err := runImport(ctx, st, *dataDir, *skipStations, logger)
	if err != nil {
		if uerr := st.UpdateImportLog(ctx, logID, store.StatusFailed, err.Error()); uerr != nil {
			logger.Error("Failed to update import log", zap.Error(uerr))
		}
		logger.Fatal("Import failed", zap.Error(err))
	}

	if err := st.UpdateImportLog(ctx, logID, store.StatusSuccess, message); err != nil {
		logger.Error("Failed to update import log", zap.Error(err))
	}
	logger.Info("Import completed successfully", zap.String("summary", message))
}

func runImport(ctx context.Context, st *store.Store, dataDir string, skipStations bool, logger *zap.Logger) (string, error) {
	startTime := time.Now()
	parser := dataset.NewParser(logger)

	logger.Info("Step 1/4: Parsing service history...")
	events, err := parser.ParseServiceEvents(filepath.Join(dataDir, dataset.ServiceDatesFile))
	if err != nil {
		return "", fmt.Errorf("failed to parse service dates: %w", err)
	}

	logger.Info("Step 2/4: Aggregating repairs...", zap.Int("events", len(events)))
	aggs := dataset.AggregateRepairs(events)
	if mismatches := dataset.CheckRepairSums(aggs); len(mismatches) > 0 {
		logger.Warn("repair counters do not add up", zap.Int("locomotives", len(mismatches)))
	}

	logger.Info("Step 3/4: Importing repair aggregates...")
	if err := st.SaveRepairAggregates(ctx, aggs); err != nil {
		return "", err
	}

	stationCount := 0
	if skipStations {
		logger.Info("Step 4/4: Skipping stations (--skip-stations)")
	} else {
		logger.Info("Step 4/4: Importing stations...")
		stations, err := parser.ParseStations(filepath.Join(dataDir, dataset.StationInfoFile))
		if err != nil {
			return "", fmt.Errorf("failed to parse stations: %w", err)
		}
		if err := st.SaveStations(ctx, stations); err != nil {
			return "", err
		}
		stationCount = len(stations)
	}

	logger.Info("Import finished", zap.Duration("duration", time.Since(startTime)))
	return fmt.Sprintf("Imported %d repair aggregates from %d events, %d stations", len(aggs), len(events), stationCount), nil
}
