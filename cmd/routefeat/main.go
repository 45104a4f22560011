package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/logging"
	"github.com/locowear/wheelwear/internal/pipeline"
	"github.com/locowear/wheelwear/internal/routefeat"
)

func main() {
	dataDir := flag.String("data", "data", "Directory with station_info.csv and locomotives_displacement.csv")
	splitsDir := flag.String("splits", "data/splits", "Directory with X_train.csv and X_test.csv")
	outDir := flag.String("out", "data/enriched", "Output directory")
	joinKey := flag.String("join-key", string(routefeat.JoinSeriesNumber), "Join key: series or series_number")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	mode, err := routefeat.ParseJoinMode(*joinKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger, err := logging.New(os.Getenv("ENV"), *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	summary, err := pipeline.BuildRouteFeatures(pipeline.RouteConfig{
		DataDir:   *dataDir,
		SplitsDir: *splitsDir,
		OutDir:    *outDir,
		JoinMode:  mode,
	}, logger)
	if err != nil {
		logger.Fatal("Route feature build failed", zap.Error(err))
	}

	fmt.Printf("Coordinate strategy: %s\n", summary.Build.Strategy)
	fmt.Printf("Records resolved:    %d/%d\n", summary.Build.Resolved, summary.Build.Records)
	fmt.Printf("Locomotives:         %d (skipped %d)\n", summary.Build.Locomotives, summary.Build.Skipped)
	for name, stats := range summary.Joins {
		fmt.Printf("%s: %d -> %d rows, %d matched\n", name, stats.RowsBefore, stats.RowsAfter, stats.Matched)
	}
}
