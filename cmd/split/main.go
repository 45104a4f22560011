package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/logging"
	"github.com/locowear/wheelwear/internal/pipeline"
)

func main() {
	defaults := dataset.DefaultSplitConfig()

	input := flag.String("in", "data/processed/train_dataset.csv", "Prepared dataset")
	outDir := flag.String("out", "data/splits", "Output directory")
	target := flag.String("target", dataset.ColWearIntensity, "Target column")
	testSize := flag.Float64("test-size", defaults.TestFraction, "Held-out fraction")
	seed := flag.Int64("seed", defaults.Seed, "Shuffle seed")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.New(os.Getenv("ENV"), *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	res, err := pipeline.SplitDataset(pipeline.SplitConfig{
		Input:       *input,
		OutDir:      *outDir,
		Target:      *target,
		SplitConfig: dataset.SplitConfig{TestFraction: *testSize, Seed: *seed},
	}, logger)
	if err != nil {
		logger.Fatal("Split failed", zap.Error(err))
	}

	trainMean, trainStd := res.TargetStats(res.Train)
	testMean, testStd := res.TargetStats(res.Test)
	fmt.Printf("Train: %d rows (mean %.4f, std %.4f)\n", res.Train.Len(), trainMean, trainStd)
	fmt.Printf("Test:  %d rows (mean %.4f, std %.4f)\n", res.Test.Len(), testMean, testStd)
	fmt.Printf("Duplicates dropped: %d\n", res.Duplicates)
}
