package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/logging"
	"github.com/locowear/wheelwear/internal/pipeline"
)

func main() {
	dataDir := flag.String("data", "data", "Directory with wear_data_train.csv and service_dates.csv")
	output := flag.String("out", "data/processed/train_dataset.csv", "Output dataset path")
	repairsOut := flag.String("repairs-out", "", "Optional path for the per-locomotive repair aggregates")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.New(os.Getenv("ENV"), *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	summary, err := pipeline.PrepareDataset(pipeline.PrepareConfig{
		DataDir:       *dataDir,
		Output:        *output,
		RepairsOutput: *repairsOut,
	}, logger)
	if err != nil {
		logger.Fatal("Dataset preparation failed", zap.Error(err))
	}

	fmt.Printf("Rows:                 %d\n", summary.Rows)
	fmt.Printf("Service events:       %d\n", summary.Events)
	fmt.Printf("Locomotives repaired: %d\n", summary.Aggregates)
	fmt.Printf("Wheels w/o repairs:   %d\n", summary.Join.WithoutRepairs)
	fmt.Printf("Wheels with turnings: %d\n", summary.Join.WithTurnings)
	fmt.Printf("Saved to %s\n", *output)
}
