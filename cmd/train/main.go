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
	splitsDir := flag.String("splits", "data/splits", "Directory with the split files")
	enrichedDir := flag.String("enriched", "data/enriched", "Directory with route-enriched X files, used when present")
	modelDir := flag.String("out", "models", "Artifact directory")
	version := flag.String("version", "1.0.0", "Model version recorded in model.json")
	iterations := flag.Int("iterations", 0, "Boosting iterations (0 keeps the default)")
	depth := flag.Int("depth", 0, "Tree depth (0 keeps the default)")
	learningRate := flag.Float64("learning-rate", 0, "Learning rate (0 keeps the default)")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.New(os.Getenv("ENV"), *logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := pipeline.DefaultTrainConfig(*splitsDir, *enrichedDir, *modelDir)
	cfg.Version = *version
	if *iterations > 0 {
		cfg.Model.Iterations = *iterations
	}
	if *depth > 0 {
		cfg.Model.Depth = *depth
	}
	if *learningRate > 0 {
		cfg.Model.LearningRate = *learningRate
	}

	res, err := pipeline.TrainModel(cfg, logger)
	if err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}

	fmt.Printf("Train RMSE: %.4f\n", res.Report.TrainRMSE)
	fmt.Printf("Test RMSE:  %.4f (%s)\n", res.TestRMSE, res.Quality)
	fmt.Printf("Trees:      %d (best iteration %d)\n", res.Report.Iterations, res.Report.BestIteration)
	fmt.Println("Top features:")
	for i, imp := range res.Report.Importances {
		if i == 10 {
			break
		}
		fmt.Printf("  %2d. %-24s %6.2f%%\n", i+1, imp.Feature, imp.Percent)
	}
	fmt.Printf("Saved %s and %s\n", res.ModelPath, res.FeaturesPath)
}
