package model

import "fmt"

// Config holds the boosting parameters
type Config struct {
	Iterations          int
	LearningRate        float64
	Depth               int
	L2LeafReg           float64
	MinSamplesLeaf      int
	MaxBins             int
	Subsample           float64
	EarlyStoppingRounds int
	Seed                int64

	// Target encoding of categorical columns
	Smoothing        float64
	RareColumns      []string
	MinCategoryCount int

	// Training set cleanup
	DropDuplicates  bool
	OutlierQuantile float64
}

// DefaultConfig mirrors the production training run
func DefaultConfig() Config {
	return Config{
		Iterations:          2000,
		LearningRate:        0.1,
		Depth:               6,
		L2LeafReg:           5,
		MinSamplesLeaf:      1,
		MaxBins:             64,
		Subsample:           1,
		EarlyStoppingRounds: 100,
		Seed:                42,
		Smoothing:           10,
		RareColumns:         []string{"steel_num"},
		MinCategoryCount:    100,
		DropDuplicates:      true,
		OutlierQuantile:     0.99,
	}
}

// Validate checks parameter ranges
func (c Config) Validate() error {
	switch {
	case c.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	case c.LearningRate <= 0 || c.LearningRate > 1:
		return fmt.Errorf("learning rate must be in (0, 1], got %v", c.LearningRate)
	case c.Depth <= 0 || c.Depth > 16:
		return fmt.Errorf("depth must be in [1, 16], got %d", c.Depth)
	case c.L2LeafReg < 0:
		return fmt.Errorf("l2 leaf regularisation must be non-negative, got %v", c.L2LeafReg)
	case c.MaxBins < 2:
		return fmt.Errorf("max bins must be at least 2, got %d", c.MaxBins)
	case c.Subsample <= 0 || c.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", c.Subsample)
	case c.OutlierQuantile < 0 || c.OutlierQuantile > 1:
		return fmt.Errorf("outlier quantile must be in [0, 1], got %v", c.OutlierQuantile)
	}
	return nil
}
