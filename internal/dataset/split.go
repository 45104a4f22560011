package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Output file names inside a splits directory
const (
	TrainFile  = "train.csv"
	TestFile   = "test.csv"
	XTrainFile = "X_train.csv"
	XTestFile  = "X_test.csv"
	YTrainFile = "y_train.csv"
	YTestFile  = "y_test.csv"
)

// SplitConfig controls the train/test split
type SplitConfig struct {
	TestFraction float64
	Seed         int64
}

// DefaultSplitConfig holds out 20% with seed 42
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TestFraction: 0.2, Seed: 42}
}

// SplitResult holds both partitions. Index slices point into the
// de-duplicated input and keep features and target aligned.
type SplitResult struct {
	Target     string
	Train      *Table
	Test       *Table
	TrainIndex []int
	TestIndex  []int
	Duplicates int
}

// Split drops duplicate rows and partitions the rest with a seeded shuffle.
// The same input and config always produce the same partitions.
func Split(t *Table, target string, cfg SplitConfig) (*SplitResult, error) {
	if !t.HasColumn(target) {
		return nil, fmt.Errorf("%w: %s", ErrMissingTarget, target)
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("test fraction must be in (0, 1), got %v", cfg.TestFraction)
	}

	deduped, duplicates := DropDuplicateRows(t)
	n := deduped.Len()
	if n == 0 {
		return nil, ErrEmptyDataset
	}

	nTest := int(math.Ceil(float64(n) * cfg.TestFraction))
	if nTest >= n && n > 1 {
		nTest = n - 1
	}

	perm := rand.New(rand.NewSource(cfg.Seed)).Perm(n)
	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)

	return &SplitResult{
		Target:     target,
		Train:      deduped.Select(trainIdx),
		Test:       deduped.Select(testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
		Duplicates: duplicates,
	}, nil
}

// DropDuplicateRows keeps the first occurrence of every distinct row
func DropDuplicateRows(t *Table) (*Table, int) {
	seen := make(map[string]struct{}, t.Len())
	out := NewTable(t.Columns...)
	dropped := 0
	for _, row := range t.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out, dropped
}

// Features returns a partition without the target column
func (r *SplitResult) Features(part *Table) *Table {
	return part.Drop(r.Target)
}

// Targets returns a single-column table with the target
func (r *SplitResult) Targets(part *Table) *Table {
	out, _ := part.Project(r.Target)
	return out
}

// TargetStats returns mean and standard deviation of the target in a partition.
// Unparseable values are skipped.
func (r *SplitResult) TargetStats(part *Table) (mean, std float64) {
	values := make([]float64, 0, part.Len())
	for i := range part.Rows {
		v, err := strconv.ParseFloat(part.Value(i, r.Target), 64)
		if err != nil || math.IsNaN(v) {
			continue
		}
		values = append(values, v)
	}
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Write saves all six split files into dir
func (r *SplitResult) Write(dir string) error {
	files := []struct {
		name  string
		table *Table
	}{
		{TrainFile, r.Train},
		{TestFile, r.Test},
		{XTrainFile, r.Features(r.Train)},
		{XTestFile, r.Features(r.Test)},
		{YTrainFile, r.Targets(r.Train)},
		{YTestFile, r.Targets(r.Test)},
	}

	for _, f := range files {
		if err := WriteTable(filepath.Join(dir, f.name), f.table); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	return nil
}
