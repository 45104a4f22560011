package dataset

import (
	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/models"
)

// Wheel columns written ahead of the repair aggregate columns
const (
	ColWheelID          = "wheel_id"
	ColLocomotiveSeries = "locomotive_series"
	ColLocomotiveNumber = "locomotive_number"
	ColDepo             = "depo"
	ColSteelNum         = "steel_num"
	ColMileageStart     = "mileage_start"
	ColWearIntensity    = "wear_intensity"
)

var wheelColumns = []string{
	ColWheelID,
	ColLocomotiveSeries,
	ColLocomotiveNumber,
	ColDepo,
	ColSteelNum,
	ColMileageStart,
	ColWearIntensity,
}

// JoinReport holds the data-quality counters gathered while joining
type JoinReport struct {
	Wheels              int
	DuplicateWheelIDs   int
	DuplicateRepairKeys int
	WithoutRepairs      int
	WithTurnings        int
	Locomotives         int
	Series              int
	Depots              int
	SteelBatches        int
}

// BuildWearDataset left-joins wheels with the repair aggregates on
// (series, number). Every wheel yields exactly one row; wheels without
// repair history get zero counters and empty repair dates.
func BuildWearDataset(wheels []models.WheelRecord, repairs []models.RepairAggregate, logger *zap.Logger) (*Table, JoinReport) {
	if logger == nil {
		logger = zap.NewNop()
	}

	report := JoinReport{Wheels: len(wheels)}

	seenKeys := make(map[models.LocomotiveKey]bool, len(repairs))
	for _, agg := range repairs {
		if seenKeys[agg.Key()] {
			report.DuplicateRepairKeys++
		}
		seenKeys[agg.Key()] = true
	}
	index := NewRepairIndex(repairs)

	seenWheels := make(map[string]bool, len(wheels))
	locomotives := make(map[models.LocomotiveKey]bool)
	series := make(map[string]bool)
	depots := make(map[string]bool)
	steel := make(map[string]bool)

	t := NewTable(append(append([]string(nil), wheelColumns...), RepairColumns...)...)
	t.Rows = make([][]string, 0, len(wheels))

	for _, w := range wheels {
		if w.WheelID != "" {
			if seenWheels[w.WheelID] {
				report.DuplicateWheelIDs++
			}
			seenWheels[w.WheelID] = true
		}
		locomotives[w.Key()] = true
		series[w.LocomotiveSeries] = true
		depots[w.Depo] = true
		if w.SteelNum != "" {
			steel[w.SteelNum] = true
		}

		agg, found := index.Lookup(w.Key())
		if !found {
			report.WithoutRepairs++
		}
		if agg.TurningCount > 0 {
			report.WithTurnings++
		}

		target := ""
		if w.HasTarget {
			target = FormatFloat(w.WearIntensity)
		}

		t.Rows = append(t.Rows, repairRow(agg,
			w.WheelID,
			w.LocomotiveSeries,
			w.LocomotiveNumber,
			w.Depo,
			w.SteelNum,
			FormatFloat(w.MileageStart),
			target,
		))
	}

	report.Locomotives = len(locomotives)
	report.Series = len(series)
	report.Depots = len(depots)
	report.SteelBatches = len(steel)

	if report.DuplicateWheelIDs > 0 {
		logger.Warn("duplicate wheel_id values in wear data", zap.Int("count", report.DuplicateWheelIDs))
	}
	if report.DuplicateRepairKeys > 0 {
		logger.Warn("duplicate locomotives in repair aggregates", zap.Int("count", report.DuplicateRepairKeys))
	}
	logger.Info("wear dataset built",
		zap.Int("rows", t.Len()),
		zap.Int("without_repairs", report.WithoutRepairs),
		zap.Int("with_turnings", report.WithTurnings),
		zap.Int("locomotives", report.Locomotives),
		zap.Int("series", report.Series),
		zap.Int("depots", report.Depots),
		zap.Int("steel_batches", report.SteelBatches),
	)

	return t, report
}
