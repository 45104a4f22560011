package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locowear/wheelwear/internal/models"
)

func TestBuildWearDataset(t *testing.T) {
	wheels := []models.WheelRecord{
		{WheelID: "w1", LocomotiveSeries: "2ЭС6", LocomotiveNumber: "1", Depo: "ТЧЭ-5", SteelNum: "101", MileageStart: 1000, WearIntensity: 0.3, HasTarget: true},
		{WheelID: "w2", LocomotiveSeries: "2ЭС6", LocomotiveNumber: "2", Depo: "ТЧЭ-5", MileageStart: 2000, WearIntensity: 0.4, HasTarget: true},
		{WheelID: "w2", LocomotiveSeries: "2ЭС6", LocomotiveNumber: "1", Depo: "ТЧЭ-1", SteelNum: "102", MileageStart: 3000},
	}
	repairs := AggregateRepairs([]models.ServiceEvent{
		event("2ЭС6", "1", "1", "2023-01-01"),
		event("2ЭС6", "1", "обточка", "2023-02-01"),
	})

	table, report := BuildWearDataset(wheels, repairs, nil)
	require.Equal(t, len(wheels), table.Len())

	assert.Equal(t, "2", table.Value(0, ColTotalRepairs))
	assert.Equal(t, "1", table.Value(0, ColTurningCount))
	assert.Equal(t, "2023-01-01", table.Value(0, ColFirstRepairDate))
	assert.Equal(t, "0.3", table.Value(0, ColWearIntensity))

	for _, col := range RepairNumericColumns {
		assert.Equal(t, "0", table.Value(1, col), col)
	}
	assert.Empty(t, table.Value(1, ColFirstRepairDate))
	assert.Empty(t, table.Value(2, ColWearIntensity))

	assert.Equal(t, 3, report.Wheels)
	assert.Equal(t, 1, report.DuplicateWheelIDs)
	assert.Equal(t, 1, report.WithoutRepairs)
	assert.Equal(t, 2, report.WithTurnings)
	assert.Equal(t, 2, report.Locomotives)
	assert.Equal(t, 2, report.Depots)
	assert.Equal(t, 2, report.SteelBatches)
}

func TestBuildWearDatasetEmptyRepairs(t *testing.T) {
	wheels := []models.WheelRecord{{WheelID: "w1", LocomotiveSeries: "A", LocomotiveNumber: "1"}}

	table, report := BuildWearDataset(wheels, nil, nil)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, 1, report.WithoutRepairs)
	assert.Equal(t, "0", table.Value(0, ColUniqueServiceDates))
}
