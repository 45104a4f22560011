package routefeat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/models"
)

func joinFixture() (*dataset.Table, []models.RouteFeatures) {
	t := dataset.NewTable("locomotive_series", "locomotive_number", "mileage_start")
	t.Append([]string{"2ЭС6", "1", "100"})
	t.Append([]string{"2ЭС6", "2.0", "200"})
	t.Append([]string{"ВЛ80С", "7", "300"})

	features := []models.RouteFeatures{
		{LocomotiveSeries: "2ЭС6", LocomotiveNumber: "1", TotalVisits: 10, ClimateZone: models.ClimateNorth, UsageIntensity: models.UsageLow},
		{LocomotiveSeries: "2ЭС6", LocomotiveNumber: "2", TotalVisits: 20, ClimateZone: models.ClimateArctic, UsageIntensity: models.UsageHigh, IsMountainous: true},
	}
	return t, features
}

func TestJoinSeriesNumber(t *testing.T) {
	table, features := joinFixture()

	out, stats, err := Join(table, features, JoinSeriesNumber, nil)
	require.NoError(t, err)

	assert.Equal(t, table.Len(), out.Len())
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Unmatched)

	assert.Equal(t, "10", out.Value(0, "total_visits"))
	assert.Equal(t, "20", out.Value(1, "total_visits"))
	assert.Equal(t, "1", out.Value(1, "is_mountainous"))
	assert.Equal(t, "0", out.Value(2, "total_visits"))
	assert.Equal(t, UnknownLabel, out.Value(2, "climate_zone"))
	assert.Equal(t, UnknownLabel, out.Value(2, "usage_intensity"))
}

func TestJoinSeriesFansOut(t *testing.T) {
	table, features := joinFixture()

	out, stats, err := Join(table, features, JoinSeries, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.RowsBefore)
	assert.Equal(t, 5, stats.RowsAfter)
	assert.Equal(t, 5, out.Len())
}

func TestJoinReplacesExistingRouteColumns(t *testing.T) {
	table, features := joinFixture()
	first, _, err := Join(table, features, JoinSeriesNumber, nil)
	require.NoError(t, err)

	second, _, err := Join(first, features, JoinSeriesNumber, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, first.Rows, second.Rows)
}

func TestJoinMissingColumns(t *testing.T) {
	_, _, err := Join(dataset.NewTable("depo"), nil, JoinSeries, nil)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, _, err = Join(dataset.NewTable("locomotive_series"), nil, JoinSeriesNumber, nil)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}

func TestParseJoinMode(t *testing.T) {
	mode, err := ParseJoinMode("series")
	require.NoError(t, err)
	assert.Equal(t, JoinSeries, mode)

	_, err = ParseJoinMode("number")
	assert.Error(t, err)
}

func TestTable(t *testing.T) {
	_, features := joinFixture()
	table := Table(features)
	assert.Equal(t, 2+len(Columns), len(table.Columns))
	assert.Equal(t, 2, table.Len())
}
