package routefeat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locowear/wheelwear/internal/models"
)

func ptr(v float64) *float64 { return &v }

func testStations() []models.Station {
	return []models.Station{
		{Code: "100", Name: "Москва", Latitude: ptr(55.75), Longitude: ptr(37.62)},
		{Code: "200", Name: "Санкт-Петербург", Latitude: ptr(59.93), Longitude: ptr(30.31)},
		{Code: "300", Name: "Без координат"},
	}
}

func TestGetStrategy(t *testing.T) {
	idx := NewStationIndex(testStations())

	tests := []struct {
		name     string
		expected string
	}{
		{name: "station_code", expected: "station_code"},
		{name: "numeric_code", expected: "numeric_code"},
		{name: "depo_station", expected: "depo_station"},
		{name: "zero_coordinates", expected: "zero_coordinates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := GetStrategy(tt.name, idx)
			require.NotNil(t, strategy)
			assert.Equal(t, tt.expected, strategy.Name())
		})
	}

	assert.Nil(t, GetStrategy("unknown", idx))
}

func TestGetAllStrategiesOrder(t *testing.T) {
	strategies := GetAllStrategies(NewStationIndex(nil))

	var names []string
	for _, s := range strategies {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"station_code", "numeric_code", "depo_station", "zero_coordinates"}, names)
}

func TestStationIndexSkipsMissingCoordinates(t *testing.T) {
	idx := NewStationIndex(testStations())
	assert.Equal(t, 2, idx.Len())
}

func TestResolveFallbackChain(t *testing.T) {
	idx := NewStationIndex(testStations())
	chain := GetAllStrategies(idx)

	tests := []struct {
		name         string
		recs         []models.Displacement
		wantStrategy string
		wantResolved int
	}{
		{
			name: "exact codes",
			recs: []models.Displacement{
				{Station: "100"}, {Station: "200"}, {Station: "999"},
			},
			wantStrategy: "station_code",
			wantResolved: 2,
		},
		{
			name: "float formatted codes",
			recs: []models.Displacement{
				{Station: "100.0"}, {Station: "00200"},
			},
			wantStrategy: "numeric_code",
			wantResolved: 2,
		},
		{
			name: "depot station only",
			recs: []models.Displacement{
				{Station: "X1", DepoStation: "100"}, {Station: "X2", DepoStation: "555"},
			},
			wantStrategy: "depo_station",
			wantResolved: 1,
		},
		{
			name: "nothing resolves",
			recs: []models.Displacement{
				{Station: "X1", DepoStation: "Y1"},
			},
			wantStrategy: "zero_coordinates",
			wantResolved: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixes, name := Resolve(tt.recs, chain)
			assert.Equal(t, tt.wantStrategy, name)
			assert.Len(t, fixes, tt.wantResolved)
		})
	}
}

func TestResolveEmptyChain(t *testing.T) {
	fixes, name := Resolve([]models.Displacement{{Station: "1"}}, nil)
	assert.Empty(t, fixes)
	assert.Empty(t, name)
}
