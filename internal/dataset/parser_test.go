package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWheels(t *testing.T) {
	input := "\ufeffwheel_id,locomotive_series,locomotive_number,depo,steel_num,mileage_start,wear_intensity\n" +
		"w1,2ЭС6,1234.0,ТЧЭ-5,101.0,50000,0.31\n" +
		"w2,2ЭС6,1235,ТЧЭ-5,,nan,\n" +
		"w3,ВЛ80С,77,ТЧЭ-1,12,abc,0.2\n"

	wheels, err := NewParser(nil).parseWheelsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, wheels, 2)

	assert.Equal(t, "1234", wheels[0].LocomotiveNumber)
	assert.Equal(t, "101.0", wheels[0].SteelNum)
	assert.Equal(t, 50000.0, wheels[0].MileageStart)
	assert.True(t, wheels[0].HasTarget)
	assert.InDelta(t, 0.31, wheels[0].WearIntensity, 1e-9)

	assert.Equal(t, 0.0, wheels[1].MileageStart)
	assert.False(t, wheels[1].HasTarget)
}

func TestParseWheelsMissingColumn(t *testing.T) {
	_, err := NewParser(nil).parseWheelsFromReader(strings.NewReader("wheel_id,depo\nw1,x\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseStations(t *testing.T) {
	input := "station,station_name,latitude,longitude\n" +
		"100,Москва,55.75,37.62\n" +
		"200,Нигде,,\n" +
		"300,Ошибка,95,37\n"

	stations, err := NewParser(nil).parseStationsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, stations, 3)

	assert.True(t, stations[0].HasCoordinates())
	assert.False(t, stations[1].HasCoordinates())
	assert.Nil(t, stations[2].Latitude)
	require.NotNil(t, stations[2].Longitude)
}

func TestParseDisplacements(t *testing.T) {
	input := "locomotive_series,locomotive_number,station,depo_station,datetime\n" +
		"2ЭС6,1234,100,900,2024-01-01 10:00:00\n" +
		"2ЭС6,1234,200,900,not-a-date\n"

	recs, err := NewParser(nil).parseDisplacementsFromReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), recs[0].Datetime)
	assert.Equal(t, "900", recs[0].DepoStation)
}

func TestParseDatetime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "ISO with T", value: "2024-03-05T08:30:00"},
		{name: "space separated", value: "2024-03-05 08:30:00"},
		{name: "fractional seconds", value: "2024-03-05 08:30:00.123456"},
		{name: "date only", value: "2024-03-05"},
		{name: "empty", value: "", wantErr: true},
		{name: "garbage", value: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDatetime(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
