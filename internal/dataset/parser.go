package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/models"
)

// Source file names expected in a raw data directory
const (
	WearFile         = "wear_data_train.csv"
	ServiceDatesFile = "service_dates.csv"
	StationInfoFile  = "station_info.csv"
	DisplacementFile = "locomotives_displacement.csv"
)

// Parser reads the raw CSV sources. Malformed rows are logged and skipped.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser; a nil logger disables warnings
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// ParseWheels parses wear_data_train.csv
func (p *Parser) ParseWheels(filePath string) ([]models.WheelRecord, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.parseWheelsFromReader(file)
}

func (p *Parser) parseWheelsFromReader(reader io.Reader) ([]models.WheelRecord, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	if err := requireColumns(colMap, "locomotive_series", "locomotive_number", "mileage_start"); err != nil {
		return nil, err
	}

	var wheels []models.WheelRecord
	line := 1

	for {
		record, err := csvReader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed wheel row", zap.Int("line", line), zap.Error(err))
			continue
		}

		mileage, err := parseOptionalFloat(getField(record, colMap, "mileage_start"))
		if err != nil {
			p.logger.Warn("invalid mileage_start", zap.Int("line", line), zap.Error(err))
			continue
		}

		wheel := models.WheelRecord{
			WheelID:          getField(record, colMap, "wheel_id"),
			LocomotiveSeries: getField(record, colMap, "locomotive_series"),
			LocomotiveNumber: models.CanonicalNumber(getField(record, colMap, "locomotive_number")),
			Depo:             getField(record, colMap, "depo"),
			SteelNum:         getField(record, colMap, "steel_num"),
			MileageStart:     mileage,
		}

		if target := getField(record, colMap, "wear_intensity"); target != "" {
			wear, err := strconv.ParseFloat(target, 64)
			if err != nil {
				p.logger.Warn("invalid wear_intensity", zap.Int("line", line), zap.String("wheel_id", wheel.WheelID))
				continue
			}
			wheel.WearIntensity = wear
			wheel.HasTarget = true
		}

		wheels = append(wheels, wheel)
	}

	return wheels, nil
}

// ParseServiceEvents parses service_dates.csv
func (p *Parser) ParseServiceEvents(filePath string) ([]models.ServiceEvent, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.parseServiceEventsFromReader(file)
}

func (p *Parser) parseServiceEventsFromReader(reader io.Reader) ([]models.ServiceEvent, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	if err := requireColumns(colMap, "locomotive_series", "locomotive_number", "service_type"); err != nil {
		return nil, err
	}

	var events []models.ServiceEvent
	line := 1

	for {
		record, err := csvReader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed service row", zap.Int("line", line), zap.Error(err))
			continue
		}

		series := getField(record, colMap, "locomotive_series")
		number := getField(record, colMap, "locomotive_number")
		if series == "" || number == "" {
			continue
		}

		events = append(events, models.ServiceEvent{
			LocomotiveSeries: series,
			LocomotiveNumber: models.CanonicalNumber(number),
			ServiceType:      getField(record, colMap, "service_type"),
			ServiceDate:      getField(record, colMap, "service_date"),
		})
	}

	return events, nil
}

// ParseStations parses station_info.csv
func (p *Parser) ParseStations(filePath string) ([]models.Station, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.parseStationsFromReader(file)
}

func (p *Parser) parseStationsFromReader(reader io.Reader) ([]models.Station, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	if err := requireColumns(colMap, "station"); err != nil {
		return nil, err
	}

	var stations []models.Station
	line := 1

	for {
		record, err := csvReader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed station row", zap.Int("line", line), zap.Error(err))
			continue
		}

		code := getField(record, colMap, "station")
		if code == "" {
			continue
		}

		station := models.Station{
			Code: code,
			Name: getField(record, colMap, "station_name"),
		}

		// Coordinates are nullable; a bad value is treated like a missing one
		if lat, ok := parseCoordinate(getField(record, colMap, "latitude"), -90, 90); ok {
			station.Latitude = &lat
		}
		if lon, ok := parseCoordinate(getField(record, colMap, "longitude"), -180, 180); ok {
			station.Longitude = &lon
		}

		stations = append(stations, station)
	}

	return stations, nil
}

// ParseDisplacements parses locomotives_displacement.csv
func (p *Parser) ParseDisplacements(filePath string) ([]models.Displacement, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.parseDisplacementsFromReader(file)
}

func (p *Parser) parseDisplacementsFromReader(reader io.Reader) ([]models.Displacement, error) {
	csvReader := newCSVReader(reader)

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colMap := makeColumnMap(header)
	if err := requireColumns(colMap, "locomotive_series", "locomotive_number", "station", "datetime"); err != nil {
		return nil, err
	}

	var displacements []models.Displacement
	line := 1

	for {
		record, err := csvReader.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			p.logger.Warn("skipping malformed displacement row", zap.Int("line", line), zap.Error(err))
			continue
		}

		ts, err := ParseDatetime(getField(record, colMap, "datetime"))
		if err != nil {
			p.logger.Warn("invalid datetime", zap.Int("line", line), zap.Error(err))
			continue
		}

		displacements = append(displacements, models.Displacement{
			LocomotiveSeries: getField(record, colMap, "locomotive_series"),
			LocomotiveNumber: models.CanonicalNumber(getField(record, colMap, "locomotive_number")),
			Station:          getField(record, colMap, "station"),
			DepoStation:      getField(record, colMap, "depo_station"),
			Datetime:         ts,
		})
	}

	return displacements, nil
}

var datetimeLayouts = []string{
	"2006-01-02T15:04:05.000000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseDatetime accepts the timestamp layouts found in the displacement logs
func ParseDatetime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime format: %s", value)
}

// Helper functions

func newCSVReader(reader io.Reader) *csv.Reader {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1
	return csvReader
}

func makeColumnMap(header []string) map[string]int {
	colMap := make(map[string]int)
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		colMap[strings.TrimSpace(col)] = i
	}
	return colMap
}

func getField(record []string, colMap map[string]int, fieldName string) string {
	if idx, ok := colMap[fieldName]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func requireColumns(colMap map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := colMap[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return nil
}

func parseOptionalFloat(value string) (float64, error) {
	if value == "" || strings.EqualFold(value, "nan") {
		return 0, nil
	}
	return strconv.ParseFloat(value, 64)
}

func parseCoordinate(value string, min, max float64) (float64, bool) {
	if value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v != v || v < min || v > max {
		return 0, false
	}
	return v, true
}
