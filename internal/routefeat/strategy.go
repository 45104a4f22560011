package routefeat

import (
	"math"
	"strconv"
	"strings"

	"github.com/locowear/wheelwear/internal/models"
)

// Coordinate is a resolved position in degrees
type Coordinate struct {
	Lat float64
	Lon float64
}

// Strategy resolves the position of a displacement record.
// Strategies are tried in order until one resolves at least one record.
type Strategy interface {
	Name() string
	Resolve(rec models.Displacement) (Coordinate, bool)
}

// StationIndex looks up station coordinates by code
type StationIndex struct {
	byCode    map[string]Coordinate
	byNumeric map[int64]Coordinate
}

// NewStationIndex indexes every station that has both coordinates
func NewStationIndex(stations []models.Station) *StationIndex {
	idx := &StationIndex{
		byCode:    make(map[string]Coordinate, len(stations)),
		byNumeric: make(map[int64]Coordinate, len(stations)),
	}
	for _, s := range stations {
		if !s.HasCoordinates() {
			continue
		}
		coord := Coordinate{Lat: *s.Latitude, Lon: *s.Longitude}
		idx.byCode[strings.TrimSpace(s.Code)] = coord
		if n, ok := numericCode(s.Code); ok {
			idx.byNumeric[n] = coord
		}
	}
	return idx
}

// Len returns the number of stations with coordinates
func (idx *StationIndex) Len() int {
	return len(idx.byCode)
}

// numericCode coerces codes such as "00123" or "123.0" to 123
func numericCode(code string) (int64, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(code, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(code, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// StationCodeStrategy matches the displacement station code exactly
type StationCodeStrategy struct {
	Index *StationIndex
}

func (s *StationCodeStrategy) Name() string {
	return "station_code"
}

func (s *StationCodeStrategy) Resolve(rec models.Displacement) (Coordinate, bool) {
	c, ok := s.Index.byCode[strings.TrimSpace(rec.Station)]
	return c, ok
}

// NumericCodeStrategy matches station codes after integer coercion
type NumericCodeStrategy struct {
	Index *StationIndex
}

func (s *NumericCodeStrategy) Name() string {
	return "numeric_code"
}

func (s *NumericCodeStrategy) Resolve(rec models.Displacement) (Coordinate, bool) {
	n, ok := numericCode(rec.Station)
	if !ok {
		return Coordinate{}, false
	}
	c, ok := s.Index.byNumeric[n]
	return c, ok
}

// DepoStationStrategy uses the home depot station as the position
type DepoStationStrategy struct {
	Index *StationIndex
}

func (s *DepoStationStrategy) Name() string {
	return "depo_station"
}

func (s *DepoStationStrategy) Resolve(rec models.Displacement) (Coordinate, bool) {
	if c, ok := s.Index.byCode[strings.TrimSpace(rec.DepoStation)]; ok {
		return c, true
	}
	if n, ok := numericCode(rec.DepoStation); ok {
		c, ok := s.Index.byNumeric[n]
		return c, ok
	}
	return Coordinate{}, false
}

// ZeroCoordinateStrategy places every record at (0, 0).
// Distances and spans collapse to zero but visit counts survive.
type ZeroCoordinateStrategy struct{}

func (s *ZeroCoordinateStrategy) Name() string {
	return "zero_coordinates"
}

func (s *ZeroCoordinateStrategy) Resolve(models.Displacement) (Coordinate, bool) {
	return Coordinate{}, true
}

// GetStrategy returns a strategy by name, or nil when the name is unknown
func GetStrategy(name string, idx *StationIndex) Strategy {
	switch name {
	case "station_code":
		return &StationCodeStrategy{Index: idx}
	case "numeric_code":
		return &NumericCodeStrategy{Index: idx}
	case "depo_station":
		return &DepoStationStrategy{Index: idx}
	case "zero_coordinates":
		return &ZeroCoordinateStrategy{}
	default:
		return nil
	}
}

// GetAllStrategies returns the fallback chain in the order it is tried
func GetAllStrategies(idx *StationIndex) []Strategy {
	return []Strategy{
		&StationCodeStrategy{Index: idx},
		&NumericCodeStrategy{Index: idx},
		&DepoStationStrategy{Index: idx},
		&ZeroCoordinateStrategy{},
	}
}

// Fix is a displacement record with its resolved position
type Fix struct {
	models.Displacement
	Coordinate
}

// Resolve runs the strategies in order and returns the fixes produced by the
// first one that resolves anything. Records it cannot resolve are dropped.
func Resolve(recs []models.Displacement, strategies []Strategy) ([]Fix, string) {
	for _, strategy := range strategies {
		var fixes []Fix
		for _, rec := range recs {
			if c, ok := strategy.Resolve(rec); ok {
				fixes = append(fixes, Fix{Displacement: rec, Coordinate: c})
			}
		}
		if len(fixes) > 0 {
			return fixes, strategy.Name()
		}
	}
	return nil, ""
}
