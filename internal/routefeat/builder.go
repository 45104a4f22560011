package routefeat

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/models"
)

// MinRecords is the number of resolved fixes a locomotive needs
const MinRecords = 2

// Report summarises a build for diagnostics
type Report struct {
	Strategy    string
	Records     int
	Resolved    int
	Dropped     int
	Locomotives int
	Skipped     int
}

// Builder computes per-locomotive route features
type Builder struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewBuilder creates a builder using the full fallback chain over stations
func NewBuilder(stations []models.Station, logger *zap.Logger) *Builder {
	return NewBuilderWithStrategies(GetAllStrategies(NewStationIndex(stations)), logger)
}

// NewBuilderWithStrategies creates a builder with a custom strategy chain
func NewBuilderWithStrategies(strategies []Strategy, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{strategies: strategies, logger: logger}
}

// Build resolves coordinates and returns features sorted by locomotive
func (b *Builder) Build(recs []models.Displacement) ([]models.RouteFeatures, Report) {
	report := Report{Records: len(recs)}

	fixes, strategy := Resolve(recs, b.strategies)
	report.Strategy = strategy
	report.Resolved = len(fixes)
	report.Dropped = len(recs) - len(fixes)

	switch strategy {
	case "":
		b.logger.Warn("no displacement record could be placed", zap.Int("records", len(recs)))
		return nil, report
	case "station_code":
		b.logger.Info("coordinates resolved", zap.String("strategy", strategy), zap.Int("resolved", len(fixes)), zap.Int("dropped", report.Dropped))
	default:
		b.logger.Warn("station code join failed, using fallback",
			zap.String("strategy", strategy),
			zap.Int("resolved", len(fixes)),
			zap.Int("dropped", report.Dropped),
		)
	}

	groups := make(map[models.LocomotiveKey][]Fix)
	var keys []models.LocomotiveKey
	for _, f := range fixes {
		key := f.Key()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], f)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Series != keys[j].Series {
			return keys[i].Series < keys[j].Series
		}
		return keys[i].Number < keys[j].Number
	})

	features := make([]models.RouteFeatures, 0, len(keys))
	for _, key := range keys {
		group := groups[key]
		if len(group) < MinRecords {
			report.Skipped++
			continue
		}
		features = append(features, Analyze(key, group))
	}

	visits := make([]float64, len(features))
	for i, f := range features {
		visits[i] = f.VisitsPerDay
	}
	buckets := NewUsageBuckets(visits)
	for i := range features {
		features[i].UsageIntensity = buckets.Label(features[i].VisitsPerDay)
	}

	report.Locomotives = len(features)
	b.logger.Info("route features built",
		zap.Int("locomotives", report.Locomotives),
		zap.Int("skipped_single_record", report.Skipped),
	)

	return features, report
}

// Analyze computes the features of one locomotive. Fixes are ordered by
// datetime first; UsageIntensity is left empty since it depends on the population.
func Analyze(key models.LocomotiveKey, fixes []Fix) models.RouteFeatures {
	sorted := append([]Fix(nil), fixes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Datetime.Before(sorted[j].Datetime)
	})

	f := models.RouteFeatures{
		LocomotiveSeries: key.Series,
		LocomotiveNumber: key.Number,
		TotalVisits:      len(sorted),
	}
	if len(sorted) == 0 {
		return f
	}

	stations := make(map[string]struct{})
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	var sumLat, sumLon float64
	var legs int

	for i, fix := range sorted {
		stations[fix.Station] = struct{}{}
		if i == 0 || fix.Station != sorted[i-1].Station {
			f.NumTrips++
		}

		sumLat += fix.Lat
		sumLon += fix.Lon
		minLat, maxLat = math.Min(minLat, fix.Lat), math.Max(maxLat, fix.Lat)
		minLon, maxLon = math.Min(minLon, fix.Lon), math.Max(maxLon, fix.Lon)

		if i > 0 {
			prev := sorted[i-1]
			d := Haversine(prev.Lat, prev.Lon, fix.Lat, fix.Lon)
			f.TotalDistance += d
			f.MaxTripDistance = math.Max(f.MaxTripDistance, d)
			legs++
		}
	}

	f.UniqueStations = len(stations)

	span := sorted[len(sorted)-1].Datetime.Sub(sorted[0].Datetime)
	f.DaysActive = int(span.Hours() / 24)
	if f.DaysActive < 1 {
		f.DaysActive = 1
	}
	f.VisitsPerDay = float64(f.TotalVisits) / float64(f.DaysActive)
	f.TripsPerDay = float64(f.NumTrips) / float64(f.DaysActive)

	if legs > 0 {
		f.AvgTripDistance = f.TotalDistance / float64(legs)
	}

	n := float64(len(sorted))
	f.AvgLatitude = sumLat / n
	f.AvgLongitude = sumLon / n
	f.LatSpan = maxLat - minLat
	f.LonSpan = maxLon - minLon
	f.ClimateZone = ClimateZoneFor(f.AvgLatitude)
	f.IsMountainous = IsMountainous(f.LatSpan)

	return f
}
