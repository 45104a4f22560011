package routefeat

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/locowear/wheelwear/internal/dataset"
	"github.com/locowear/wheelwear/internal/models"
)

// JoinMode selects the key used to attach route features to dataset rows
type JoinMode string

const (
	// JoinSeries matches on locomotive_series only. Each row is paired with
	// every locomotive of its series, so the row count can grow.
	JoinSeries JoinMode = "series"
	// JoinSeriesNumber matches on (series, number) and keeps one row per input row
	JoinSeriesNumber JoinMode = "series_number"
)

// ParseJoinMode validates a join mode name
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(s) {
	case JoinSeries, JoinSeriesNumber:
		return JoinMode(s), nil
	default:
		return "", fmt.Errorf("unknown join mode %q (want %s or %s)", s, JoinSeries, JoinSeriesNumber)
	}
}

// Route feature columns in output order
var Columns = []string{
	"total_visits",
	"unique_stations",
	"days_active",
	"visits_per_day",
	"num_trips",
	"trips_per_day",
	"avg_trip_distance",
	"max_trip_distance",
	"total_distance",
	"avg_latitude",
	"avg_longitude",
	"lat_span",
	"lon_span",
	"climate_zone",
	"is_mountainous",
	"usage_intensity",
}

var stringColumns = map[string]bool{
	"climate_zone":    true,
	"usage_intensity": true,
}

// UnknownLabel fills string route columns for rows without route data
const UnknownLabel = "unknown"

func featureValues(f models.RouteFeatures) []string {
	mountainous := "0"
	if f.IsMountainous {
		mountainous = "1"
	}
	return []string{
		strconv.Itoa(f.TotalVisits),
		strconv.Itoa(f.UniqueStations),
		strconv.Itoa(f.DaysActive),
		dataset.FormatFloat(f.VisitsPerDay),
		strconv.Itoa(f.NumTrips),
		dataset.FormatFloat(f.TripsPerDay),
		dataset.FormatFloat(f.AvgTripDistance),
		dataset.FormatFloat(f.MaxTripDistance),
		dataset.FormatFloat(f.TotalDistance),
		dataset.FormatFloat(f.AvgLatitude),
		dataset.FormatFloat(f.AvgLongitude),
		dataset.FormatFloat(f.LatSpan),
		dataset.FormatFloat(f.LonSpan),
		string(f.ClimateZone),
		mountainous,
		string(f.UsageIntensity),
	}
}

func missingValues() []string {
	out := make([]string, len(Columns))
	for i, col := range Columns {
		if stringColumns[col] {
			out[i] = UnknownLabel
		} else {
			out[i] = "0"
		}
	}
	return out
}

// Table renders route features with their locomotive key
func Table(features []models.RouteFeatures) *dataset.Table {
	t := dataset.NewTable(append([]string{dataset.ColLocomotiveSeries, dataset.ColLocomotiveNumber}, Columns...)...)
	for _, f := range features {
		t.Append(append([]string{f.LocomotiveSeries, f.LocomotiveNumber}, featureValues(f)...))
	}
	return t
}

// JoinStats reports how a join went
type JoinStats struct {
	RowsBefore int
	RowsAfter  int
	Matched    int
	Unmatched  int
}

// Join left-joins route features onto a dataset table. Route columns
// already present in the table are replaced.
func Join(t *dataset.Table, features []models.RouteFeatures, mode JoinMode, logger *zap.Logger) (*dataset.Table, JoinStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	seriesIdx := t.ColumnIndex(dataset.ColLocomotiveSeries)
	if seriesIdx < 0 {
		return nil, JoinStats{}, fmt.Errorf("%w: %s", dataset.ErrMissingColumn, dataset.ColLocomotiveSeries)
	}
	numberIdx := t.ColumnIndex(dataset.ColLocomotiveNumber)
	if mode == JoinSeriesNumber && numberIdx < 0 {
		return nil, JoinStats{}, fmt.Errorf("%w: %s", dataset.ErrMissingColumn, dataset.ColLocomotiveNumber)
	}

	bySeries := make(map[string][][]string)
	byKey := make(map[models.LocomotiveKey][]string)
	for _, f := range features {
		values := featureValues(f)
		bySeries[f.LocomotiveSeries] = append(bySeries[f.LocomotiveSeries], values)
		byKey[f.Key()] = values
	}

	base := t.Drop(Columns...)
	out := dataset.NewTable(append(append([]string(nil), base.Columns...), Columns...)...)
	stats := JoinStats{RowsBefore: t.Len()}
	missing := missingValues()

	for r, row := range t.Rows {
		baseRow := base.Rows[r]

		var matches [][]string
		switch mode {
		case JoinSeries:
			matches = bySeries[row[seriesIdx]]
		default:
			key := models.LocomotiveKey{Series: row[seriesIdx], Number: models.CanonicalNumber(row[numberIdx])}
			if values, ok := byKey[key]; ok {
				matches = [][]string{values}
			}
		}

		if len(matches) == 0 {
			stats.Unmatched++
			out.Rows = append(out.Rows, append(append([]string(nil), baseRow...), missing...))
			continue
		}

		stats.Matched++
		for _, values := range matches {
			out.Rows = append(out.Rows, append(append([]string(nil), baseRow...), values...))
		}
	}

	stats.RowsAfter = out.Len()
	if stats.RowsAfter != stats.RowsBefore {
		logger.Warn("route join changed row count",
			zap.String("mode", string(mode)),
			zap.Int("before", stats.RowsBefore),
			zap.Int("after", stats.RowsAfter),
		)
	}
	if stats.Matched == 0 && stats.RowsBefore > 0 {
		logger.Warn("no rows matched any route features", zap.String("mode", string(mode)))
	}
	logger.Info("route features joined",
		zap.String("mode", string(mode)),
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched),
	)

	return out, stats, nil
}
