package dataset

import (
	"sort"

	"github.com/locowear/wheelwear/internal/models"
)

// Repair aggregate column names as written to the dataset files
const (
	ColTotalRepairs       = "total_repairs"
	ColRepairType1        = "repair_type_1"
	ColRepairType2        = "repair_type_2"
	ColRepairType3        = "repair_type_3"
	ColTurningCount       = "turning_count"
	ColUniqueServiceDates = "unique_service_dates"
	ColFirstRepairDate    = "first_repair_date"
	ColLastRepairDate     = "last_repair_date"
)

// RepairNumericColumns are zero-filled for wheels without repair history
var RepairNumericColumns = []string{
	ColTotalRepairs,
	ColRepairType1,
	ColRepairType2,
	ColRepairType3,
	ColTurningCount,
	ColUniqueServiceDates,
}

// RepairColumns is the full set of aggregate columns in output order
var RepairColumns = append(append([]string(nil), RepairNumericColumns...), ColFirstRepairDate, ColLastRepairDate)

// AggregateRepairs collapses the service event log into one row per locomotive.
// Output is sorted by (series, number).
func AggregateRepairs(events []models.ServiceEvent) []models.RepairAggregate {
	type group struct {
		agg   models.RepairAggregate
		dates map[string]struct{}
	}

	groups := make(map[models.LocomotiveKey]*group)
	for _, ev := range events {
		key := ev.Key()
		g, ok := groups[key]
		if !ok {
			g = &group{
				agg: models.RepairAggregate{
					LocomotiveSeries: key.Series,
					LocomotiveNumber: key.Number,
				},
				dates: make(map[string]struct{}),
			}
			groups[key] = g
		}

		g.agg.TotalRepairs++
		switch ev.ServiceType {
		case models.ServiceType1:
			g.agg.RepairType1++
		case models.ServiceType2:
			g.agg.RepairType2++
		case models.ServiceType3:
			g.agg.RepairType3++
		case models.ServiceTypeTurning:
			g.agg.TurningCount++
		}

		if ev.ServiceDate == "" {
			continue
		}
		g.dates[ev.ServiceDate] = struct{}{}
		if g.agg.FirstRepairDate == "" || ev.ServiceDate < g.agg.FirstRepairDate {
			g.agg.FirstRepairDate = ev.ServiceDate
		}
		if ev.ServiceDate > g.agg.LastRepairDate {
			g.agg.LastRepairDate = ev.ServiceDate
		}
	}

	aggs := make([]models.RepairAggregate, 0, len(groups))
	for _, g := range groups {
		g.agg.UniqueServiceDates = len(g.dates)
		aggs = append(aggs, g.agg)
	}

	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].LocomotiveSeries != aggs[j].LocomotiveSeries {
			return aggs[i].LocomotiveSeries < aggs[j].LocomotiveSeries
		}
		return aggs[i].LocomotiveNumber < aggs[j].LocomotiveNumber
	})

	return aggs
}

// RepairMismatch is a locomotive whose typed counters do not add up to the total
type RepairMismatch struct {
	Key      models.LocomotiveKey
	Total    int
	TypedSum int
}

// CheckRepairSums reports aggregates where total_repairs differs from the
// sum of the typed counters. That happens only for unknown service types.
func CheckRepairSums(aggs []models.RepairAggregate) []RepairMismatch {
	var mismatches []RepairMismatch
	for _, agg := range aggs {
		if sum := agg.TypedSum(); sum != agg.TotalRepairs {
			mismatches = append(mismatches, RepairMismatch{
				Key:      agg.Key(),
				Total:    agg.TotalRepairs,
				TypedSum: sum,
			})
		}
	}
	return mismatches
}

// RepairIndex is a read-only lookup of repair aggregates by locomotive
type RepairIndex struct {
	byKey map[models.LocomotiveKey]models.RepairAggregate
}

// NewRepairIndex indexes aggregates; later duplicates overwrite earlier ones
func NewRepairIndex(aggs []models.RepairAggregate) *RepairIndex {
	idx := &RepairIndex{byKey: make(map[models.LocomotiveKey]models.RepairAggregate, len(aggs))}
	for _, agg := range aggs {
		idx.byKey[agg.Key()] = agg
	}
	return idx
}

// Len returns the number of indexed locomotives
func (idx *RepairIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byKey)
}

// Lookup returns the aggregate for a locomotive. Locomotives without repair
// history get an all-zero aggregate.
func (idx *RepairIndex) Lookup(key models.LocomotiveKey) (models.RepairAggregate, bool) {
	if idx != nil {
		if agg, ok := idx.byKey[key]; ok {
			return agg, true
		}
	}
	return models.RepairAggregate{LocomotiveSeries: key.Series, LocomotiveNumber: key.Number}, false
}

// RepairTable renders aggregates as a table keyed by series and number
func RepairTable(aggs []models.RepairAggregate) *Table {
	t := NewTable(append([]string{"locomotive_series", "locomotive_number"}, RepairColumns...)...)
	for _, agg := range aggs {
		t.Append(repairRow(agg, agg.LocomotiveSeries, agg.LocomotiveNumber))
	}
	return t
}

// ReadRepairTable loads aggregates written by RepairTable
func ReadRepairTable(t *Table) ([]models.RepairAggregate, error) {
	if err := requireTableColumns(t, append([]string{"locomotive_series", "locomotive_number"}, RepairNumericColumns...)...); err != nil {
		return nil, err
	}

	aggs := make([]models.RepairAggregate, 0, t.Len())
	for i := range t.Rows {
		agg := models.RepairAggregate{
			LocomotiveSeries:   t.Value(i, "locomotive_series"),
			LocomotiveNumber:   models.CanonicalNumber(t.Value(i, "locomotive_number")),
			TotalRepairs:       atoiLoose(t.Value(i, ColTotalRepairs)),
			RepairType1:        atoiLoose(t.Value(i, ColRepairType1)),
			RepairType2:        atoiLoose(t.Value(i, ColRepairType2)),
			RepairType3:        atoiLoose(t.Value(i, ColRepairType3)),
			TurningCount:       atoiLoose(t.Value(i, ColTurningCount)),
			UniqueServiceDates: atoiLoose(t.Value(i, ColUniqueServiceDates)),
			FirstRepairDate:    t.Value(i, ColFirstRepairDate),
			LastRepairDate:     t.Value(i, ColLastRepairDate),
		}
		aggs = append(aggs, agg)
	}
	return aggs, nil
}

func repairRow(agg models.RepairAggregate, prefix ...string) []string {
	return append(prefix,
		FormatInt(agg.TotalRepairs),
		FormatInt(agg.RepairType1),
		FormatInt(agg.RepairType2),
		FormatInt(agg.RepairType3),
		FormatInt(agg.TurningCount),
		FormatInt(agg.UniqueServiceDates),
		agg.FirstRepairDate,
		agg.LastRepairDate,
	)
}

func requireTableColumns(t *Table, names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return &ColumnError{Column: name}
		}
	}
	return nil
}

// ColumnError names a column that a table is missing
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return ErrMissingColumn.Error() + ": " + e.Column
}

func (e *ColumnError) Unwrap() error {
	return ErrMissingColumn
}
