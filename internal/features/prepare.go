package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Record is one raw row keyed by column name. Values may be strings,
// numbers, booleans or nil.
type Record map[string]any

// Value is a single prepared feature
type Value struct {
	Num   float64
	Cat   string
	IsCat bool
}

// Vector is a prepared record in schema order
type Vector struct {
	Columns []string
	Values  []Value
}

// Record converts the vector back into a record
func (v Vector) Record() Record {
	rec := make(Record, len(v.Columns))
	for i, col := range v.Columns {
		if v.Values[i].IsCat {
			rec[col] = v.Values[i].Cat
		} else {
			rec[col] = v.Values[i].Num
		}
	}
	return rec
}

// Strings renders the vector for CSV output
func (v Vector) Strings() []string {
	out := make([]string, len(v.Values))
	for i, val := range v.Values {
		if val.IsCat {
			out[i] = val.Cat
		} else {
			out[i] = strconv.FormatFloat(val.Num, 'f', -1, 64)
		}
	}
	return out
}

// PrepareError reports a value that cannot be read as a number
type PrepareError struct {
	Column string
	Value  any
}

func (e *PrepareError) Error() string {
	return fmt.Sprintf("column %s: cannot convert %v (%T) to a number", e.Column, e.Value, e.Value)
}

// Prepare maps a raw record onto the schema. It has no side effects and
// Prepare(Prepare(r).Record()) equals Prepare(r).
func Prepare(rec Record, schema Schema) (Vector, error) {
	work := make(Record, len(rec)+len(DerivedColumns))
	for k, v := range rec {
		work[k] = v
	}

	if err := derive(work); err != nil {
		return Vector{}, err
	}
	work[ColSteelNum] = NormalizeSteelNum(work[ColSteelNum])

	vec := Vector{
		Columns: schema.Columns,
		Values:  make([]Value, len(schema.Columns)),
	}
	for i, col := range schema.Columns {
		raw := work[col]
		if IsCategorical(col) {
			vec.Values[i] = Value{Cat: categorical(raw), IsCat: true}
			continue
		}
		num, err := toNumber(raw)
		if err != nil {
			return Vector{}, &PrepareError{Column: col, Value: raw}
		}
		vec.Values[i] = Value{Num: num}
	}

	return vec, nil
}

// PrepareBatch prepares every record; the first failure aborts the batch
func PrepareBatch(recs []Record, schema Schema) ([]Vector, error) {
	out := make([]Vector, len(recs))
	for i, rec := range recs {
		vec, err := Prepare(rec, schema)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

type derivation struct {
	name    string
	sources []string
	compute func(v map[string]float64) float64
}

var derivations = []derivation{
	{
		name:    RepairsPer100k,
		sources: []string{ColTotalRepairs, ColMileageStart},
		compute: func(v map[string]float64) float64 {
			return v[ColTotalRepairs] / (v[ColMileageStart]/100000 + 1)
		},
	},
	{
		name:    TurningPer100k,
		sources: []string{ColTurningCount, ColMileageStart},
		compute: func(v map[string]float64) float64 {
			return v[ColTurningCount] / (v[ColMileageStart]/100000 + 1)
		},
	},
	{
		name:    TurningRatio,
		sources: []string{ColTurningCount, ColTotalRepairs},
		compute: func(v map[string]float64) float64 {
			return v[ColTurningCount] / (v[ColTotalRepairs] + 1)
		},
	},
}

// derive fills the ratio columns. A derived value already present is kept
// when one of its sources is missing.
func derive(work Record) error {
	for _, d := range derivations {
		values := make(map[string]float64, len(d.sources))
		complete := true
		for _, src := range d.sources {
			raw, ok := work[src]
			if !ok || raw == nil {
				complete = false
				continue
			}
			num, err := toNumber(raw)
			if err != nil {
				return &PrepareError{Column: src, Value: raw}
			}
			values[src] = num
		}

		if !complete {
			if existing, ok := work[d.name]; ok && existing != nil {
				continue
			}
		}
		work[d.name] = finite(d.compute(values))
	}
	return nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func toNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case float64:
		return finite(v), nil
	case float32:
		return finite(float64(v)), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if nullMarkers[strings.ToLower(s)] {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return finite(f), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

func categorical(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "0"
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "0"
		}
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return "0"
		}
	}
	return formatCategorical(raw)
}

func formatCategorical(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// RowRecord builds a record from CSV cells; empty cells become nil
func RowRecord(columns, row []string) Record {
	rec := make(Record, len(columns))
	for i, col := range columns {
		if i >= len(row) || strings.TrimSpace(row[i]) == "" {
			rec[col] = nil
			continue
		}
		rec[col] = row[i]
	}
	return rec
}
