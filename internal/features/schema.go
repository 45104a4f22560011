package features

import "slices"

// Derived feature names
const (
	RepairsPer100k = "repairs_per_100k"
	TurningPer100k = "turning_per_100k"
	TurningRatio   = "turning_ratio"
)

// Source column names read by the preparer
const (
	ColMileageStart = "mileage_start"
	ColTotalRepairs = "total_repairs"
	ColTurningCount = "turning_count"
	ColSteelNum     = "steel_num"
	ColTarget       = "wear_intensity"
)

// CategoricalColumns are passed to the model as strings
var CategoricalColumns = []string{
	"locomotive_series",
	"depo",
	"steel_num",
	"climate_zone",
	"usage_intensity",
}

// DroppedColumns never reach the model
var DroppedColumns = []string{
	"locomotive_number",
	"wheel_id",
	"first_repair_date",
	"last_repair_date",
	ColTarget,
}

// DerivedColumns are appended by the preparer when a schema is built from raw columns
var DerivedColumns = []string{RepairsPer100k, TurningPer100k, TurningRatio}

// IsCategorical reports whether a column is treated as categorical
func IsCategorical(column string) bool {
	return slices.Contains(CategoricalColumns, column)
}

// IsDropped reports whether a column is an identifier or the target
func IsDropped(column string) bool {
	return slices.Contains(DroppedColumns, column)
}

// Schema is the ordered list of columns a model was trained on
type Schema struct {
	Columns []string
}

// NewSchema keeps the given order and removes identifiers and duplicates
func NewSchema(columns []string) Schema {
	seen := make(map[string]bool, len(columns))
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == "" || seen[col] || IsDropped(col) {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return Schema{Columns: out}
}

// SchemaFromColumns builds the schema for a raw dataset header: identifiers
// and the target are removed and the derived columns are appended.
func SchemaFromColumns(columns []string) Schema {
	return NewSchema(append(append([]string(nil), columns...), DerivedColumns...))
}

// Len returns the number of features
func (s Schema) Len() int {
	return len(s.Columns)
}

// Index returns the position of a column or -1
func (s Schema) Index(column string) int {
	return slices.Index(s.Columns, column)
}

// CategoricalIndices returns the positions of the categorical columns
func (s Schema) CategoricalIndices() []int {
	var idx []int
	for i, col := range s.Columns {
		if IsCategorical(col) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Equal reports whether two schemas list the same columns in the same order
func (s Schema) Equal(other Schema) bool {
	return slices.Equal(s.Columns, other.Columns)
}
