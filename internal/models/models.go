package models

import "time"

// ServiceType values recognised by the repair aggregator
const (
	ServiceType1       = "1"
	ServiceType2       = "2"
	ServiceType3       = "3"
	ServiceTypeTurning = "обточка"
)

// LocomotiveKey identifies a physical locomotive
type LocomotiveKey struct {
	Series string
	Number string
}

// WheelRecord represents a row from wear_data_train.csv
type WheelRecord struct {
	WheelID          string
	LocomotiveSeries string
	LocomotiveNumber string
	Depo             string
	SteelNum         string // empty when the source cell is null
	MileageStart     float64
	WearIntensity    float64
	HasTarget        bool
}

// Key returns the locomotive the wheel belongs to
func (w WheelRecord) Key() LocomotiveKey {
	return LocomotiveKey{Series: w.LocomotiveSeries, Number: w.LocomotiveNumber}
}

// ServiceEvent represents a row from service_dates.csv
type ServiceEvent struct {
	LocomotiveSeries string
	LocomotiveNumber string
	ServiceType      string
	ServiceDate      string
}

// Key returns the serviced locomotive
func (e ServiceEvent) Key() LocomotiveKey {
	return LocomotiveKey{Series: e.LocomotiveSeries, Number: e.LocomotiveNumber}
}

// RepairAggregate is the per-locomotive repair history summary
type RepairAggregate struct {
	LocomotiveSeries   string
	LocomotiveNumber   string
	TotalRepairs       int
	RepairType1        int
	RepairType2        int
	RepairType3        int
	TurningCount       int
	UniqueServiceDates int
	FirstRepairDate    string
	LastRepairDate     string
}

// Key returns the locomotive the aggregate describes
func (r RepairAggregate) Key() LocomotiveKey {
	return LocomotiveKey{Series: r.LocomotiveSeries, Number: r.LocomotiveNumber}
}

// TypedSum is the sum of the per-type counters
func (r RepairAggregate) TypedSum() int {
	return r.RepairType1 + r.RepairType2 + r.RepairType3 + r.TurningCount
}

// Station represents a row from station_info.csv
type Station struct {
	Code      string
	Name      string
	Latitude  *float64
	Longitude *float64
}

// HasCoordinates reports whether both coordinates are known
func (s Station) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Displacement represents a row from locomotives_displacement.csv
type Displacement struct {
	LocomotiveSeries string
	LocomotiveNumber string
	Station          string
	DepoStation      string
	Datetime         time.Time
}

// Key returns the locomotive that was observed
func (d Displacement) Key() LocomotiveKey {
	return LocomotiveKey{Series: d.LocomotiveSeries, Number: d.LocomotiveNumber}
}

// ClimateZone buckets a mean latitude
type ClimateZone string

const (
	ClimateArctic    ClimateZone = "arctic"
	ClimateNorth     ClimateZone = "north"
	ClimateTemperate ClimateZone = "temperate"
	ClimateSouth     ClimateZone = "south"
)

// UsageIntensity is a quantile bucket of visits per day
type UsageIntensity string

const (
	UsageVeryLow  UsageIntensity = "very_low"
	UsageLow      UsageIntensity = "low"
	UsageMedium   UsageIntensity = "medium"
	UsageHigh     UsageIntensity = "high"
	UsageVeryHigh UsageIntensity = "very_high"
)

// RouteFeatures summarises the travel history of one locomotive
type RouteFeatures struct {
	LocomotiveSeries string
	LocomotiveNumber string
	TotalVisits      int
	UniqueStations   int
	DaysActive       int
	VisitsPerDay     float64
	NumTrips         int
	TripsPerDay      float64
	AvgTripDistance  float64 // km
	MaxTripDistance  float64 // km
	TotalDistance    float64 // km
	AvgLatitude      float64
	AvgLongitude     float64
	LatSpan          float64
	LonSpan          float64
	ClimateZone      ClimateZone
	IsMountainous    bool
	UsageIntensity   UsageIntensity
}

// Key returns the locomotive the features describe
func (r RouteFeatures) Key() LocomotiveKey {
	return LocomotiveKey{Series: r.LocomotiveSeries, Number: r.LocomotiveNumber}
}

// PredictionItem is one element of a POST /predict batch
type PredictionItem struct {
	LocomotiveSeries string     `json:"locomotive_series"`
	LocomotiveNumber FlexString `json:"locomotive_number"`
	Depo             *string    `json:"depo"`
	SteelNum         FlexString `json:"steel_num"`
	MileageStart     *float64   `json:"mileage_start"`

	// Optional repair history; when absent the service looks it up
	TotalRepairs       *float64 `json:"total_repairs,omitempty"`
	RepairType1        *float64 `json:"repair_type_1,omitempty"`
	RepairType2        *float64 `json:"repair_type_2,omitempty"`
	RepairType3        *float64 `json:"repair_type_3,omitempty"`
	TurningCount       *float64 `json:"turning_count,omitempty"`
	UniqueServiceDates *float64 `json:"unique_service_dates,omitempty"`
}

// Key returns the locomotive the item refers to
func (p PredictionItem) Key() LocomotiveKey {
	return LocomotiveKey{Series: p.LocomotiveSeries, Number: CanonicalNumber(p.LocomotiveNumber.Value)}
}

// HasRepairStats reports whether the caller supplied any repair counters
func (p PredictionItem) HasRepairStats() bool {
	return p.TotalRepairs != nil || p.RepairType1 != nil || p.RepairType2 != nil ||
		p.RepairType3 != nil || p.TurningCount != nil || p.UniqueServiceDates != nil
}

// PredictionLog is one served /predict batch, persisted best effort
type PredictionLog struct {
	BatchID        string
	ItemCount      int
	MeanPrediction float64
	CacheHit       bool
	LatencyMs      int64
	ModelVersion   string
	CreatedAt      time.Time
}
