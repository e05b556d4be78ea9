// Package efficiency aggregates normalized charging sessions into cost
// efficiency metrics, behavior patterns, monthly trends and recommendations.
package efficiency

import "errors"

// ChargerType is the inferred category of a charger.
type ChargerType string

const (
	ChargerHomeAC       ChargerType = "home_ac"
	ChargerPublicAC     ChargerType = "public_ac"
	ChargerDCFast       ChargerType = "dc_fast"
	ChargerSupercharger ChargerType = "supercharger"
	ChargerUnknown      ChargerType = "unknown"
)

// Rating labels a cost per kWh.
type Rating string

const (
	RatingExcellent Rating = "excellent"
	RatingGood      Rating = "good"
	RatingFair      Rating = "fair"
	RatingPoor      Rating = "poor"
)

var (
	ErrNoData             = errors.New("no data available for analysis")
	ErrAllRowsInvalid     = errors.New("all rows were invalid after basic normalization")
	ErrInvalidMetricInput = errors.New("energy_kwh must be > 0 and cost must be >= 0")
)

// Metric is the efficiency of one session group.
type Metric struct {
	KWhPerDollar float64
	CostPerKWh   float64
	// ChargingSpeedKW is nil when the group has no duration data.
	ChargingSpeedKW *float64
	Rating          Rating
	// Group totals the ratios were computed from.
	EnergyKWh float64
	Cost      float64
}

// Patterns describes charging behavior.
type Patterns struct {
	AvgSessionEnergyKWh   float64
	PreferredChargerTypes []string
	PeakUsageHours        []int
	WeekendWeekdayRatio   float64
	AvgSOCStart           *float64
	AvgSOCEnd             *float64
}

// Trend names.
const (
	TrendMonthlyCost       = "monthly_cost_trend"
	TrendMonthlyEfficiency = "monthly_efficiency_trend"
	TrendMonthlyEnergy     = "monthly_energy_trend"
)

// Aggregates holds every metric computed directly from the sessions.
type Aggregates struct {
	Overall        Metric
	ByChargerType  map[string]Metric
	ByLocation     map[string]Metric
	TemporalTrends map[string]float64
	Patterns       Patterns
	TotalEnergyKWh float64
	TotalCost      float64
	Sessions       int
}

// Analysis is Aggregates plus the advice derived from them.
type Analysis struct {
	Aggregates
	Recommendations      []string
	CostSavingsPotential float64
}
