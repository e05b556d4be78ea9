package efficiency

import (
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/charge-analytics/pkg/money"
)

// Report is the serialization-ready projection of an Analysis.
type Report struct {
	Summary          ReportSummary           `json:"summary"`
	ChargerAnalysis  map[string]MetricReport `json:"charger_analysis"`
	LocationAnalysis map[string]MetricReport `json:"location_analysis"`
	TemporalTrends   map[string]float64      `json:"temporal_trends"`
	Patterns         PatternsReport          `json:"patterns"`
	Recommendations  []string                `json:"recommendations"`
	Display          *DisplayBlock           `json:"display,omitempty"`
}

type ReportSummary struct {
	OverallCostPerKWh      float64 `json:"overall_cost_per_kwh"`
	OverallKWhPerDollar    float64 `json:"overall_kwh_per_dollar"`
	EfficiencyRating       Rating  `json:"efficiency_rating"`
	PotentialAnnualSavings float64 `json:"potential_annual_savings"`
}

type MetricReport struct {
	KWhPerDollar     float64  `json:"kwh_per_dollar"`
	CostPerKWh       float64  `json:"cost_per_kwh"`
	ChargingSpeedKW  *float64 `json:"charging_speed_kw"`
	EfficiencyRating Rating   `json:"efficiency_rating"`
}

type PatternsReport struct {
	AvgSessionEnergyKWh   float64  `json:"avg_session_energy_kwh"`
	PreferredChargerTypes []string `json:"preferred_charger_types"`
	PeakUsageHours        []int    `json:"peak_usage_hours"`
	WeekendWeekdayRatio   float64  `json:"weekend_vs_weekday_ratio"`
	AvgSOCStart           *float64 `json:"avg_soc_start"`
	AvgSOCEnd             *float64 `json:"avg_soc_end"`
}

// DisplayBlock carries human-readable amounts in the configured currency.
// AnnualSavings is left out when nothing can be saved.
type DisplayBlock struct {
	Currency          string            `json:"currency"`
	OverallRate       string            `json:"overall_rate"`
	TotalCost         string            `json:"total_cost"`
	AnnualSavings     *money.Money      `json:"annual_savings,omitempty"`
	ChargerTypeRates  map[string]string `json:"charger_type_rates,omitempty"`
	ChargerTypeSpend  map[string]string `json:"charger_type_spend,omitempty"`
	CheapestLocations []string          `json:"cheapest_locations,omitempty"`
}

// FormatReport rounds and reshapes an analysis. When currency is empty the
// display block is left out.
func FormatReport(a *Analysis, currency string) *Report {
	r := &Report{
		Summary: ReportSummary{
			OverallCostPerKWh:      round(a.Overall.CostPerKWh, 4),
			OverallKWhPerDollar:    round(a.Overall.KWhPerDollar, 3),
			EfficiencyRating:       a.Overall.Rating,
			PotentialAnnualSavings: round(a.CostSavingsPotential, 2),
		},
		ChargerAnalysis:  metricReports(a.ByChargerType),
		LocationAnalysis: metricReports(a.ByLocation),
		TemporalTrends:   a.TemporalTrends,
		Patterns: PatternsReport{
			AvgSessionEnergyKWh:   round(a.Patterns.AvgSessionEnergyKWh, 2),
			PreferredChargerTypes: a.Patterns.PreferredChargerTypes,
			PeakUsageHours:        a.Patterns.PeakUsageHours,
			WeekendWeekdayRatio:   round(a.Patterns.WeekendWeekdayRatio, 2),
			AvgSOCStart:           roundPtr(a.Patterns.AvgSOCStart, 1),
			AvgSOCEnd:             roundPtr(a.Patterns.AvgSOCEnd, 1),
		},
		Recommendations: a.Recommendations,
	}
	if r.TemporalTrends == nil {
		r.TemporalTrends = map[string]float64{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	if currency != "" {
		r.Display = displayBlock(a, currency)
	}
	return r
}

func metricReports(metrics map[string]Metric) map[string]MetricReport {
	out := make(map[string]MetricReport, len(metrics))
	for k, m := range metrics {
		mr := MetricReport{
			KWhPerDollar:     round(m.KWhPerDollar, 3),
			CostPerKWh:       round(m.CostPerKWh, 4),
			EfficiencyRating: m.Rating,
		}
		// zero speed is reported as unknown
		if m.ChargingSpeedKW != nil && *m.ChargingSpeedKW != 0 {
			mr.ChargingSpeedKW = roundPtr(m.ChargingSpeedKW, 2)
		}
		out[k] = mr
	}
	return out
}

func displayBlock(a *Analysis, currency string) *DisplayBlock {
	var (
		rates, spend map[string]string
		costs        []float64
	)
	for _, l := range sortedByCost(a.ByChargerType) {
		if rates == nil {
			rates = make(map[string]string, len(a.ByChargerType))
			spend = make(map[string]string, len(a.ByChargerType))
		}
		rates[l.label] = money.RatePerKWh(l.CostPerKWh, currency)
		spend[l.label] = money.NewFromFloat(l.Cost, currency).Display()
		costs = append(costs, l.Cost)
	}

	// with charger types the total is the sum of their spend, so the two
	// agree to the cent
	if len(costs) == 0 {
		costs = []float64{a.TotalCost}
	}
	total := money.Sum(currency, costs...)
	d := &DisplayBlock{
		Currency:         total.Currency(),
		OverallRate:      money.RatePerKWh(a.Overall.CostPerKWh, currency),
		TotalCost:        total.Display(),
		ChargerTypeRates: rates,
		ChargerTypeSpend: spend,
	}
	if savings := money.NewFromFloat(a.CostSavingsPotential, currency); !savings.IsZero() {
		d.AnnualSavings = savings
	}
	for _, l := range sortedByCost(a.ByLocation) {
		if len(d.CheapestLocations) == cheapestLocations {
			break
		}
		d.CheapestLocations = append(d.CheapestLocations, l.label+" "+money.RatePerKWh(l.CostPerKWh, currency))
	}
	return d
}

// round is half away from zero in decimal space.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func roundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}
