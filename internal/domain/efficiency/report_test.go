package efficiency

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatReport(t *testing.T) {
	a, err := Analyze(buildTable(t, mixedHistory))
	require.NoError(t, err)

	r := FormatReport(a, "USD")

	assert.Equal(t, ReportSummary{
		OverallCostPerKWh:      0.2267,
		OverallKWhPerDollar:    4.412,
		EfficiencyRating:       RatingFair,
		PotentialAnnualSavings: 46.23,
	}, r.Summary)

	home := r.ChargerAnalysis["home_ac"]
	assert.Equal(t, 0.1, home.CostPerKWh)
	assert.Equal(t, 10.0, home.KWhPerDollar)
	require.NotNil(t, home.ChargingSpeedKW)
	assert.Equal(t, 20.0, *home.ChargingSpeedKW)
	assert.Len(t, r.LocationAnalysis, 3)

	assert.Equal(t, 37.5, r.Patterns.AvgSessionEnergyKWh)
	assert.Equal(t, 18.0, *r.Patterns.AvgSOCStart)
	assert.Equal(t, 1.0, r.Patterns.WeekendWeekdayRatio)
	assert.Equal(t, a.Recommendations, r.Recommendations)
	assert.NotNil(t, r.TemporalTrends)

	require.NotNil(t, r.Display)
	assert.Equal(t, "USD", r.Display.Currency)
	assert.Equal(t, "$0.2267/kWh", r.Display.OverallRate)
	assert.Equal(t, "$34.00", r.Display.TotalCost)
	assert.Equal(t, "$0.1000/kWh", r.Display.ChargerTypeRates["home_ac"])
	assert.Equal(t, map[string]string{
		"home_ac":      "$8.00",
		"public_ac":    "$6.00",
		"supercharger": "$20.00",
	}, r.Display.ChargerTypeSpend)
	require.NotNil(t, r.Display.AnnualSavings)
	assert.Equal(t, int64(4623), r.Display.AnnualSavings.Amount())
	assert.Equal(t, []string{"Home $0.1000/kWh", "Mall $0.3000/kWh"}, r.Display.CheapestLocations)
}

func TestFormatReport_NullsAndOmissions(t *testing.T) {
	a := &Analysis{
		Aggregates: Aggregates{
			Overall: Metric{CostPerKWh: 0.2, KWhPerDollar: 5, Rating: RatingGood},
			ByLocation: map[string]Metric{
				"Depot":  {CostPerKWh: 0.2, KWhPerDollar: 5, Rating: RatingGood},
				"Office": {CostPerKWh: 0.2, KWhPerDollar: 5, ChargingSpeedKW: ptr(0.0), Rating: RatingGood},
			},
			Patterns: Patterns{PreferredChargerTypes: []string{"unknown"}, PeakUsageHours: []int{}, WeekendWeekdayRatio: 1},
		},
	}

	r := FormatReport(a, "")
	assert.Nil(t, r.Display)
	assert.Nil(t, r.LocationAnalysis["Depot"].ChargingSpeedKW)
	assert.Nil(t, r.LocationAnalysis["Office"].ChargingSpeedKW)
	assert.Empty(t, r.ChargerAnalysis)

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.NotContains(t, decoded, "display")
	assert.Equal(t, []any{}, decoded["recommendations"])
	assert.Equal(t, map[string]any{}, decoded["temporal_trends"])

	patterns := decoded["patterns"].(map[string]any)
	assert.Nil(t, patterns["avg_soc_start"])
	assert.Contains(t, patterns, "avg_soc_start")

	depot := decoded["location_analysis"].(map[string]any)["Depot"].(map[string]any)
	assert.Contains(t, depot, "charging_speed_kw")
	assert.Nil(t, depot["charging_speed_kw"])
}

func TestFormatReport_DisplayTotals(t *testing.T) {
	a := &Analysis{
		Aggregates: Aggregates{
			Overall: Metric{CostPerKWh: 0.1, Rating: RatingExcellent},
			ByChargerType: map[string]Metric{
				"home_ac":   {CostPerKWh: 0.1, Cost: 0.1, EnergyKWh: 1},
				"public_ac": {CostPerKWh: 0.1, Cost: 0.2, EnergyKWh: 2},
			},
			TotalCost: 0.1 + 0.2,
		},
	}

	d := FormatReport(a, "USD").Display
	require.NotNil(t, d)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, "$0.30", d.TotalCost)
	assert.Equal(t, map[string]string{"home_ac": "$0.10", "public_ac": "$0.20"}, d.ChargerTypeSpend)
	assert.Nil(t, d.AnnualSavings, "no savings when every type costs the same")

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "annual_savings")

	// without charger types the overall total is used
	a.ByChargerType = nil
	a.TotalCost = 12.345
	d = FormatReport(a, "USD").Display
	assert.Equal(t, "$12.35", d.TotalCost)
	assert.Nil(t, d.ChargerTypeSpend)
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.1235, round(0.12345, 4))
	assert.Equal(t, -0.13, round(-0.125, 2))
	assert.Equal(t, 2.0, round(1.5, 0))
	assert.Equal(t, 3.0, round(2.5, 0))
}
