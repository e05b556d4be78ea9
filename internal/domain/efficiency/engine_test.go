package efficiency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

type fixture struct {
	date     string
	charger  string
	location string
	energy   float64
	cost     float64
	duration float64
	startSOC float64
	endSOC   float64
}

func buildTable(t *testing.T, rows []fixture) *normalizer.Table {
	t.Helper()
	table := &normalizer.Table{Columns: []string{
		normalizer.ColSessionDate, normalizer.ColEnergyAddedKWh, normalizer.ColTotalCost,
		normalizer.ColChargerType, normalizer.ColLocationName, normalizer.ColChargingDurationMinutes,
		normalizer.ColStartSOCPercent, normalizer.ColEndSOCPercent,
	}}
	for _, r := range rows {
		d, err := time.Parse("2006-01-02 15:04", r.date)
		require.NoError(t, err)
		table.Sessions = append(table.Sessions, normalizer.Session{
			SessionDate:             &d,
			EnergyAddedKWh:          r.energy,
			TotalCost:               r.cost,
			ChargerType:             ptr(r.charger),
			LocationName:            ptr(r.location),
			ChargingDurationMinutes: ptr(r.duration),
			StartSOCPercent:         ptr(r.startSOC),
			EndSOCPercent:           ptr(r.endSOC),
		})
	}
	return table
}

// Two weekend home sessions, a weekday supercharger and a weekday public L2.
var mixedHistory = []fixture{
	{"2024-01-06 22:00", "Home", "Home", 40, 4, 240, 10, 80},
	{"2024-02-03 23:00", "Home", "Home", 40, 4, 240, 10, 80},
	{"2024-03-04 18:00", "Supercharger", "Tejo SC", 50, 20, 25, 30, 95},
	{"2024-03-05 18:00", "Public Level 2", "Mall", 20, 6, 120, 22, 85},
}

func TestEngine_Analyze(t *testing.T) {
	a, err := NewEngine().Analyze(buildTable(t, mixedHistory))
	require.NoError(t, err)

	assert.Equal(t, 4, a.Sessions)
	assert.InDelta(t, 150.0, a.TotalEnergyKWh, 1e-9)
	assert.InDelta(t, 34.0, a.TotalCost, 1e-9)

	assert.InDelta(t, 34.0/150.0, a.Overall.CostPerKWh, 1e-12)
	assert.InDelta(t, 150.0/34.0, a.Overall.KWhPerDollar, 1e-12)
	assert.Equal(t, RatingFair, a.Overall.Rating)
	require.NotNil(t, a.Overall.ChargingSpeedKW)
	assert.InDelta(t, 57.6, *a.Overall.ChargingSpeedKW, 1e-9)

	require.Len(t, a.ByChargerType, 3)
	home := a.ByChargerType["home_ac"]
	assert.InDelta(t, 0.10, home.CostPerKWh, 1e-12)
	assert.Equal(t, RatingExcellent, home.Rating)
	assert.InDelta(t, 20.0, *home.ChargingSpeedKW, 1e-9)
	assert.InDelta(t, 120.0, *a.ByChargerType["supercharger"].ChargingSpeedKW, 1e-9)
	assert.Equal(t, RatingPoor, a.ByChargerType["supercharger"].Rating)
	assert.Equal(t, RatingFair, a.ByChargerType["public_ac"].Rating)

	assert.Equal(t, []string{"Home", "Mall", "Tejo SC"}, labelsByCost(a.ByLocation))

	p := a.Patterns
	assert.InDelta(t, 37.5, p.AvgSessionEnergyKWh, 1e-9)
	assert.Equal(t, []string{"home_ac", "public_ac", "supercharger"}, p.PreferredChargerTypes)
	assert.Equal(t, []int{18, 22, 23}, p.PeakUsageHours)
	assert.InDelta(t, 1.0, p.WeekendWeekdayRatio, 1e-12)
	assert.InDelta(t, 18.0, *p.AvgSOCStart, 1e-9)
	assert.InDelta(t, 85.0, *p.AvgSOCEnd, 1e-9)

	assert.Empty(t, a.TemporalTrends, "four dated rows are too few for trends")

	assert.Equal(t, []string{
		"Large price gap across types: home_ac ($0.100/kWh) vs supercharger ($0.400/kWh). Prefer home_ac.",
		"Most cost-effective locations: Home ($0.100/kWh), Mall ($0.300/kWh)",
		"Charges often start at low SOC (~18%). Starting earlier (≥20%) is gentler on the battery.",
		"Charging often occurs during peak hours (5–8 PM). Shift to off-peak (11 PM–6 AM) to save.",
	}, a.Recommendations)

	// (34/150 - 0.10) * 150 * 365/90 * 0.6
	assert.InDelta(t, 4161.0/90.0, a.CostSavingsPotential, 1e-9)
}

func TestEngine_WithoutChargerColumn(t *testing.T) {
	table := buildTable(t, mixedHistory)
	table.Columns = []string{normalizer.ColSessionDate, normalizer.ColEnergyAddedKWh, normalizer.ColTotalCost}

	a, err := Analyze(table)
	require.NoError(t, err)

	assert.Empty(t, a.ByChargerType)
	assert.Equal(t, []string{"unknown"}, a.Patterns.PreferredChargerTypes)
	assert.Zero(t, a.CostSavingsPotential)
	for _, r := range a.Recommendations {
		assert.NotContains(t, r, "price gap")
	}
}

func TestEngine_LocationShareThreshold(t *testing.T) {
	rows := []fixture{
		{"2024-01-01 10:00", "Home", "Home", 96, 10, 0, 50, 80},
		{"2024-01-02 10:00", "Home", "Corner Shop", 4, 2, 0, 50, 80},
		{"2024-01-03 10:00", "Home", " ", 10, 1, 0, 50, 80},
	}
	a, err := Analyze(buildTable(t, rows))
	require.NoError(t, err)

	assert.Equal(t, []string{"Home"}, labelsByCost(a.ByLocation))
	assert.Nil(t, a.ByLocation["Home"].ChargingSpeedKW, "zero durations give no speed")
}

func TestEngine_Errors(t *testing.T) {
	_, err := Analyze(&normalizer.Table{})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Analyze(nil)
	assert.ErrorIs(t, err, ErrNoData)

	invalid := &normalizer.Table{
		Columns:  normalizer.RequiredColumns,
		Sessions: []normalizer.Session{{EnergyAddedKWh: 0, TotalCost: 1}, {EnergyAddedKWh: 5, TotalCost: -1}},
	}
	_, err = Analyze(invalid)
	assert.ErrorIs(t, err, ErrAllRowsInvalid)
}

func TestEngine_WeekendRatioAndUndatedRows(t *testing.T) {
	table := buildTable(t, []fixture{
		{"2024-01-06 09:00", "Home", "Home", 10, 1, 60, 50, 80}, // Saturday
		{"2024-01-07 09:00", "Home", "Home", 10, 1, 60, 50, 80}, // Sunday
	})
	table.Sessions = append(table.Sessions, normalizer.Session{EnergyAddedKWh: 10, TotalCost: 1})

	a, err := Analyze(table)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, a.Patterns.WeekendWeekdayRatio, 1e-12, "no weekday sessions")
	assert.Equal(t, []int{9}, a.Patterns.PeakUsageHours)
	assert.Equal(t, 3, a.Sessions)
}

func TestMonthlyTrends(t *testing.T) {
	rows := []fixture{
		{"2024-01-03 08:00", "Home", "Home", 10, 2, 60, 40, 80},
		{"2024-01-20 08:00", "Home", "Home", 30, 6, 60, 40, 80},
		{"2024-02-03 08:00", "Home", "Home", 20, 5, 60, 40, 80},
		{"2024-02-20 08:00", "Home", "Home", 20, 5, 60, 40, 80},
		{"2024-03-03 08:00", "Home", "Home", 40, 12, 60, 40, 80},
		{"2024-03-20 08:00", "Home", "Home", 20, 6, 60, 40, 80},
	}
	a, err := Analyze(buildTable(t, rows))
	require.NoError(t, err)

	require.Len(t, a.TemporalTrends, 3)
	assert.InDelta(t, 2.5, a.TemporalTrends[TrendMonthlyCost], 1e-9)
	assert.InDelta(t, 5.0, a.TemporalTrends[TrendMonthlyEnergy], 1e-9)
	assert.InDelta(t, 0.05, a.TemporalTrends[TrendMonthlyEfficiency], 1e-9)

	t.Run("empty months are skipped", func(t *testing.T) {
		gap := append([]fixture(nil), rows...)
		for i := 4; i < 6; i++ {
			gap[i].date = "2024-05" + gap[i].date[7:]
		}
		a, err := Analyze(buildTable(t, gap))
		require.NoError(t, err)
		// three observed months, two steps
		assert.InDelta(t, 2.5, a.TemporalTrends[TrendMonthlyCost], 1e-9)
	})

	t.Run("two months are not enough", func(t *testing.T) {
		two := append([]fixture(nil), rows...)
		for i := 4; i < 6; i++ {
			two[i].date = "2024-02" + two[i].date[7:]
		}
		a, err := Analyze(buildTable(t, two))
		require.NoError(t, err)
		assert.Empty(t, a.TemporalTrends)
	})
}

func TestRecommend_Thresholds(t *testing.T) {
	agg := &Aggregates{
		Overall: Metric{CostPerKWh: 0.3},
		ByChargerType: map[string]Metric{
			"public_ac": {CostPerKWh: 0.30},
			"home_ac":   {CostPerKWh: 0.20},
		},
		Patterns: Patterns{
			AvgSessionEnergyKWh: 8.3,
			AvgSOCEnd:           ptr(93.4),
			PeakUsageHours:      []int{7, 8},
		},
		TotalEnergyKWh: 90,
	}

	assert.Equal(t, []string{
		"Average cost per kWh ($0.300) is high. Prefer home/off-peak charging or cheaper public stations.",
		"Large price gap across types: home_ac ($0.200/kWh) vs public_ac ($0.300/kWh). Prefer home_ac.",
		"Charges frequently end at high SOC (~93%). Limit daily targets to 80–90% to reduce degradation.",
		"Average session size is small (~8.3 kWh). Consolidating sessions can reduce idle/overhead costs.",
	}, Recommend(agg))

	// (0.3 - 0.2) * 90 * 365/90 * 0.6
	assert.InDelta(t, 21.9, EstimateSavings(agg), 1e-9)

	assert.Empty(t, Recommend(&Aggregates{}))
	assert.Zero(t, EstimateSavings(&Aggregates{ByChargerType: agg.ByChargerType}))
}

func TestEngine_GeneratedSessions(t *testing.T) {
	table := normalizer.NewSessionGenerator(42).Table(200)

	first, err := Analyze(table)
	require.NoError(t, err)
	second, err := Analyze(table)
	require.NoError(t, err)

	energy, cost := table.Totals()
	assert.InDelta(t, cost/energy, first.Overall.CostPerKWh, 1e-9)
	assert.Equal(t, RateCost(first.Overall.CostPerKWh), first.Overall.Rating)
	assert.GreaterOrEqual(t, first.CostSavingsPotential, 0.0)
	assert.LessOrEqual(t, len(first.Patterns.PreferredChargerTypes), 3)
	assert.LessOrEqual(t, len(first.Patterns.PeakUsageHours), 3)
	for _, h := range first.Patterns.PeakUsageHours {
		assert.True(t, h >= 0 && h < 24)
	}
	for label, m := range first.ByChargerType {
		assert.NotEqual(t, "unknown", label)
		assert.Equal(t, RateCost(m.CostPerKWh), m.Rating)
	}
	assert.Len(t, first.TemporalTrends, 3)

	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, first.Patterns, second.Patterns)
}

func labelsByCost(metrics map[string]Metric) []string {
	var labels []string
	for _, m := range sortedByCost(metrics) {
		labels = append(labels, m.label)
	}
	return labels
}
