package charging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

func at(day int) *time.Time {
	d := time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)
	return &d
}

func text(s string) *string { return &s }

func filterTable() *normalizer.Table {
	return &normalizer.Table{
		Columns: []string{normalizer.ColSessionDate, normalizer.ColEnergyAddedKWh, normalizer.ColTotalCost, normalizer.ColLocationName},
		Sessions: []normalizer.Session{
			{SessionDate: at(1), EnergyAddedKWh: 10, TotalCost: 1, LocationName: text("Home")},
			{SessionDate: at(5), EnergyAddedKWh: 20, TotalCost: 2, LocationName: text("Mall")},
			{SessionDate: at(9), EnergyAddedKWh: 30, TotalCost: 3, LocationName: text("Home")},
			{SessionDate: nil, EnergyAddedKWh: 40, TotalCost: 4, LocationName: text("Home")},
			{SessionDate: at(9), EnergyAddedKWh: 50, TotalCost: 5},
		},
	}
}

func energies(t *normalizer.Table) []float64 {
	out := make([]float64, 0, t.Len())
	for _, s := range t.Sessions {
		out = append(out, s.EnergyAddedKWh)
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
		want []float64
	}{
		{"no filters", AnalysisRequest{}, []float64{10, 20, 30, 40, 50}},
		{"inclusive range", AnalysisRequest{DateRangeStart: at(5), DateRangeEnd: at(9)}, []float64{20, 30, 50}},
		{"start only", AnalysisRequest{DateRangeStart: at(6)}, []float64{30, 50}},
		{"end only", AnalysisRequest{DateRangeEnd: at(1)}, []float64{10}},
		{"locations", AnalysisRequest{LocationFilter: []string{"Home"}}, []float64{10, 30, 40}},
		{"location match is exact", AnalysisRequest{LocationFilter: []string{"home"}}, []float64{}},
		{"both", AnalysisRequest{LocationFilter: []string{"Home", "Mall"}, DateRangeStart: at(2)}, []float64{20, 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := filterTable()
			got := ApplyFilters(table, tt.req)
			assert.Equal(t, tt.want, energies(got))
			assert.Equal(t, 5, table.Len(), "input is untouched")
			assert.Equal(t, table.Columns, got.Columns)
		})
	}
}

func TestApplyFilters_MissingColumnDisablesFilter(t *testing.T) {
	table := filterTable()
	table.Columns = []string{normalizer.ColSessionDate, normalizer.ColEnergyAddedKWh, normalizer.ColTotalCost}

	got := ApplyFilters(table, AnalysisRequest{LocationFilter: []string{"Mall"}})
	assert.Equal(t, 5, got.Len())
}

func TestAnalysisRequest_JSON(t *testing.T) {
	var req AnalysisRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"include_recommendations": false,
		"location_filter": ["Home"],
		"date_range_start": "2024-05-01T00:00:00Z"
	}`), &req))

	assert.False(t, req.IncludeRecommendations)
	assert.True(t, req.HasDateRange())
	assert.NoError(t, req.Validate())
	assert.Equal(t, []string{"Home"}, req.LocationFilter)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-05-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())

	got, err = ParseDate("2024-05-01T10:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("yesterday")
	assert.EqualError(t, err, `expected RFC3339 or YYYY-MM-DD, got "yesterday"`)
}

func TestSessionsTable(t *testing.T) {
	soc := 35.0
	table := SessionsTable([]SessionInput{
		{Date: at(1), EnergyKWh: 10, Cost: 2, Location: text("  Depot "), StartSOC: &soc},
		{Date: at(2), EnergyKWh: 12, Cost: 3, Location: text(" ")},
	})

	assert.Equal(t, []string{
		normalizer.ColSessionDate,
		normalizer.ColEnergyAddedKWh,
		normalizer.ColTotalCost,
		normalizer.ColLocationName,
		normalizer.ColStartSOCPercent,
	}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "Depot", *table.Sessions[0].LocationName)
	assert.Nil(t, table.Sessions[1].LocationName)
	assert.False(t, table.Has(normalizer.ColChargerType))
}

func TestSupportedFormats(t *testing.T) {
	caps := SupportedFormats(10 * 1024 * 1024)

	assert.Equal(t, "10MB", caps.Requirements.FileSizeLimit)
	assert.Equal(t, 5, caps.Requirements.MinimumSessions)
	assert.Len(t, caps.Formats, 4)
	assert.Equal(t, []string{"Date", "kWh", "Cost"}, caps.Formats["teslafi"].RequiredColumns)
	assert.Len(t, caps.AnalysisCapabilities, 6)
}
