package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

func TestInspect(t *testing.T) {
	t.Run("known export", func(t *testing.T) {
		in, err := Inspect(Source{Name: "history.csv", Data: []byte(mobileExport)})
		require.NoError(t, err)

		assert.Equal(t, "tesla_mobile", in.Format)
		assert.Equal(t, []string{"Date", "Energy Added (kWh)", "Cost", "Starting SOC"}, in.Headers)
		assert.Len(t, in.SampleRows, 5)
		assert.Equal(t, 10, in.Rows)
		assert.Equal(t, ",", in.Delimiter)
		assert.Equal(t, "csv", in.Source)
		assert.NotEmpty(t, in.Fingerprint)
		assert.Equal(t, map[string]string{
			"Date":               "session_date",
			"Energy Added (kWh)": "energy_added_kwh",
			"Cost":               "total_cost",
			"Starting SOC":       "start_soc_percent",
		}, in.Mapping)
		assert.Empty(t, in.Missing)
		assert.True(t, in.CanAutoImport)
	})

	t.Run("generic export missing a date", func(t *testing.T) {
		in, err := Inspect(Source{Name: "generic.csv", Data: []byte("kWh,Charge Cost,Day\n12,3,Monday\n")})
		require.NoError(t, err)

		assert.Equal(t, "generic", in.Format)
		assert.Equal(t, []string{"session_date"}, in.Missing)
		assert.Equal(t, []string{"Closest match for session_date: 'Day'"}, in.Hints)
		assert.False(t, in.CanAutoImport)
	})

	t.Run("unrecognized layout", func(t *testing.T) {
		in, err := Inspect(Source{Name: "odd.csv", Data: []byte("Foo,Bar\n1,2\n")})
		require.NoError(t, err)

		assert.Empty(t, in.Format)
		assert.Equal(t, []string{"session_date", "energy_added_kwh", "total_cost"}, in.Missing)
		assert.False(t, in.CanAutoImport)
	})

	t.Run("layout override", func(t *testing.T) {
		data := "Exported by wallbox\nDate;kWh;Cost\n2024-01-01 08:00;10;2\n2024-01-02 08:00;12;2.4\n"
		in, err := Inspect(Source{
			Name:   "wallbox.csv",
			Data:   []byte(data),
			Layout: &sniffer.DetectOptions{HeaderRowIndex: 1, Delimiter: ';'},
		})
		require.NoError(t, err)

		assert.Equal(t, 1, in.SkipLines)
		assert.Equal(t, ";", in.Delimiter)
		assert.Equal(t, "generic", in.Format)
		assert.Equal(t, [][]string{
			{"2024-01-01 08:00", "10", "2"},
			{"2024-01-02 08:00", "12", "2.4"},
		}, in.SampleRows)
		assert.True(t, in.CanAutoImport)

		_, err = Inspect(Source{Name: "wallbox.csv", Data: []byte(data), Layout: &sniffer.DetectOptions{HeaderRowIndex: 9}})
		assert.ErrorIs(t, err, sniffer.ErrNoHeadersFound)
	})

	t.Run("unreadable", func(t *testing.T) {
		_, err := Inspect(Source{Name: "x.csv.gz", Data: []byte{0x1f, 0x8b, 0x01}})
		assert.Error(t, err)
	})
}

func TestParseLayout(t *testing.T) {
	layout, _, err := ParseLayout(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, layout)

	layout, _, err = ParseLayout(url.Values{ParamHeaderRow: {"3"}, ParamDelimiter: {"pipe"}})
	require.NoError(t, err)
	assert.Equal(t, &sniffer.DetectOptions{HeaderRowIndex: 3, Delimiter: '|'}, layout)

	_, param, err := ParseLayout(url.Values{ParamHeaderRow: {"x"}, ParamDelimiter: {"pipe"}})
	assert.ErrorIs(t, err, sniffer.ErrInvalidOption)
	assert.Equal(t, ParamHeaderRow, param)

	_, param, err = ParseLayout(url.Values{ParamDelimiter: {"::"}})
	assert.ErrorIs(t, err, sniffer.ErrInvalidOption)
	assert.Equal(t, ParamDelimiter, param)
}
