package charging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
	"github.com/FACorreiaa/charge-analytics/pkg/storage"
)

const homeAndAway = `Date,Location,Charger Type,Energy Added (kWh),Charging Time,Cost,Starting SOC,Ending SOC
2024-01-06 22:00,Home,Home,40,4:00,$4.00,10%,80%
2024-01-13 22:00,Home,Home,40,4:00,$4.00,20%,80%
2024-02-03 23:00,Home,Home,40,4:00,$4.00,15%,80%
2024-03-04 18:00,Tejo SC,Supercharger,50,0:25,$20.00,30%,95%
2024-03-05 18:00,Mall,Public Level 2,20,2:00,$6.00,22%,85%
2024-03-06 12:00,Mall,Public Level 2,20,2:00,$6.00,40%,85%
`

type analysisCall struct {
	source  string
	success bool
}

type fakeAnalysisObserver struct {
	calls []analysisCall
}

func (f *fakeAnalysisObserver) ObserveAnalysis(source string, success bool, _ time.Duration) {
	f.calls = append(f.calls, analysisCall{source, success})
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	store, err := storage.NewTempStore(dir)
	require.NoError(t, err)

	svc := NewService(importservice.NewProcessor(logger), store, Options{
		MaxUploadBytes: 1 << 20,
		Currency:       "USD",
	}, logger)
	return svc, dir
}

func TestService_AnalyzeUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("full report", func(t *testing.T) {
		svc, dir := newTestService(t)
		observer := &fakeAnalysisObserver{}
		svc.WithObserver(observer)

		report, err := svc.AnalyzeUpload(ctx, "history.csv", []byte(homeAndAway), DefaultRequest())
		require.NoError(t, err)

		assert.Equal(t, "success", report.Status)
		_, err = uuid.Parse(report.AnalysisID)
		assert.NoError(t, err)

		assert.Equal(t, ProcessingSummary{
			FormatDetected: "tesla_mobile",
			OriginalRows:   6,
			ProcessedRows:  6,
			DataQuality:    normalizer.QualityExcellent,
			Issues:         []string{},
		}, report.Processing)

		assert.InDelta(t, 210.0, report.Metadata.TotalEnergyKWh, 1e-9)
		assert.InDelta(t, 44.0, report.Metadata.TotalCost, 1e-9)
		assert.Equal(t, "2024-01-06T22:00:00", *report.Metadata.DateRange.Start)
		assert.Equal(t, "2024-03-06T12:00:00", *report.Metadata.DateRange.End)
		assert.Contains(t, report.Metadata.ColumnsAnalyzed, normalizer.ColChargingDurationMinutes)
		assert.Nil(t, report.Metadata.RateStructure)

		a := report.Analysis
		assert.Equal(t, 0.2095, a.Summary.OverallCostPerKWh)
		assert.Len(t, a.ChargerAnalysis, 3)
		assert.Len(t, a.LocationAnalysis, 3)
		assert.NotEmpty(t, a.Recommendations)
		require.NotNil(t, a.Display)
		assert.Equal(t, "$44.00", a.Display.TotalCost)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "staged upload is removed")

		assert.Equal(t, []analysisCall{{SourceUpload, true}}, observer.calls)
	})

	t.Run("recommendations can be left out", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := DefaultRequest()
		req.IncludeRecommendations = false
		rate := "time-of-use"
		req.RateStructure = &rate

		report, err := svc.AnalyzeUpload(ctx, "history.csv", []byte(homeAndAway), req)
		require.NoError(t, err)
		assert.Equal(t, []string{}, report.Analysis.Recommendations)
		assert.Equal(t, "time-of-use", *report.Metadata.RateStructure)
	})

	t.Run("location filter", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := DefaultRequest()
		req.LocationFilter = []string{"Mall"}

		report, err := svc.AnalyzeUpload(ctx, "history.csv", []byte(homeAndAway), req)
		require.NoError(t, err)
		assert.Equal(t, 0.3, report.Analysis.Summary.OverallCostPerKWh)
		assert.Len(t, report.Analysis.LocationAnalysis, 1)
	})

	t.Run("nothing left after filters", func(t *testing.T) {
		svc, _ := newTestService(t)
		req := DefaultRequest()
		req.LocationFilter = []string{"Nowhere"}

		_, err := svc.AnalyzeUpload(ctx, "history.csv", []byte(homeAndAway), req)
		assert.ErrorIs(t, err, ErrNoDataAfterFilters)
	})

	t.Run("unrecognized export", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.AnalyzeUpload(ctx, "odd.csv", []byte("Foo,Bar\n1,2\n"), DefaultRequest())

		var perr *ProcessingError
		require.ErrorAs(t, err, &perr)
		require.Len(t, perr.Issues, 1)
		assert.True(t, strings.HasPrefix(perr.Issues[0], "Processing error: unrecognized CSV format"))
	})

	t.Run("poor quality", func(t *testing.T) {
		svc, _ := newTestService(t)
		observer := &fakeAnalysisObserver{}
		svc.WithObserver(observer)
		data := "Date,kWh,Cost\nn/a,10,2\nn/a,11,2\nn/a,12,2\nn/a,13,2\n2024-01-01,14,2\n"

		_, err := svc.AnalyzeUpload(ctx, "generic.csv", []byte(data), DefaultRequest())

		var qerr *QualityError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, normalizer.QualityPoor, qerr.Quality)
		assert.Len(t, qerr.Suggestions, 3)
		assert.Equal(t, []analysisCall{{SourceUpload, false}}, observer.calls)
	})
}

func TestService_UploadRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		data    []byte
		message string
	}{
		{"wrong extension", "notes.txt", []byte(homeAndAway), "File must be CSV"},
		{"empty", "history.csv", nil, "Uploaded file is empty"},
		{"too large", "history.csv", make([]byte, 1<<20+1), "File too large (>1 MB limit)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AnalyzeUpload(ctx, tt.file, tt.data, DefaultRequest())
			require.ErrorIs(t, err, ErrInvalidUpload)
			assert.Equal(t, tt.message, err.Error())
		})
	}

	t.Run("invalid csv", func(t *testing.T) {
		for name, data := range map[string][]byte{
			"broken.csv.gz": {0x1f, 0x8b, 0x01},
			"prose.csv":     []byte("hello\nworld\n"),
		} {
			_, err := svc.AnalyzeUpload(ctx, name, data, DefaultRequest())
			require.ErrorIs(t, err, ErrInvalidUpload, name)
			assert.True(t, strings.HasPrefix(err.Error(), "Invalid CSV: "), err.Error())
		}
	})

	t.Run("accepted extensions", func(t *testing.T) {
		for _, name := range []string{"a.csv", "A.CSV", "a.csv.gz", "book.xlsx"} {
			assert.NoError(t, svc.CheckUpload(name, 10), name)
		}
	})

	t.Run("inverted date range", func(t *testing.T) {
		req := DefaultRequest()
		start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, -1, 0)
		req.DateRangeStart, req.DateRangeEnd = &start, &end

		_, err := svc.AnalyzeUpload(ctx, "history.csv", []byte(homeAndAway), req)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestService_AnalyzeSessions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	day := func(d int) *time.Time {
		v := time.Date(2024, 4, d, 19, 0, 0, 0, time.UTC)
		return &v
	}
	home, mall := "Home", "Mall"
	sessions := []SessionInput{
		{Date: day(1), EnergyKWh: 30, Cost: 3, Location: &home},
		{Date: day(2), EnergyKWh: 30, Cost: 3, Location: &home},
		{Date: day(3), EnergyKWh: 20, Cost: 6, Location: &mall},
		{Date: day(4), EnergyKWh: 20, Cost: 6, Location: &mall},
		{Date: day(5), EnergyKWh: 25, Cost: 2.5, Location: &home},
	}

	t.Run("analyzes all sessions", func(t *testing.T) {
		result, err := svc.AnalyzeSessions(ctx, sessions, DefaultRequest())
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, 5, result.Metadata.SessionsAnalyzed)
		assert.Equal(t, FiltersApplied{}, result.Metadata.FiltersApplied)
		assert.Equal(t, 0.164, result.Data.Summary.OverallCostPerKWh)
		assert.Empty(t, result.Data.ChargerAnalysis)
		assert.Equal(t, []string{"unknown"}, result.Data.Patterns.PreferredChargerTypes)
		assert.Contains(t, result.Data.Recommendations,
			"Charging often occurs during peak hours (5–8 PM). Shift to off-peak (11 PM–6 AM) to save.")
	})

	t.Run("date range", func(t *testing.T) {
		req := DefaultRequest()
		req.DateRangeStart = day(2)
		req.DateRangeEnd = day(4)

		result, err := svc.AnalyzeSessions(ctx, sessions, req)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Metadata.SessionsAnalyzed)
		assert.Equal(t, FiltersApplied{DateRange: true}, result.Metadata.FiltersApplied)
	})

	t.Run("nothing left after filters", func(t *testing.T) {
		req := DefaultRequest()
		req.LocationFilter = []string{"Office"}
		_, err := svc.AnalyzeSessions(ctx, sessions, req)
		assert.ErrorIs(t, err, ErrNoDataAfterFilters)
	})

	t.Run("no sessions", func(t *testing.T) {
		_, err := svc.AnalyzeSessions(ctx, nil, DefaultRequest())
		assert.ErrorIs(t, err, ErrNoSessions)
	})

	t.Run("invalid sessions", func(t *testing.T) {
		soc := 120.0
		_, err := svc.AnalyzeSessions(ctx, []SessionInput{
			{Date: day(1), EnergyKWh: 0, Cost: 1},
			{EnergyKWh: 10, Cost: -1, StartSOC: &soc},
		}, DefaultRequest())

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		fields := make([]string, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{
			"sessions[0].energy_kwh",
			"sessions[1].date",
			"sessions[1].cost",
			"sessions[1].start_soc",
		}, fields)
		assert.True(t, IsClientError(err))
	})
}

func TestService_Normalize(t *testing.T) {
	svc, _ := newTestService(t)

	out, err := svc.Normalize(context.Background(), "history.csv", []byte(homeAndAway), nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 7)
	assert.True(t, strings.HasPrefix(lines[0], "session_date,"))

	_, err = svc.Normalize(context.Background(), "odd.csv", []byte("Foo,Bar\n1,2\n"), nil)
	var perr *ProcessingError
	assert.ErrorAs(t, err, &perr)

	wallbox := "Exported by wallbox\nDate|kWh|Cost\n2024-01-01 08:00|10|2\n"
	out, err = svc.Normalize(context.Background(), "wallbox.csv", []byte(wallbox), &sniffer.DetectOptions{HeaderRowIndex: 1, Delimiter: '|'})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 2)
}

func TestService_AnalyzeUploadLayout(t *testing.T) {
	svc, _ := newTestService(t)

	data := "Exported by wallbox;v2\nDate;kWh;Cost\n2024-01-01 08:00;10;2\n2024-01-02 08:00;10;3\n"

	req := DefaultRequest()
	req.Layout = &sniffer.DetectOptions{HeaderRowIndex: 5}
	_, err := svc.AnalyzeUpload(context.Background(), "wallbox.csv", []byte(data), req)
	assert.ErrorIs(t, err, ErrInvalidUpload)

	req.Layout = &sniffer.DetectOptions{HeaderRowIndex: 1, Delimiter: ';'}
	report, err := svc.AnalyzeUpload(context.Background(), "wallbox.csv", []byte(data), req)
	require.NoError(t, err)
	assert.Equal(t, "generic", report.Processing.FormatDetected)
	assert.Equal(t, 2, report.Processing.ProcessedRows)
	assert.Equal(t, 0.25, report.Analysis.Summary.OverallCostPerKWh)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(&UploadError{Message: "File must be CSV"}))
	assert.True(t, IsClientError(ErrNoDataAfterFilters))
	assert.True(t, IsClientError(&QualityError{}))
	assert.False(t, IsClientError(assert.AnError))
}
