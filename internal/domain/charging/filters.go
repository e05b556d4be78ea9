package charging

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

// AnalysisRequest holds the optional knobs of an analysis.
type AnalysisRequest struct {
	IncludeRecommendations bool       `json:"include_recommendations"`
	RateStructure          *string    `json:"rate_structure,omitempty"`
	LocationFilter         []string   `json:"location_filter,omitempty"`
	DateRangeStart         *time.Time `json:"date_range_start,omitempty"`
	DateRangeEnd           *time.Time `json:"date_range_end,omitempty"`
	// Layout overrides header row and delimiter detection for uploads.
	Layout *sniffer.DetectOptions `json:"-"`
}

// DefaultRequest includes recommendations and applies no filter.
func DefaultRequest() AnalysisRequest {
	return AnalysisRequest{IncludeRecommendations: true}
}

var errInvertedRange = errors.New("date_range_end must not be before date_range_start")

// Validate rejects an inverted date range.
func (r AnalysisRequest) Validate() error {
	if r.DateRangeStart != nil && r.DateRangeEnd != nil && r.DateRangeEnd.Before(*r.DateRangeStart) {
		return errInvertedRange
	}
	return nil
}

// ParseDate reads a date range bound. RFC3339 values are converted to UTC;
// "2006-01-02T15:04:05" and "2006-01-02" are taken as UTC wall time.
func ParseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", v)
	}
	return t, nil
}

// HasDateRange reports whether either bound is set.
func (r AnalysisRequest) HasDateRange() bool {
	return r.DateRangeStart != nil || r.DateRangeEnd != nil
}

// ApplyFilters keeps sessions inside the inclusive date range and whose
// location is in the allow-list. A filter only applies when the table has the
// column it reads; sessions without a value are dropped by an active filter.
// The input table is not modified.
func ApplyFilters(table *normalizer.Table, req AnalysisRequest) *normalizer.Table {
	byDate := req.HasDateRange() && table.Has(normalizer.ColSessionDate)
	byLocation := len(req.LocationFilter) > 0 && table.Has(normalizer.ColLocationName)

	kept := make([]normalizer.Session, 0, table.Len())
	for _, s := range table.Sessions {
		if byDate && !inRange(s.SessionDate, req.DateRangeStart, req.DateRangeEnd) {
			continue
		}
		if byLocation && (s.LocationName == nil || !slices.Contains(req.LocationFilter, *s.LocationName)) {
			continue
		}
		kept = append(kept, s)
	}
	return table.WithSessions(kept)
}

func inRange(d, start, end *time.Time) bool {
	if d == nil {
		return false
	}
	if start != nil && d.Before(*start) {
		return false
	}
	if end != nil && d.After(*end) {
		return false
	}
	return true
}
