package normalizer

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/parser"
)

// CleanStats counts what cleaning removed or could not read.
type CleanStats struct {
	InputRows        int
	InvalidEnergy    int
	NegativeCost     int
	Duplicates       int
	UnparsedDates    int
	UnparsedSOC      int
	UnparsedDuration int
}

// Clean converts string rows with canonical column names into sessions.
// Rows without positive energy or with a negative or unreadable cost are
// dropped, SOC is clamped to [0, 100], durations become minutes and repeated
// (date, energy, cost) triples keep their first occurrence.
func Clean(columns []string, rows [][]string) (*Table, CleanStats) {
	stats := CleanStats{InputRows: len(rows)}
	idx := columnIndex(columns)

	cell := func(row []string, col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return row[i], true
	}

	_, hasDuration := idx[ColChargingDuration]
	_, hasMinutes := idx[ColChargingDurationMinutes]

	sessions := make([]Session, 0, len(rows))
	for _, row := range rows {
		var s Session

		if raw, ok := cell(row, ColSessionDate); ok {
			if t, ok := parser.ParseDate(raw); ok {
				s.SessionDate = &t
			} else if strings.TrimSpace(raw) != "" {
				stats.UnparsedDates++
			}
		}
		s.SessionTime = clockCell(cell(row, ColSessionTime))
		s.StartTime = clockCell(cell(row, ColStartTime))
		s.EndTime = clockCell(cell(row, ColEndTime))

		if raw, ok := cell(row, ColEnergyAddedKWh); ok {
			v, ok := parser.ParseNumber(raw)
			if !ok || v <= 0 {
				stats.InvalidEnergy++
				continue
			}
			s.EnergyAddedKWh = v
		}

		if raw, ok := cell(row, ColTotalCost); ok {
			v, ok := parser.ParseCurrency(raw)
			if !ok || v < 0 {
				stats.NegativeCost++
				continue
			}
			s.TotalCost = v
		}

		s.MaxPowerKW = numberCell(cell(row, ColMaxPowerKW))
		s.AvgPowerKW = numberCell(cell(row, ColAvgPowerKW))

		var socMissed bool
		s.StartSOCPercent, socMissed = socCell(cell(row, ColStartSOCPercent))
		if socMissed {
			stats.UnparsedSOC++
		}
		s.EndSOCPercent, socMissed = socCell(cell(row, ColEndSOCPercent))
		if socMissed {
			stats.UnparsedSOC++
		}

		switch {
		case hasDuration:
			raw, _ := cell(row, ColChargingDuration)
			s.ChargingDuration = textCell(raw, true)
			if s.ChargingDuration != nil {
				if m, ok := parser.ParseDurationMinutes(raw); ok {
					s.ChargingDurationMinutes = &m
				} else {
					stats.UnparsedDuration++
				}
			}
		case hasMinutes:
			s.ChargingDurationMinutes = numberCell(cell(row, ColChargingDurationMinutes))
		}

		if raw, ok := cell(row, ColLocationName); ok {
			s.LocationName = locationCell(raw)
		}
		s.ChargerType = textCell(cell(row, ColChargerType))
		s.LocationAddress = textCell(cell(row, ColLocationAddress))
		s.ConnectorType = textCell(cell(row, ColConnectorType))
		s.VehicleName = textCell(cell(row, ColVehicleName))

		sessions = append(sessions, s)
	}

	before := len(sessions)
	if hasAll(idx, RequiredColumns) {
		sessions = Deduplicate(sessions)
	}
	stats.Duplicates = before - len(sessions)

	out := slices.Clone(columns)
	if hasDuration && !hasMinutes {
		out = append(out, ColChargingDurationMinutes)
	}

	return &Table{Columns: out, Sessions: sessions}, stats
}

type dedupeKey struct {
	dated  bool
	date   int64
	energy float64
	cost   float64
}

// Deduplicate keeps the first session of every (date, energy, cost) triple.
// Sessions without a date share one date key.
func Deduplicate(sessions []Session) []Session {
	seen := make(map[dedupeKey]struct{}, len(sessions))
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		key := dedupeKey{energy: s.EnergyAddedKWh, cost: s.TotalCost}
		if s.SessionDate != nil {
			key.dated = true
			key.date = s.SessionDate.UnixNano()
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return idx
}

func hasAll(idx map[string]int, cols []string) bool {
	for _, c := range cols {
		if _, ok := idx[c]; !ok {
			return false
		}
	}
	return true
}

func textCell(raw string, ok bool) *string {
	if !ok {
		return nil
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

// locationCell also treats the literal text "nan" as missing.
func locationCell(raw string) *string {
	v := strings.TrimSpace(raw)
	switch v {
	case "", "nan", "NaN":
		return nil
	}
	return &v
}

func numberCell(raw string, ok bool) *float64 {
	if !ok {
		return nil
	}
	v, ok := parser.ParseNumber(raw)
	if !ok {
		return nil
	}
	return &v
}

func clockCell(raw string, ok bool) *string {
	if !ok {
		return nil
	}
	v, ok := parser.ParseClock(raw)
	if !ok {
		return nil
	}
	return &v
}

// socCell reports missed when a non-empty value could not be read.
func socCell(raw string, ok bool) (*float64, bool) {
	if !ok {
		return nil, false
	}
	v, ok := parser.ParsePercent(raw)
	if !ok {
		return nil, strings.TrimSpace(raw) != ""
	}
	v = math.Max(0, math.Min(100, v))
	return &v, false
}

// Timestamp formats a session date the way metadata reports it.
func Timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02T15:04:05")
	return &s
}
