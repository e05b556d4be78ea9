// Package normalizer maps vendor columns onto the canonical session schema,
// cleans the values and scores how complete the result is.
package normalizer

import (
	"slices"
	"time"
)

// Canonical column names.
const (
	ColSessionDate             = "session_date"
	ColSessionTime             = "session_time"
	ColStartTime               = "start_time"
	ColEndTime                 = "end_time"
	ColEnergyAddedKWh          = "energy_added_kwh"
	ColTotalCost               = "total_cost"
	ColChargingDuration        = "charging_duration"
	ColChargingDurationMinutes = "charging_duration_minutes"
	ColChargerType             = "charger_type"
	ColLocationName            = "location_name"
	ColLocationAddress         = "location_address"
	ColConnectorType           = "connector_type"
	ColVehicleName             = "vehicle_name"
	ColStartSOCPercent         = "start_soc_percent"
	ColEndSOCPercent           = "end_soc_percent"
	ColMaxPowerKW              = "max_power_kw"
	ColAvgPowerKW              = "avg_power_kw"
)

// RequiredColumns must all be present for a table to be analyzed.
var RequiredColumns = []string{ColSessionDate, ColEnergyAddedKWh, ColTotalCost}

// OptionalColumns contribute to the quality score when present.
var OptionalColumns = []string{
	ColStartSOCPercent,
	ColEndSOCPercent,
	ColChargingDuration,
	ColLocationName,
	ColChargerType,
	ColMaxPowerKW,
	ColAvgPowerKW,
	ColSessionTime,
	ColStartTime,
	ColEndTime,
	ColLocationAddress,
	ColConnectorType,
	ColVehicleName,
	ColChargingDurationMinutes,
}

// Session is one cleaned charging event. Nil pointers are missing values.
type Session struct {
	SessionDate             *time.Time
	SessionTime             *string
	StartTime               *string
	EndTime                 *string
	EnergyAddedKWh          float64
	TotalCost               float64
	ChargingDuration        *string
	ChargingDurationMinutes *float64
	ChargerType             *string
	LocationName            *string
	LocationAddress         *string
	ConnectorType           *string
	VehicleName             *string
	StartSOCPercent         *float64
	EndSOCPercent           *float64
	MaxPowerKW              *float64
	AvgPowerKW              *float64
}

// Table is the normalized session table. Columns records which columns the
// source provided, including unmapped ones, in source order.
type Table struct {
	Columns  []string
	Sessions []Session
}

// Len returns the number of sessions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Sessions)
}

// Has reports whether the table carries the column.
func (t *Table) Has(column string) bool {
	return t != nil && slices.Contains(t.Columns, column)
}

// WithSessions returns a table with the same columns and the given rows.
func (t *Table) WithSessions(sessions []Session) *Table {
	return &Table{Columns: slices.Clone(t.Columns), Sessions: sessions}
}

// NonNull counts sessions holding a value for column. Columns outside the
// canonical schema always count zero.
func (t *Table) NonNull(column string) int {
	present, ok := presence[column]
	if !ok || t == nil {
		return 0
	}
	n := 0
	for i := range t.Sessions {
		if present(&t.Sessions[i]) {
			n++
		}
	}
	return n
}

// DateRange returns the earliest and latest session dates.
func (t *Table) DateRange() (start, end *time.Time) {
	for i := range t.Sessions {
		d := t.Sessions[i].SessionDate
		if d == nil {
			continue
		}
		if start == nil || d.Before(*start) {
			start = d
		}
		if end == nil || d.After(*end) {
			end = d
		}
	}
	return start, end
}

// Totals returns summed energy and cost.
func (t *Table) Totals() (energyKWh, cost float64) {
	for i := range t.Sessions {
		energyKWh += t.Sessions[i].EnergyAddedKWh
		cost += t.Sessions[i].TotalCost
	}
	return energyKWh, cost
}

var presence = map[string]func(*Session) bool{
	ColSessionDate:             func(s *Session) bool { return s.SessionDate != nil },
	ColSessionTime:             func(s *Session) bool { return s.SessionTime != nil },
	ColStartTime:               func(s *Session) bool { return s.StartTime != nil },
	ColEndTime:                 func(s *Session) bool { return s.EndTime != nil },
	ColEnergyAddedKWh:          func(*Session) bool { return true },
	ColTotalCost:               func(*Session) bool { return true },
	ColChargingDuration:        func(s *Session) bool { return s.ChargingDuration != nil },
	ColChargingDurationMinutes: func(s *Session) bool { return s.ChargingDurationMinutes != nil },
	ColChargerType:             func(s *Session) bool { return s.ChargerType != nil },
	ColLocationName:            func(s *Session) bool { return s.LocationName != nil },
	ColLocationAddress:         func(s *Session) bool { return s.LocationAddress != nil },
	ColConnectorType:           func(s *Session) bool { return s.ConnectorType != nil },
	ColVehicleName:             func(s *Session) bool { return s.VehicleName != nil },
	ColStartSOCPercent:         func(s *Session) bool { return s.StartSOCPercent != nil },
	ColEndSOCPercent:           func(s *Session) bool { return s.EndSOCPercent != nil },
	ColMaxPowerKW:              func(s *Session) bool { return s.MaxPowerKW != nil },
	ColAvgPowerKW:              func(s *Session) bool { return s.AvgPowerKW != nil },
}
