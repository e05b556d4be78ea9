package service

import (
	"fmt"
	"strconv"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

// CanonicalRow is one session in the canonical CSV layout.
type CanonicalRow struct {
	SessionDate             string `csv:"session_date"`
	SessionTime             string `csv:"session_time"`
	EnergyAddedKWh          string `csv:"energy_added_kwh"`
	TotalCost               string `csv:"total_cost"`
	ChargingDurationMinutes string `csv:"charging_duration_minutes"`
	ChargerType             string `csv:"charger_type"`
	LocationName            string `csv:"location_name"`
	LocationAddress         string `csv:"location_address"`
	ConnectorType           string `csv:"connector_type"`
	VehicleName             string `csv:"vehicle_name"`
	StartSOCPercent         string `csv:"start_soc_percent"`
	EndSOCPercent           string `csv:"end_soc_percent"`
	MaxPowerKW              string `csv:"max_power_kw"`
	AvgPowerKW              string `csv:"avg_power_kw"`
}

// CanonicalRows projects a table onto the canonical layout. Missing values
// are empty strings.
func CanonicalRows(table *normalizer.Table) []*CanonicalRow {
	rows := make([]*CanonicalRow, 0, table.Len())
	for i := range table.Sessions {
		s := &table.Sessions[i]
		row := &CanonicalRow{
			EnergyAddedKWh:          formatFloat(s.EnergyAddedKWh),
			TotalCost:               formatFloat(s.TotalCost),
			ChargingDurationMinutes: optionalFloat(s.ChargingDurationMinutes),
			ChargerType:             optionalText(s.ChargerType),
			LocationName:            optionalText(s.LocationName),
			LocationAddress:         optionalText(s.LocationAddress),
			ConnectorType:           optionalText(s.ConnectorType),
			VehicleName:             optionalText(s.VehicleName),
			StartSOCPercent:         optionalFloat(s.StartSOCPercent),
			EndSOCPercent:           optionalFloat(s.EndSOCPercent),
			MaxPowerKW:              optionalFloat(s.MaxPowerKW),
			AvgPowerKW:              optionalFloat(s.AvgPowerKW),
		}
		row.SessionDate = optionalText(normalizer.Timestamp(s.SessionDate))
		switch {
		case s.SessionTime != nil:
			row.SessionTime = *s.SessionTime
		case s.StartTime != nil:
			row.SessionTime = *s.StartTime
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportCSV writes the cleaned sessions as canonical CSV. The header row is
// written even for an empty table.
func ExportCSV(table *normalizer.Table) ([]byte, error) {
	out, err := gocsv.MarshalBytes(CanonicalRows(table))
	if err != nil {
		return nil, fmt.Errorf("failed to export csv: %w", err)
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optionalText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
