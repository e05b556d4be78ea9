package normalizer

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

// formatMappings rename the columns of the known exports.
var formatMappings = map[sniffer.Format]map[string]string{
	sniffer.FormatTeslaMobile: {
		"Date":               ColSessionDate,
		"Location":           ColLocationName,
		"Charger Type":       ColChargerType,
		"Energy Added (kWh)": ColEnergyAddedKWh,
		"Charging Time":      ColChargingDuration,
		"Cost":               ColTotalCost,
		"Starting SOC":       ColStartSOCPercent,
		"Ending SOC":         ColEndSOCPercent,
	},
	sniffer.FormatTeslaWeb: {
		"Date":                   ColSessionDate,
		"Time":                   ColSessionTime,
		"Location Name":          ColLocationName,
		"Address":                ColLocationAddress,
		"Charger Type":           ColChargerType,
		"Connector Type":         ColConnectorType,
		"Energy Delivered (kWh)": ColEnergyAddedKWh,
		"Charging Time (HH:MM)":  ColChargingDuration,
		"Charge Cost":            ColTotalCost,
		"Vehicle":                ColVehicleName,
	},
	sniffer.FormatTeslaFi: {
		"Date":       ColSessionDate,
		"Start Time": ColStartTime,
		"End Time":   ColEndTime,
		"Location":   ColLocationName,
		"Charger":    ColChargerType,
		"kWh":        ColEnergyAddedKWh,
		"Cost":       ColTotalCost,
		"Start %":    ColStartSOCPercent,
		"End %":      ColEndSOCPercent,
		"Max Power":  ColMaxPowerKW,
		"Avg Power":  ColAvgPowerKW,
	},
}

// ColumnRule claims at most one source column for Target: patterns are tried
// in order and each pattern scans the headers left to right.
type ColumnRule struct {
	Target   string
	Patterns []*regexp.Regexp
}

func rule(target string, patterns ...string) ColumnRule {
	r := ColumnRule{Target: target}
	for _, p := range patterns {
		r.Patterns = append(r.Patterns, regexp.MustCompile(`(?i)`+p))
	}
	return r
}

// GenericRules map arbitrary exports. Earlier rules claim columns first.
var GenericRules = []ColumnRule{
	rule(ColEnergyAddedKWh, `kwh`, `energy`, `delivered`, `added`),
	rule(ColTotalCost, `cost`, `price`, `fee`, `charge\s*cost`),
	rule(ColSessionDate, `\bdate\b`, `session\s*date`, `\btime\b`),
	rule(ColStartSOCPercent, `start\s*%|starting\s*soc`),
	rule(ColEndSOCPercent, `end\s*%|ending\s*soc`),
	rule(ColChargingDuration, `duration|charging\s*time`),
	rule(ColLocationName, `location\s*name|location`),
}

// MapColumns returns headers renamed to canonical names for format. The
// result has the same length and order as headers; unmapped names are kept.
func MapColumns(format sniffer.Format, headers []string) []string {
	out := slices.Clone(headers)

	if mapping, ok := formatMappings[format]; ok {
		for i, h := range headers {
			if target, ok := mapping[h]; ok {
				out[i] = target
			}
		}
		return out
	}

	for idx, target := range MapGeneric(headers) {
		out[idx] = target
	}
	return out
}

// MapGeneric applies GenericRules and returns header index to target.
func MapGeneric(headers []string) map[int]string {
	claimed := make(map[int]string)
	for _, r := range GenericRules {
		if idx := firstMatch(r.Patterns, headers, claimed); idx >= 0 {
			claimed[idx] = r.Target
		}
	}
	return claimed
}

func firstMatch(patterns []*regexp.Regexp, headers []string, claimed map[int]string) int {
	for _, p := range patterns {
		for i, h := range headers {
			if _, taken := claimed[i]; taken {
				continue
			}
			if p.MatchString(h) {
				return i
			}
		}
	}
	return -1
}

// ValidateStructure checks the mapped columns and row count. It returns the
// issues that make the table unusable.
func ValidateStructure(columns []string, rows int) (bool, []string) {
	if missing := MissingColumns(columns); len(missing) > 0 {
		return false, []string{fmt.Sprintf("Missing required columns: %v", missing)}
	}
	if rows == 0 {
		return false, []string{"No data rows found"}
	}
	return true, nil
}
