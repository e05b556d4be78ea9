package efficiency

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	highCostPerKWh     = 0.25
	priceGapPerKWh     = 0.10
	lowStartSOC        = 20.0
	highEndSOC         = 90.0
	smallSessionKWh    = 10.0
	minLocationsToRank = 3
	cheapestLocations  = 2

	// The sample is treated as roughly a quarter of driving, of which only
	// part can realistically move to the cheapest charger type.
	annualizationFactor = 365.0 / 90.0
	optimizableShare    = 0.6

	// float noise at the price gap boundary
	gapEpsilon = 1e-9
)

var peakHours = []int{17, 18, 19, 20}

type labeledMetric struct {
	label string
	Metric
}

// sortedByCost orders metrics by cost per kWh, then label.
func sortedByCost(m map[string]Metric) []labeledMetric {
	out := make([]labeledMetric, 0, len(m))
	for label, metric := range m {
		out = append(out, labeledMetric{label, metric})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CostPerKWh != out[j].CostPerKWh {
			return out[i].CostPerKWh < out[j].CostPerKWh
		}
		return out[i].label < out[j].label
	})
	return out
}

// Recommend derives ordered advice from aggregates. Every rule is evaluated
// and the output order is fixed.
func Recommend(agg *Aggregates) []string {
	recs := []string{}

	if agg.Overall.CostPerKWh > highCostPerKWh {
		recs = append(recs, fmt.Sprintf(
			"Average cost per kWh ($%.3f) is high. Prefer home/off-peak charging or cheaper public stations.",
			agg.Overall.CostPerKWh))
	}

	if types := sortedByCost(agg.ByChargerType); len(types) > 0 {
		best := types[0]
		worst := mostExpensive(types)
		if worst.CostPerKWh-best.CostPerKWh >= priceGapPerKWh-gapEpsilon {
			recs = append(recs, fmt.Sprintf(
				"Large price gap across types: %s ($%.3f/kWh) vs %s ($%.3f/kWh). Prefer %s.",
				best.label, best.CostPerKWh, worst.label, worst.CostPerKWh, best.label))
		}
	}

	if len(agg.ByLocation) >= minLocationsToRank {
		locs := sortedByCost(agg.ByLocation)[:cheapestLocations]
		parts := make([]string, 0, len(locs))
		for _, l := range locs {
			parts = append(parts, fmt.Sprintf("%s ($%.3f/kWh)", l.label, l.CostPerKWh))
		}
		recs = append(recs, "Most cost-effective locations: "+strings.Join(parts, ", "))
	}

	p := agg.Patterns
	if p.AvgSOCStart != nil && *p.AvgSOCStart < lowStartSOC {
		recs = append(recs, fmt.Sprintf(
			"Charges often start at low SOC (~%.0f%%). Starting earlier (≥20%%) is gentler on the battery.",
			*p.AvgSOCStart))
	}
	if p.AvgSOCEnd != nil && *p.AvgSOCEnd > highEndSOC {
		recs = append(recs, fmt.Sprintf(
			"Charges frequently end at high SOC (~%.0f%%). Limit daily targets to 80–90%% to reduce degradation.",
			*p.AvgSOCEnd))
	}

	if slices.ContainsFunc(p.PeakUsageHours, func(h int) bool { return slices.Contains(peakHours, h) }) {
		recs = append(recs,
			"Charging often occurs during peak hours (5–8 PM). Shift to off-peak (11 PM–6 AM) to save.")
	}

	if p.AvgSessionEnergyKWh > 0 && p.AvgSessionEnergyKWh < smallSessionKWh {
		recs = append(recs, fmt.Sprintf(
			"Average session size is small (~%.1f kWh). Consolidating sessions can reduce idle/overhead costs.",
			p.AvgSessionEnergyKWh))
	}

	return recs
}

// mostExpensive picks the highest cost per kWh; ties go to the first label.
func mostExpensive(sorted []labeledMetric) labeledMetric {
	worst := sorted[len(sorted)-1]
	for _, m := range sorted {
		if m.CostPerKWh == worst.CostPerKWh {
			return m
		}
	}
	return worst
}

// EstimateSavings is the annual amount saved by moving the optimizable share
// of charging to the cheapest charger type. It is never negative.
func EstimateSavings(agg *Aggregates) float64 {
	if agg.TotalEnergyKWh <= 0 || len(agg.ByChargerType) == 0 {
		return 0
	}
	cheapest := sortedByCost(agg.ByChargerType)[0].CostPerKWh
	perKWh := max(0, agg.Overall.CostPerKWh-cheapest)
	return perKWh * agg.TotalEnergyKWh * annualizationFactor * optimizableShare
}
