package efficiency

import (
	"cmp"
	"slices"
	"time"
)

func behaviorPatterns(rows []sessionRow, categorized bool) Patterns {
	energy, _ := sumEnergyCost(rows)
	p := Patterns{
		AvgSessionEnergyKWh:   energy / float64(len(rows)),
		PreferredChargerTypes: []string{string(ChargerUnknown)},
		PeakUsageHours:        []int{},
		WeekendWeekdayRatio:   1.0,
	}

	if categorized {
		counts := map[string]int{}
		for _, r := range rows {
			counts[string(r.category)]++
		}
		p.PreferredChargerTypes = mostFrequent(counts, topN)
	}

	hours := map[int]int{}
	weekend, weekday := 0, 0
	for _, r := range rows {
		if r.SessionDate == nil {
			continue
		}
		hours[r.SessionDate.Hour()]++
		switch r.SessionDate.Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		default:
			weekday++
		}
	}
	p.PeakUsageHours = mostFrequent(hours, topN)
	if weekday > 0 {
		p.WeekendWeekdayRatio = float64(weekend) / float64(weekday)
	}

	p.AvgSOCStart = meanOf(rows, func(r sessionRow) *float64 { return r.StartSOCPercent })
	p.AvgSOCEnd = meanOf(rows, func(r sessionRow) *float64 { return r.EndSOCPercent })
	return p
}

// mostFrequent returns up to n keys by descending count. Equal counts order
// by ascending key.
func mostFrequent[K cmp.Ordered](counts map[K]int, n int) []K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func meanOf(rows []sessionRow, value func(sessionRow) *float64) *float64 {
	var sum float64
	n := 0
	for _, r := range rows {
		if v := value(r); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}
