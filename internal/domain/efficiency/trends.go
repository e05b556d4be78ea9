package efficiency

import (
	"sort"
	"time"
)

const (
	minTrendRows   = 6
	minTrendMonths = 3
)

type monthBucket struct {
	month              time.Time
	cost, energy, rate float64
	n                  int
}

// monthlyTrends returns the per-month slope of mean cost, mean energy and
// mean cost per kWh. Months without sessions are skipped, so the slope is
// (last - first) / (observed months - 1).
func monthlyTrends(rows []sessionRow) map[string]float64 {
	trends := map[string]float64{}

	buckets := map[time.Time]*monthBucket{}
	dated := 0
	for _, r := range rows {
		if r.SessionDate == nil {
			continue
		}
		dated++
		d := r.SessionDate.UTC()
		month := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		b, ok := buckets[month]
		if !ok {
			b = &monthBucket{month: month}
			buckets[month] = b
		}
		b.cost += r.TotalCost
		b.energy += r.EnergyAddedKWh
		b.rate += r.costPerKWh()
		b.n++
	}
	if dated < minTrendRows || len(buckets) < minTrendMonths {
		return trends
	}

	months := make([]*monthBucket, 0, len(buckets))
	for _, b := range buckets {
		months = append(months, b)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].month.Before(months[j].month)
	})

	first, last := months[0], months[len(months)-1]
	steps := float64(len(months) - 1)
	mean := func(b *monthBucket, sum float64) float64 { return sum / float64(b.n) }

	trends[TrendMonthlyCost] = (mean(last, last.cost) - mean(first, first.cost)) / steps
	trends[TrendMonthlyEfficiency] = (mean(last, last.rate) - mean(first, first.rate)) / steps
	trends[TrendMonthlyEnergy] = (mean(last, last.energy) - mean(first, first.energy)) / steps
	return trends
}
