package efficiency

import (
	"fmt"
	"math"
)

// Rating bounds on cost per kWh in USD; the first bound not exceeded wins.
var ratingThresholds = []struct {
	max    float64
	rating Rating
}{
	{0.12, RatingExcellent},
	{0.20, RatingGood},
	{0.35, RatingFair},
	{math.Inf(1), RatingPoor},
}

// RateCost labels a cost per kWh.
func RateCost(costPerKWh float64) Rating {
	for _, th := range ratingThresholds {
		if costPerKWh <= th.max {
			return th.rating
		}
	}
	return RatingPoor
}

// CalculateMetric computes the efficiency of energy bought for cost over an
// average session duration. It rejects non-positive energy and negative cost.
func CalculateMetric(energyKWh, cost float64, durationMinutes *float64) (Metric, error) {
	if !(energyKWh > 0) || !(cost >= 0) || math.IsInf(energyKWh, 0) || math.IsInf(cost, 0) {
		return Metric{}, fmt.Errorf("%w: energy=%v cost=%v", ErrInvalidMetricInput, energyKWh, cost)
	}

	m := Metric{CostPerKWh: cost / energyKWh, EnergyKWh: energyKWh, Cost: cost}
	if cost > 0 {
		m.KWhPerDollar = energyKWh / cost
	}
	if durationMinutes != nil && *durationMinutes > 0 {
		speed := energyKWh * 60 / *durationMinutes
		m.ChargingSpeedKW = &speed
	}
	m.Rating = RateCost(m.CostPerKWh)
	return m, nil
}
