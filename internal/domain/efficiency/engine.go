package efficiency

import (
	"math"
	"strings"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

const (
	// Locations under this share of total energy are left out of ByLocation.
	locationEnergyShare = 0.05
	topN                = 3
)

// Engine turns normalized sessions into an Analysis. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	classifier Chain
}

// NewEngine returns an engine with the default charger classifier chain.
func NewEngine() *Engine {
	return &Engine{classifier: DefaultChain()}
}

// Analyze runs Aggregate and derives recommendations and savings from the
// result.
func (e *Engine) Analyze(table *normalizer.Table) (*Analysis, error) {
	agg, err := e.Aggregate(table)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Aggregates:           *agg,
		Recommendations:      Recommend(agg),
		CostSavingsPotential: EstimateSavings(agg),
	}, nil
}

// Analyze runs the default engine.
func Analyze(table *normalizer.Table) (*Analysis, error) {
	return NewEngine().Analyze(table)
}

type sessionRow struct {
	*normalizer.Session
	category ChargerType
}

func (r sessionRow) costPerKWh() float64 {
	return r.TotalCost / r.EnergyAddedKWh
}

// Aggregate computes the overall, per charger type and per location metrics,
// the behavior patterns and the monthly trends.
func (e *Engine) Aggregate(table *normalizer.Table) (*Aggregates, error) {
	if table.Len() == 0 {
		return nil, ErrNoData
	}

	rows := make([]sessionRow, 0, table.Len())
	for i := range table.Sessions {
		s := &table.Sessions[i]
		if !validSession(s) {
			continue
		}
		rows = append(rows, sessionRow{Session: s})
	}
	if len(rows) == 0 {
		return nil, ErrAllRowsInvalid
	}

	categorized := table.Has(normalizer.ColChargerType)
	if categorized {
		for i := range rows {
			rows[i].category = e.classifier.Categorize(ClassifierInput{
				Text:            deref(rows[i].ChargerType),
				EnergyKWh:       rows[i].EnergyAddedKWh,
				DurationMinutes: rows[i].ChargingDurationMinutes,
			})
		}
	}

	energy, cost := sumEnergyCost(rows)
	overall, err := CalculateMetric(energy, cost, meanDuration(rows))
	if err != nil {
		return nil, err
	}

	agg := &Aggregates{
		Overall:        overall,
		ByChargerType:  map[string]Metric{},
		ByLocation:     byLocation(rows, energy),
		TemporalTrends: monthlyTrends(rows),
		Patterns:       behaviorPatterns(rows, categorized),
		TotalEnergyKWh: energy,
		TotalCost:      cost,
		Sessions:       len(rows),
	}
	if categorized {
		agg.ByChargerType = byChargerType(rows)
	}
	return agg, nil
}

func validSession(s *normalizer.Session) bool {
	e, c := s.EnergyAddedKWh, s.TotalCost
	return e > 0 && c >= 0 && !math.IsInf(e, 0) && !math.IsInf(c, 0)
}

func byChargerType(rows []sessionRow) map[string]Metric {
	groups := map[string][]sessionRow{}
	for _, r := range rows {
		groups[string(r.category)] = append(groups[string(r.category)], r)
	}
	return groupMetrics(groups)
}

func byLocation(rows []sessionRow, totalEnergy float64) map[string]Metric {
	groups := map[string][]sessionRow{}
	for _, r := range rows {
		if r.LocationName == nil {
			continue
		}
		name := strings.TrimSpace(*r.LocationName)
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], r)
	}

	metrics := groupMetrics(groups)
	for name, group := range groups {
		energy, _ := sumEnergyCost(group)
		if energy < locationEnergyShare*totalEnergy {
			delete(metrics, name)
		}
	}
	return metrics
}

// groupMetrics emits one metric per group with positive summed energy.
func groupMetrics(groups map[string][]sessionRow) map[string]Metric {
	out := make(map[string]Metric, len(groups))
	for key, group := range groups {
		energy, cost := sumEnergyCost(group)
		if energy <= 0 {
			continue
		}
		m, err := CalculateMetric(energy, cost, meanDuration(group))
		if err != nil {
			continue
		}
		out[key] = m
	}
	return out
}

func sumEnergyCost(rows []sessionRow) (energy, cost float64) {
	for _, r := range rows {
		energy += r.EnergyAddedKWh
		cost += r.TotalCost
	}
	return energy, cost
}

// meanDuration is nil when no row in the group has a duration.
func meanDuration(rows []sessionRow) *float64 {
	var sum float64
	n := 0
	for _, r := range rows {
		if d := r.ChargingDurationMinutes; d != nil && !math.IsNaN(*d) {
			sum += *d
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
