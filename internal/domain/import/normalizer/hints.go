package normalizer

import (
	"fmt"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Words a header for each required column usually contains.
var columnAliases = map[string][]string{
	ColSessionDate:    {"date", "day", "when", "time"},
	ColEnergyAddedKWh: {"kwh", "energy", "kw"},
	ColTotalCost:      {"cost", "price", "amount", "paid", "fee"},
}

// SuggestColumns returns one hint per missing column that has a plausible
// source header among candidates, e.g. "Closest match for total_cost: 'Amount Paid'".
func SuggestColumns(missing, candidates []string) []string {
	var hints []string
	for _, col := range missing {
		if header, ok := closestHeader(columnAliases[col], candidates); ok {
			hints = append(hints, fmt.Sprintf("Closest match for %s: '%s'", col, header))
		}
	}
	return hints
}

// closestHeader picks the candidate with the smallest fuzzy distance to any
// alias. Ties keep the leftmost header.
func closestHeader(aliases, candidates []string) (string, bool) {
	best, bestDistance := -1, 0
	for _, alias := range aliases {
		for _, rank := range fuzzy.RankFindNormalizedFold(alias, candidates) {
			if best < 0 || rank.Distance < bestDistance ||
				(rank.Distance == bestDistance && rank.OriginalIndex < best) {
				best, bestDistance = rank.OriginalIndex, rank.Distance
			}
		}
	}
	if best < 0 {
		return "", false
	}
	return candidates[best], true
}

// MissingColumns lists the required columns absent from columns.
func MissingColumns(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
