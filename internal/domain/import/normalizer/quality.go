package normalizer

import "strings"

// Quality grades how complete a normalized table is.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// Weights of the column groups in the quality score.
const (
	requiredWeight = 0.7
	optionalWeight = 0.3
)

var qualityThresholds = []struct {
	min     float64
	quality Quality
}{
	{0.95, QualityExcellent},
	{0.85, QualityGood},
	{0.70, QualityFair},
}

// ParseQuality reads a quality label, case-insensitively.
func ParseQuality(s string) (Quality, bool) {
	q := Quality(strings.ToLower(strings.TrimSpace(s)))
	switch q {
	case QualityExcellent, QualityGood, QualityFair, QualityPoor:
		return q, true
	}
	return "", false
}

// Rank orders qualities from poor (0) to excellent (3).
func (q Quality) Rank() int {
	switch q {
	case QualityExcellent:
		return 3
	case QualityGood:
		return 2
	case QualityFair:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether q is as good as min.
func (q Quality) AtLeast(min Quality) bool {
	return q.Rank() >= min.Rank()
}

// Completeness is the mean non-null fraction over the columns of group the
// table carries. A group with no present column scores 0.
func Completeness(t *Table, group []string) float64 {
	if t.Len() == 0 {
		return 0
	}
	var sum float64
	present := 0
	for _, col := range group {
		if !t.Has(col) {
			continue
		}
		present++
		sum += float64(t.NonNull(col)) / float64(t.Len())
	}
	if present == 0 {
		return 0
	}
	return sum / float64(present)
}

// Score weighs required against optional completeness.
func Score(t *Table) float64 {
	return requiredWeight*Completeness(t, RequiredColumns) + optionalWeight*Completeness(t, OptionalColumns)
}

// AssessQuality grades a table. An empty table is always poor.
func AssessQuality(t *Table) Quality {
	if t.Len() == 0 {
		return QualityPoor
	}
	score := Score(t)
	for _, th := range qualityThresholds {
		if score >= th.min {
			return th.quality
		}
	}
	return QualityPoor
}
