package efficiency

import (
	"regexp"
	"strings"
)

// ClassifierInput is what a classifier may look at for one session.
type ClassifierInput struct {
	Text            string
	EnergyKWh       float64
	DurationMinutes *float64
}

// Classifier tries to categorize a session. ok is false when it has no verdict.
type Classifier interface {
	Classify(in ClassifierInput) (ChargerType, bool)
}

// Chain asks each classifier in turn; the first verdict wins and
// ChargerUnknown is the default.
type Chain []Classifier

// Categorize returns the first verdict of the chain.
func (c Chain) Categorize(in ClassifierInput) ChargerType {
	for _, classifier := range c {
		if t, ok := classifier.Classify(in); ok {
			return t
		}
	}
	return ChargerUnknown
}

// DefaultChain matches charger text first, then infers from implied power.
func DefaultChain() Chain {
	return Chain{TextClassifier{Rules: defaultTextRules}, PowerClassifier{}}
}

// TextRule maps a pattern over the lowercase charger text to a type.
type TextRule struct {
	Pattern *regexp.Regexp
	Type    ChargerType
}

var defaultTextRules = []TextRule{
	{regexp.MustCompile(`\b(supercharger|tesla\s*sc|v\d)\b`), ChargerSupercharger},
	{regexp.MustCompile(`\b(dc|fast|rapid|ccs|chade?mo)\b`), ChargerDCFast},
	{regexp.MustCompile(`\b(home|residential|garage)\b`), ChargerHomeAC},
	{regexp.MustCompile(`\b(public|level\s*2|l2|ac)\b`), ChargerPublicAC},
}

// TextClassifier applies ordered rules to the charger description.
type TextClassifier struct {
	Rules []TextRule
}

func (c TextClassifier) Classify(in ClassifierInput) (ChargerType, bool) {
	text := strings.ToLower(in.Text)
	if text == "" {
		return "", false
	}
	for _, r := range c.Rules {
		if r.Pattern.MatchString(text) {
			return r.Type, true
		}
	}
	return "", false
}

// Implied power bands in kW, checked from fastest down.
var powerBands = []struct {
	above float64
	t     ChargerType
}{
	{120, ChargerSupercharger},
	{80, ChargerDCFast},
	{15, ChargerPublicAC},
}

// PowerClassifier infers the type from energy*60/duration.
type PowerClassifier struct{}

func (PowerClassifier) Classify(in ClassifierInput) (ChargerType, bool) {
	if in.DurationMinutes == nil || *in.DurationMinutes <= 0 || in.EnergyKWh <= 0 {
		return "", false
	}
	power := in.EnergyKWh * 60 / *in.DurationMinutes
	for _, band := range powerBands {
		if power > band.above {
			return band.t, true
		}
	}
	return ChargerHomeAC, true
}
