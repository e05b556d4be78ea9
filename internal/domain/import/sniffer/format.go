package sniffer

import (
	"errors"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Format identifies the producer of a charging export.
type Format string

const (
	FormatTeslaMobile Format = "tesla_mobile"
	FormatTeslaWeb    Format = "tesla_web"
	FormatTeslaFi     Format = "teslafi"
	FormatGeneric     Format = "generic"
)

// ErrUnrecognizedFormat is returned when neither a known export nor the
// generic energy+cost shape matches the headers.
var ErrUnrecognizedFormat = errors.New("unrecognized CSV format; headers do not match expected patterns")

// formatSignature lists the headers that must all be present for a known export.
type formatSignature struct {
	Format  Format
	Headers []string
}

// Checked in order; the first complete match wins.
var knownSignatures = []formatSignature{
	{FormatTeslaMobile, []string{"Energy Added (kWh)", "Starting SOC"}},
	{FormatTeslaWeb, []string{"Energy Delivered (kWh)", "Charge Cost"}},
	{FormatTeslaFi, []string{"kWh", "Start %", "End %"}},
}

var (
	energyKeywords = []string{"kwh", "energy", "delivered", "added"}
	costKeywords   = []string{"cost", "price", "fee", "charge"}
)

// DetectFormat classifies a header set.
func DetectFormat(headers []string) (Format, error) {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}

	for _, sig := range knownSignatures {
		if containsAll(present, sig.Headers) {
			return sig.Format, nil
		}
	}

	energy := ahocorasick.NewStringMatcher(energyKeywords)
	cost := ahocorasick.NewStringMatcher(costKeywords)

	hasEnergy, hasCost := false, false
	for _, h := range headers {
		lower := []byte(strings.ToLower(h))
		if !hasEnergy && len(energy.Match(lower)) > 0 {
			hasEnergy = true
		}
		if !hasCost && len(cost.Match(lower)) > 0 {
			hasCost = true
		}
	}
	if hasEnergy && hasCost {
		return FormatGeneric, nil
	}

	return "", ErrUnrecognizedFormat
}

func containsAll(present map[string]bool, required []string) bool {
	for _, h := range required {
		if !present[h] {
			return false
		}
	}
	return true
}
