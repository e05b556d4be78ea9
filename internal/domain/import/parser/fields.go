package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	nonNumeric  = regexp.MustCompile(`[^\d.\-eE,]`)
	nonCurrency = regexp.MustCompile(`[^\d,.\-]`)
	percentJunk = regexp.MustCompile(`[%\s]`)
	nonDigit    = regexp.MustCompile(`[^\d]`)

	hoursPattern       = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*h`)
	hourMinutesPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m`)
	minutesPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m(in)?\b`)
)

// ParseNumber converts free-form numeric text to a float.
// When both ',' and '.' occur, the one written first is the thousands separator
// ("1,234.56" and "1.234,56" are both 1234.56); a lone comma is the decimal
// separator. The boolean is false when the text holds no number.
func ParseNumber(s string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(s, "")
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}
	return parseFinite(cleaned)
}

// ParseCurrency strips currency symbols and spacing before parsing as a number.
func ParseCurrency(s string) (float64, bool) {
	return ParseNumber(nonCurrency.ReplaceAllString(s, ""))
}

// ParsePercent parses "85", "85%" or "0.85" as 85. Values <= 1 are read as
// fractions, so a literal "1%" becomes 100. Callers clamp the result.
func ParsePercent(s string) (float64, bool) {
	v, ok := parseFinite(percentJunk.ReplaceAllString(s, ""))
	if !ok {
		return 0, false
	}
	if v <= 1.0 {
		v *= 100
	}
	return v, true
}

// ParseDurationMinutes converts "1:30", "1h 30m", "2h", "1.5h", "90m", "90 min"
// or a bare number of minutes into minutes.
func ParseDurationMinutes(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if h, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			m := 0
			if digits := nonDigit.ReplaceAllString(parts[1], ""); digits != "" {
				if parsed, err := strconv.Atoi(digits); err == nil {
					m = parsed
				}
			}
			return float64(h*60 + m), true
		}
	}

	if match := hoursPattern.FindStringSubmatch(s); match != nil {
		hours, _ := strconv.ParseFloat(match[1], 64)
		minutes := 0.0
		if mm := hourMinutesPattern.FindStringSubmatch(s); mm != nil {
			minutes, _ = strconv.ParseFloat(mm[1], 64)
		}
		return hours*60 + minutes, true
	}

	if match := minutesPattern.FindStringSubmatch(s); match != nil {
		minutes, _ := strconv.ParseFloat(match[1], 64)
		return minutes, true
	}

	return parseFinite(s)
}

// dateLayouts are tried in order; month-first wins for ambiguous slash dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04PM",
	"1/2/2006",
	"1-2-2006",
	"02.01.2006 15:04",
	"02.01.2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
}

// ParseDate parses a session date. Zoned values are converted to UTC; all
// results are returned in UTC so they compare as wall-clock timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"3:04PM",
	"3PM",
}

// ParseClock parses a time-of-day column and returns it as "HH:MM:SS".
// Full timestamps are accepted and reduced to their clock part.
func ParseClock(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	if t, ok := ParseDate(s); ok {
		return t.Format("15:04:05"), true
	}
	return "", false
}

func parseFinite(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
