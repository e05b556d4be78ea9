// Package sniffer provides automatic detection of CSV/TSV charging exports.
// It identifies delimiters and header rows, fingerprints the header set and
// classifies it as one of the known export formats.
package sniffer

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"
)

// Header vocabulary seen in charging exports. Metadata lines above the header
// rarely contain more than one of these.
var headerKeywords = []string{
	"date", "time", "kwh", "energy", "cost", "price", "fee", "location",
	"charger", "soc", "duration", "start %", "end %", "power", "vehicle",
	"address", "connector", "session",
}

// maxHeaderSearchLines bounds how far down the file the header may start.
const maxHeaderSearchLines = 20

// FileConfig holds the detected configuration for a CSV/TSV file
type FileConfig struct {
	Delimiter   rune     // The field delimiter (';', ',', '\t', '|')
	SkipLines   int      // Number of metadata lines before headers
	Headers     []string // Detected header names, de-duplicated
	Fingerprint string   // SHA256 hash of normalized headers
}

// DetectOptions allows callers to override header row or delimiter detection.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based index for the header row. Set to -1 to auto-detect.
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero.
	Delimiter rune
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
	ErrInvalidOption    = errors.New("invalid detection override")
)

var delimiterNames = map[string]rune{
	",": ',', "comma": ',',
	";": ';', "semicolon": ';',
	"\t": '\t', `\t`: '\t', "tab": '\t',
	"|": '|', "pipe": '|',
}

// ParseOptions builds overrides from their text forms, as found in query
// strings or flags. Empty values keep auto-detection, and nil is returned when
// both are empty.
func ParseOptions(headerRow, delimiter string) (*DetectOptions, error) {
	headerRow = strings.TrimSpace(headerRow)
	if headerRow == "" && delimiter == "" {
		return nil, nil
	}

	opts := &DetectOptions{HeaderRowIndex: -1}
	if headerRow != "" {
		n, err := strconv.Atoi(headerRow)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: header row must be a non-negative integer, got %q", ErrInvalidOption, headerRow)
		}
		opts.HeaderRowIndex = n
	}
	if delimiter != "" {
		d, ok := delimiterNames[strings.ToLower(delimiter)]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported delimiter %q", ErrInvalidOption, delimiter)
		}
		opts.Delimiter = d
	}
	return opts, nil
}

// DetectConfig analyzes a CSV/TSV file and returns its configuration
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, nil)
}

// DetectConfigWithOptions analyzes a CSV/TSV file with optional overrides.
func DetectConfigWithOptions(data []byte, opts *DetectOptions) (*FileConfig, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	var (
		delimiter rune
		skipLines int
		err       error
	)
	if opts != nil && opts.HeaderRowIndex >= 0 {
		if opts.HeaderRowIndex >= len(lines) {
			return nil, ErrNoHeadersFound
		}
		skipLines = opts.HeaderRowIndex
		delimiter = opts.Delimiter
		if delimiter == 0 {
			delimiter, _ = detectDelimiter(cleanLine(lines[skipLines], skipLines == 0))
			if delimiter == 0 {
				return nil, ErrInvalidDelimiter
			}
		}
	} else {
		delimiter, skipLines, err = findHeaderRow(lines)
		if err != nil {
			return nil, err
		}
		if opts != nil && opts.Delimiter != 0 {
			delimiter = opts.Delimiter
		}
	}

	headerLine := cleanLine(lines[skipLines], skipLines == 0)
	reader := csv.NewReader(strings.NewReader(headerLine))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	headers = DedupeHeaders(headers)

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: generateFingerprint(headers),
	}, nil
}

// Body returns the text after the header row for a detected config.
func (c *FileConfig) Body(data []byte) string {
	lines := strings.Split(string(data), "\n")
	if c.SkipLines+1 >= len(lines) {
		return ""
	}
	return strings.Join(lines[c.SkipLines+1:], "\n")
}

// DedupeHeaders trims header names and suffixes repeats as "Name.1", "Name.2".
func DedupeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// findHeaderRow locates the header row and its delimiter. The first line with
// the most keyword hits wins; without any keyword hit the widest line is used.
func findHeaderRow(lines []string) (rune, int, error) {
	matcher := ahocorasick.NewStringMatcher(headerKeywords)

	keywordIndex, keywordHits, keywordDelimiter := -1, 0, rune(0)
	fallbackIndex, fallbackCount, fallbackDelimiter := -1, 0, rune(0)

	for i, line := range lines {
		if i > maxHeaderSearchLines {
			break
		}

		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		hits := len(matcher.Match([]byte(strings.ToLower(line))))
		if hits > keywordHits {
			keywordIndex, keywordHits, keywordDelimiter = i, hits, delimiter
		}
		if count > fallbackCount {
			fallbackIndex, fallbackCount, fallbackDelimiter = i, count, delimiter
		}
	}

	if keywordIndex >= 0 {
		return keywordDelimiter, keywordIndex, nil
	}
	if fallbackIndex >= 0 {
		return fallbackDelimiter, fallbackIndex, nil
	}

	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := countOutsideQuotes(line, d)
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}

// countOutsideQuotes counts d, ignoring occurrences inside double-quoted fields
// such as "Energy Added (kWh)" or "1,234.56".
func countOutsideQuotes(line string, d rune) int {
	inQuotes := false
	count := 0
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			count++
		}
	}
	return count
}

// generateFingerprint creates a unique hash from header names
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}
