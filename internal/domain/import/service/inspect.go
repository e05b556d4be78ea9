package service

import (
	"fmt"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

const sampleRowCount = 5

// Inspection previews how an export would be read, before any cleaning.
type Inspection struct {
	Headers       []string          `json:"headers"`
	SampleRows    [][]string        `json:"sample_rows"`
	Delimiter     string            `json:"delimiter"`
	SkipLines     int               `json:"skip_lines"`
	Fingerprint   string            `json:"fingerprint"`
	Source        string            `json:"source"`
	Sheet         string            `json:"sheet,omitempty"`
	Rows          int               `json:"rows"`
	Format        string            `json:"format,omitempty"`
	Mapping       map[string]string `json:"mapping"`
	Missing       []string          `json:"missing_columns"`
	Hints         []string          `json:"hints,omitempty"`
	CanAutoImport bool              `json:"can_auto_import"`
}

// Inspect reads the header and a few rows of an export and reports the
// detected layout and column mapping. An unrecognized layout is not an error:
// Format is empty and every required column is missing.
func Inspect(src Source) (*Inspection, error) {
	raw, err := parser.ReadTableWithOptions(src.Name, src.Data, src.Layout)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", src.Name, err)
	}

	in := &Inspection{
		Headers:     raw.Headers,
		SampleRows:  raw.Rows[:min(sampleRowCount, len(raw.Rows))],
		Delimiter:   string(raw.Delimiter),
		SkipLines:   raw.SkipLines,
		Fingerprint: raw.Fingerprint,
		Source:      raw.Source,
		Sheet:       raw.Sheet,
		Rows:        raw.Len(),
		Mapping:     map[string]string{},
		Missing:     append([]string(nil), normalizer.RequiredColumns...),
	}
	if in.Headers == nil {
		in.Headers = []string{}
		in.SampleRows = [][]string{}
	}

	format, err := sniffer.DetectFormat(raw.Headers)
	if err != nil {
		return in, nil
	}
	in.Format = string(format)

	columns := normalizer.MapColumns(format, raw.Headers)
	for i, h := range raw.Headers {
		if columns[i] != h {
			in.Mapping[h] = columns[i]
		}
	}
	in.Missing = normalizer.MissingColumns(columns)
	if in.Missing == nil {
		in.Missing = []string{}
	}
	in.Hints = normalizer.SuggestColumns(in.Missing, unmapped(raw.Headers, columns))
	in.CanAutoImport = len(in.Missing) == 0 && raw.Len() > 0
	return in, nil
}
