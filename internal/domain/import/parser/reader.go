// Package parser reads raw charging exports into string tables and converts
// individual cells into numbers, percentages, durations and timestamps.
package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

// Source kinds reported on RawTable.
const (
	SourceCSV  = "csv"
	SourceXLSX = "xlsx"
)

// ErrInvalidCSV wraps every failure to turn bytes into a table.
var ErrInvalidCSV = errors.New("invalid CSV")

// RawTable is an untyped view of an export: one header row and the data rows
// below it, each padded or truncated to the header width.
type RawTable struct {
	Headers     []string
	Rows        [][]string
	Delimiter   rune
	SkipLines   int
	Fingerprint string
	Source      string
	Sheet       string
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the index of the named header or -1.
func (t *RawTable) Column(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// ReadFile reads a CSV, CSV.GZ or XLSX export from disk.
func ReadFile(path string) (*RawTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ReadTable(filepath.Base(path), data)
}

// ReadTable decodes data into a RawTable. name is only used as a format hint.
func ReadTable(name string, data []byte) (*RawTable, error) {
	return ReadTableWithOptions(name, data, nil)
}

// ReadTableWithOptions is ReadTable with header row and delimiter overrides.
func ReadTableWithOptions(name string, data []byte, opts *sniffer.DetectOptions) (*RawTable, error) {
	if IsGzip(data) {
		out, err := gunzip(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		data = out
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}

	source := SourceCSV
	sheet := ""
	if IsZip(data) && isWorkbookName(name) {
		text, sheetName, err := workbookToText(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
		}
		data, source, sheet = text, SourceXLSX, sheetName
	}

	data = normalizeText(data)
	if strings.TrimSpace(string(data)) == "" {
		return &RawTable{Source: source, Sheet: sheet}, nil
	}

	cfg, err := sniffer.DetectConfigWithOptions(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}

	rows, err := readRows(cfg.Body(data), cfg.Delimiter, len(cfg.Headers))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}

	return &RawTable{
		Headers:     cfg.Headers,
		Rows:        rows,
		Delimiter:   cfg.Delimiter,
		SkipLines:   cfg.SkipLines,
		Fingerprint: cfg.Fingerprint,
		Source:      source,
		Sheet:       sheet,
	}, nil
}

func readRows(body string, delimiter rune, width int) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rows := make([][]string, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}
		rows = append(rows, fitRecord(record, width))
	}
	return rows, nil
}

func fitRecord(record []string, width int) []string {
	row := make([]string, width)
	copy(row, record)
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	return row
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isWorkbookName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm" || name == ""
}
