package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names that usually hold the session list, checked before falling back
// to the first sheet with any data.
var preferredSheets = []string{
	"charging history", "charging", "sessions", "charges", "data", "sheet1",
}

// workbookToText renders the best sheet of an XLSX workbook as tab separated
// text so it goes through the same header detection as CSV input.
func workbookToText(data []byte) ([]byte, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName, rows, err := findDataSheet(f)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, "", fmt.Errorf("failed to render sheet %s: %w", sheetName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to render sheet %s: %w", sheetName, err)
	}

	return buf.Bytes(), sheetName, nil
}

// findDataSheet picks a preferred sheet when it has rows, else the first
// non-empty sheet.
func findDataSheet(f *excelize.File) (string, [][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, fmt.Errorf("no suitable sheet found")
	}

	ordered := make([]string, 0, len(sheets))
	for _, preferred := range preferredSheets {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				ordered = append(ordered, sheet)
			}
		}
	}
	ordered = append(ordered, sheets...)

	for _, sheet := range ordered {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) > 0 {
			return sheet, rows, nil
		}
	}

	// An empty workbook reads as an empty table.
	return sheets[0], nil, nil
}
