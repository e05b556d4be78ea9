// Command chargectl analyzes a charging export from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FACorreiaa/charge-analytics/internal/domain/charging"
	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
	"github.com/FACorreiaa/charge-analytics/pkg/config"
	"github.com/FACorreiaa/charge-analytics/pkg/logger"
	"github.com/FACorreiaa/charge-analytics/pkg/storage"
)

type locationFlags []string

func (l *locationFlags) String() string { return strings.Join(*l, ",") }

func (l *locationFlags) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var locations locationFlags
	file := flag.String("file", "", "charging export to analyze (.csv, .csv.gz or .xlsx)")
	export := flag.String("export", "", "write the cleaned sessions as canonical CSV to this path instead of analyzing")
	from := flag.String("from", "", "only sessions on or after this date (YYYY-MM-DD or RFC3339)")
	to := flag.String("to", "", "only sessions on or before this date (YYYY-MM-DD or RFC3339)")
	currency := flag.String("currency", "", "ISO 4217 code for the display block (defaults to ANALYSIS_CURRENCY)")
	noRecs := flag.Bool("no-recommendations", false, "omit recommendations")
	verbose := flag.Bool("v", false, "log pipeline details to stderr")
	headerRow := flag.String("header-row", "", "0-based line of the header row (auto-detected when empty)")
	delimiter := flag.String("delimiter", "", "field delimiter: comma, semicolon, tab or pipe (auto-detected when empty)")
	flag.Var(&locations, "location", "only sessions at this location (repeatable)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: chargectl -file history.csv [-location Home] [-from 2024-01-01] [-to 2024-03-31] [-export out.csv]")
		os.Exit(2)
	}

	layout, err := sniffer.ParseOptions(*headerRow, *delimiter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chargectl: %v\n", err)
		os.Exit(2)
	}

	if err := run(*file, *export, *from, *to, *currency, locations, layout, !*noRecs, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "chargectl: %v\n", err)
		os.Exit(1)
	}
}

func run(file, export, from, to, currency string, locations []string, layout *sniffer.DetectOptions, recs, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	log := logger.NewWithWriter(os.Stderr, level, "text")

	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	store, err := storage.NewTempStore(filepath.Join(os.TempDir(), "chargectl"))
	if err != nil {
		return err
	}

	if currency == "" {
		currency = cfg.Analysis.Currency
	}
	svc := charging.NewService(importservice.NewProcessor(log), store, charging.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Currency:       currency,
	}, log)

	ctx := context.Background()
	name := filepath.Base(file)

	if export != "" {
		out, err := svc.Normalize(ctx, name, data, layout)
		if err != nil {
			return describe(err)
		}
		return os.WriteFile(export, out, 0o644)
	}

	req := charging.DefaultRequest()
	req.IncludeRecommendations = recs
	req.LocationFilter = locations
	req.Layout = layout
	if req.DateRangeStart, err = parseDate(from); err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	if req.DateRangeEnd, err = parseDate(to); err != nil {
		return fmt.Errorf("-to: %w", err)
	}

	report, err := svc.AnalyzeUpload(ctx, name, data, req)
	if err != nil {
		return describe(err)
	}
	return writeJSON(os.Stdout, report)
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := charging.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// describe expands the structured service errors into readable text.
func describe(err error) error {
	var (
		processing *charging.ProcessingError
		quality    *charging.QualityError
	)
	switch {
	case errors.As(err, &processing):
		return fmt.Errorf("failed to process CSV data:\n  %s", strings.Join(processing.Issues, "\n  "))
	case errors.As(err, &quality):
		lines := append(append([]string{}, quality.Issues...), quality.Suggestions...)
		return fmt.Errorf("data quality %s is too poor for reliable analysis:\n  %s", quality.Quality, strings.Join(lines, "\n  "))
	}
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
