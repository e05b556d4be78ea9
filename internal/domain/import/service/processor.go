// Package service turns uploaded charging exports into normalized session
// tables with a quality grade, issues and summary metadata.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/parser"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
)

// Metadata keys.
const (
	MetaFormat           = "format"
	MetaOriginalColumns  = "original_columns"
	MetaOriginalRows     = "original_rows"
	MetaProcessedRows    = "processed_rows"
	MetaRowsProcessed    = "rows_processed"
	MetaColumnsAvailable = "columns_available"
	MetaDateRangeStart   = "date_range_start"
	MetaDateRangeEnd     = "date_range_end"
	MetaTotalEnergyKWh   = "total_energy_kwh"
	MetaTotalCost        = "total_cost"
	MetaFingerprint      = "fingerprint"
	MetaDelimiter        = "delimiter"
	MetaSource           = "source"
	MetaError            = "error"
)

const (
	issueEmptyFile        = "File contains no rows"
	processingErrorPrefix = "Processing error: "
)

// Source is an uploaded export held in memory. Layout overrides header row
// or delimiter detection when set.
type Source struct {
	Name   string
	Data   []byte
	Layout *sniffer.DetectOptions
}

// ProcessingResult is the outcome of Process. Data is nil unless Success.
type ProcessingResult struct {
	Success  bool
	Data     *normalizer.Table
	Quality  normalizer.Quality
	Issues   []string
	Metadata map[string]any
}

// FileObserver records per-file processing outcomes.
type FileObserver interface {
	ObserveFile(format, quality string, success bool, originalRows, processedRows int, elapsed time.Duration)
}

// Processor runs the read, detect, map, validate, clean and grade pipeline.
// It holds no per-call state and is safe for concurrent use.
type Processor struct {
	logger    *slog.Logger
	observer  FileObserver
	tracer    trace.Tracer
	readTable func(name string, data []byte, layout *sniffer.DetectOptions) (*parser.RawTable, error)
}

// NewProcessor creates a processor.
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:    logger.With(slog.String("component", "processor")),
		tracer:    otel.Tracer("github.com/FACorreiaa/charge-analytics/import"),
		readTable: parser.ReadTableWithOptions,
	}
}

// WithObserver adds metrics recording to the processor.
func (p *Processor) WithObserver(observer FileObserver) *Processor {
	p.observer = observer
	return p
}

// ProcessFile processes an export on disk.
func (p *Processor) ProcessFile(ctx context.Context, path string) ProcessingResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return failure(err)
	}
	return p.Process(ctx, Source{Name: filepath.Base(path), Data: data})
}

// ProcessReader processes an export read from r.
func (p *Processor) ProcessReader(ctx context.Context, name string, r io.Reader) ProcessingResult {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return failure(fmt.Errorf("failed to read %s: %w", name, err))
	}
	return p.Process(ctx, Source{Name: name, Data: buf.Bytes()})
}

// Process never returns an error or panics: every failure, including a
// recovered panic, is reported through an unsuccessful ProcessingResult.
func (p *Processor) Process(ctx context.Context, src Source) (result ProcessingResult) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "import.Process",
		trace.WithAttributes(attribute.String("file.name", src.Name), attribute.Int("file.bytes", len(src.Data))))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			p.logger.ErrorContext(ctx, "csv processing failed", "file", src.Name, "error", err)
			result = failure(err)
		}
		p.finish(span, src, result, time.Since(start))
	}()

	raw, err := p.readTable(src.Name, src.Data, src.Layout)
	if err != nil {
		p.logger.ErrorContext(ctx, "csv processing failed", "file", src.Name, "error", err)
		return failure(err)
	}

	return p.ProcessTable(ctx, raw)
}

// ProcessTable runs the pipeline on an already read table.
func (p *Processor) ProcessTable(ctx context.Context, raw *parser.RawTable) ProcessingResult {
	if raw.Len() == 0 {
		return structuralFailure([]string{issueEmptyFile}, map[string]any{MetaRowsProcessed: 0})
	}

	format, err := sniffer.DetectFormat(raw.Headers)
	if err != nil {
		p.logger.WarnContext(ctx, "unrecognized export", "headers", raw.Headers, "error", err)
		return failure(err)
	}
	p.logger.InfoContext(ctx, "detected csv format", "format", format, "rows", raw.Len(), "source", raw.Source)

	columns := normalizer.MapColumns(format, raw.Headers)
	structure := map[string]any{
		MetaFormat:          string(format),
		MetaOriginalColumns: raw.Headers,
	}

	if ok, issues := normalizer.ValidateStructure(columns, raw.Len()); !ok {
		issues = append(issues, normalizer.SuggestColumns(normalizer.MissingColumns(columns), unmapped(raw.Headers, columns))...)
		p.logger.WarnContext(ctx, "export failed structure validation", "format", format, "issues", issues)
		structure[MetaRowsProcessed] = 0
		return structuralFailure(issues, structure)
	}

	table, stats := normalizer.Clean(columns, raw.Rows)
	quality := normalizer.AssessQuality(table)

	start, end := table.DateRange()
	energy, cost := table.Totals()

	metadata := structure
	metadata[MetaOriginalRows] = raw.Len()
	metadata[MetaProcessedRows] = table.Len()
	metadata[MetaColumnsAvailable] = table.Columns
	metadata[MetaDateRangeStart] = normalizer.Timestamp(start)
	metadata[MetaDateRangeEnd] = normalizer.Timestamp(end)
	metadata[MetaTotalEnergyKWh] = energy
	metadata[MetaTotalCost] = cost
	metadata[MetaFingerprint] = raw.Fingerprint
	metadata[MetaDelimiter] = string(raw.Delimiter)
	metadata[MetaSource] = raw.Source

	return ProcessingResult{
		Success:  true,
		Data:     table,
		Quality:  quality,
		Issues:   cleaningIssues(stats),
		Metadata: metadata,
	}
}

func (p *Processor) finish(span trace.Span, src Source, result ProcessingResult, elapsed time.Duration) {
	format, _ := result.Metadata[MetaFormat].(string)
	span.SetAttributes(
		attribute.String("import.format", format),
		attribute.String("import.quality", string(result.Quality)),
		attribute.Int("import.rows", result.Data.Len()),
	)
	if !result.Success {
		msg := "processing failed"
		if len(result.Issues) > 0 {
			msg = result.Issues[0]
		}
		span.RecordError(errors.New(msg))
		span.SetStatus(codes.Error, msg)
	}
	span.End()

	if p.observer != nil {
		original, _ := result.Metadata[MetaOriginalRows].(int)
		p.observer.ObserveFile(format, string(result.Quality), result.Success, original, result.Data.Len(), elapsed)
	}

	p.logger.Debug("processed export",
		"file", src.Name,
		"success", result.Success,
		"quality", result.Quality,
		"duration", elapsed,
	)
}

func structuralFailure(issues []string, metadata map[string]any) ProcessingResult {
	return ProcessingResult{
		Success:  false,
		Quality:  normalizer.QualityPoor,
		Issues:   issues,
		Metadata: metadata,
	}
}

func failure(err error) ProcessingResult {
	return structuralFailure(
		[]string{processingErrorPrefix + err.Error()},
		map[string]any{MetaError: err.Error()},
	)
}

// unmapped returns the source headers that were not renamed.
func unmapped(headers, columns []string) []string {
	var out []string
	for i, h := range headers {
		if columns[i] == h {
			out = append(out, h)
		}
	}
	return out
}

func cleaningIssues(stats normalizer.CleanStats) []string {
	var issues []string
	if stats.InvalidEnergy > 0 {
		issues = append(issues, fmt.Sprintf("Dropped %d row(s) without a positive energy value", stats.InvalidEnergy))
	}
	if stats.NegativeCost > 0 {
		issues = append(issues, fmt.Sprintf("Dropped %d row(s) with a negative or unreadable cost", stats.NegativeCost))
	}
	if stats.Duplicates > 0 {
		issues = append(issues, fmt.Sprintf("Removed %d duplicate session(s)", stats.Duplicates))
	}
	if stats.UnparsedDates > 0 {
		issues = append(issues, fmt.Sprintf("%d date value(s) could not be parsed", stats.UnparsedDates))
	}
	if stats.UnparsedSOC > 0 {
		issues = append(issues, fmt.Sprintf("%d state of charge value(s) could not be parsed", stats.UnparsedSOC))
	}
	if stats.UnparsedDuration > 0 {
		issues = append(issues, fmt.Sprintf("%d charging duration value(s) could not be parsed", stats.UnparsedDuration))
	}
	return issues
}
