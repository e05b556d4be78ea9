// Package charging runs charging-efficiency analyses over uploaded exports
// and structured session lists.
package charging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/charge-analytics/internal/domain/efficiency"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
	"github.com/FACorreiaa/charge-analytics/pkg/storage"
)

// Analysis sources reported to the observer.
const (
	SourceUpload   = "upload"
	SourceSessions = "sessions"
)

var allowedExtensions = []string{".csv", ".csv.gz", ".xlsx"}

// AnalysisObserver records analysis outcomes.
type AnalysisObserver interface {
	ObserveAnalysis(source string, success bool, elapsed time.Duration)
}

// Options tune the service.
type Options struct {
	MaxUploadBytes int64
	MinimumQuality normalizer.Quality
	Currency       string
}

// Service analyzes uploads and structured sessions.
type Service struct {
	processor *importservice.Processor
	engine    *efficiency.Engine
	store     storage.Storage
	validate  *validator.Validate
	observer  AnalysisObserver
	opts      Options
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService creates a charging analysis service.
func NewService(processor *importservice.Processor, store storage.Storage, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinimumQuality == "" {
		opts.MinimumQuality = normalizer.QualityFair
	}
	return &Service{
		processor: processor,
		engine:    efficiency.NewEngine(),
		store:     store,
		validate:  newValidator(),
		opts:      opts,
		logger:    logger.With(slog.String("component", "charging_service")),
		tracer:    otel.Tracer("github.com/FACorreiaa/charge-analytics/charging"),
		now:       time.Now,
	}
}

// WithObserver adds metrics recording to the service.
func (s *Service) WithObserver(observer AnalysisObserver) *Service {
	s.observer = observer
	return s
}

// MaxUploadBytes returns the configured upload ceiling.
func (s *Service) MaxUploadBytes() int64 {
	return s.opts.MaxUploadBytes
}

// ProcessingSummary reports how the upload was read.
type ProcessingSummary struct {
	FormatDetected string             `json:"format_detected"`
	OriginalRows   int                `json:"original_rows"`
	ProcessedRows  int                `json:"processed_rows"`
	DataQuality    normalizer.Quality `json:"data_quality"`
	Issues         []string           `json:"issues"`
}

// DateRange bounds the analyzed sessions.
type DateRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// UploadMetadata summarizes the processed upload.
type UploadMetadata struct {
	AnalysisDate    string    `json:"analysis_date"`
	DateRange       DateRange `json:"date_range"`
	TotalEnergyKWh  float64   `json:"total_energy_kwh"`
	TotalCost       float64   `json:"total_cost"`
	ColumnsAnalyzed []string  `json:"columns_analyzed"`
	RateStructure   *string   `json:"rate_structure,omitempty"`
}

// UploadReport is the result of AnalyzeUpload.
type UploadReport struct {
	Status     string             `json:"status"`
	AnalysisID string             `json:"analysis_id"`
	Processing ProcessingSummary  `json:"processing"`
	Analysis   *efficiency.Report `json:"analysis"`
	Metadata   UploadMetadata     `json:"metadata"`
}

// FiltersApplied reports which filters were active.
type FiltersApplied struct {
	DateRange      bool `json:"date_range"`
	LocationFilter bool `json:"location_filter"`
}

// SessionsMetadata summarizes a structured session analysis.
type SessionsMetadata struct {
	SessionsAnalyzed int            `json:"sessions_analyzed"`
	AnalysisDate     string         `json:"analysis_date"`
	FiltersApplied   FiltersApplied `json:"filters_applied"`
	RateStructure    *string        `json:"rate_structure,omitempty"`
}

// AnalysisResult is the result of AnalyzeSessions.
type AnalysisResult struct {
	Success    bool               `json:"success"`
	AnalysisID string             `json:"analysis_id"`
	Data       *efficiency.Report `json:"data"`
	Metadata   SessionsMetadata   `json:"metadata"`
}

// CheckUpload applies the name and size rules to an upload.
func (s *Service) CheckUpload(name string, size int64) error {
	if !hasAllowedExtension(name) {
		return &UploadError{Message: "File must be CSV"}
	}
	if size == 0 {
		return &UploadError{Message: "Uploaded file is empty"}
	}
	if s.opts.MaxUploadBytes > 0 && size > s.opts.MaxUploadBytes {
		return &UploadError{Message: fmt.Sprintf("File too large (>%d MB limit)", s.opts.MaxUploadBytes/(1024*1024))}
	}
	return nil
}

// AnalyzeUpload processes an uploaded export and analyzes what survives the
// quality gate and the filters.
func (s *Service) AnalyzeUpload(ctx context.Context, name string, data []byte, req AnalysisRequest) (report *UploadReport, err error) {
	start := s.now()
	defer func() { s.observe(SourceUpload, err == nil, start) }()

	if err := s.CheckUpload(name, int64(len(data))); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "date_range_end", Message: err.Error()}}}
	}

	stored, err := s.roundTrip(ctx, name, data)
	if err != nil {
		return nil, err
	}

	if _, err := parser.ReadTableWithOptions(name, stored, req.Layout); err != nil {
		return nil, &UploadError{Message: "Invalid CSV: " + strings.TrimPrefix(err.Error(), parser.ErrInvalidCSV.Error()+": ")}
	}

	result := s.processor.Process(ctx, importservice.Source{Name: name, Data: stored, Layout: req.Layout})
	if !result.Success || result.Data == nil {
		return nil, &ProcessingError{Issues: result.Issues, Metadata: result.Metadata}
	}
	if !result.Quality.AtLeast(s.opts.MinimumQuality) {
		s.logger.WarnContext(ctx, "rejected low quality upload", "file", name, "quality", result.Quality)
		return nil, &QualityError{Quality: result.Quality, Issues: result.Issues, Suggestions: qualitySuggestions}
	}

	table := ApplyFilters(result.Data, req)
	if table.Len() == 0 {
		return nil, ErrNoDataAfterFilters
	}

	analysis, err := s.analyze(ctx, SourceUpload, table, req)
	if err != nil {
		return nil, err
	}

	meta := result.Metadata
	format, _ := meta[importservice.MetaFormat].(string)
	originalRows, _ := meta[importservice.MetaOriginalRows].(int)
	processedRows, _ := meta[importservice.MetaProcessedRows].(int)
	energy, _ := meta[importservice.MetaTotalEnergyKWh].(float64)
	cost, _ := meta[importservice.MetaTotalCost].(float64)
	rangeStart, _ := meta[importservice.MetaDateRangeStart].(*string)
	rangeEnd, _ := meta[importservice.MetaDateRangeEnd].(*string)
	columns, _ := meta[importservice.MetaColumnsAvailable].([]string)

	issues := result.Issues
	if issues == nil {
		issues = []string{}
	}

	return &UploadReport{
		Status:     "success",
		AnalysisID: uuid.NewString(),
		Processing: ProcessingSummary{
			FormatDetected: format,
			OriginalRows:   originalRows,
			ProcessedRows:  processedRows,
			DataQuality:    result.Quality,
			Issues:         issues,
		},
		Analysis: analysis,
		Metadata: UploadMetadata{
			AnalysisDate:    s.now().Format(time.RFC3339),
			DateRange:       DateRange{Start: rangeStart, End: rangeEnd},
			TotalEnergyKWh:  energy,
			TotalCost:       cost,
			ColumnsAnalyzed: columns,
			RateStructure:   req.RateStructure,
		},
	}, nil
}

// AnalyzeSessions analyzes structured sessions.
func (s *Service) AnalyzeSessions(ctx context.Context, sessions []SessionInput, req AnalysisRequest) (result *AnalysisResult, err error) {
	start := s.now()
	defer func() { s.observe(SourceSessions, err == nil, start) }()

	if err := ValidateSessions(s.validate, sessions); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "date_range_end", Message: err.Error()}}}
	}

	table := ApplyFilters(SessionsTable(sessions), req)
	if table.Len() == 0 {
		return nil, ErrNoDataAfterFilters
	}

	report, err := s.analyze(ctx, SourceSessions, table, req)
	if err != nil {
		return nil, err
	}

	return &AnalysisResult{
		Success:    true,
		AnalysisID: uuid.NewString(),
		Data:       report,
		Metadata: SessionsMetadata{
			SessionsAnalyzed: table.Len(),
			AnalysisDate:     s.now().Format(time.RFC3339),
			FiltersApplied: FiltersApplied{
				DateRange:      req.HasDateRange(),
				LocationFilter: len(req.LocationFilter) > 0,
			},
			RateStructure: req.RateStructure,
		},
	}, nil
}

// Normalize processes an upload and returns the canonical CSV. layout may be
// nil.
func (s *Service) Normalize(ctx context.Context, name string, data []byte, layout *sniffer.DetectOptions) ([]byte, error) {
	if err := s.CheckUpload(name, int64(len(data))); err != nil {
		return nil, err
	}
	result := s.processor.Process(ctx, importservice.Source{Name: name, Data: data, Layout: layout})
	if !result.Success || result.Data == nil {
		return nil, &ProcessingError{Issues: result.Issues, Metadata: result.Metadata}
	}
	return importservice.ExportCSV(result.Data)
}

func (s *Service) analyze(ctx context.Context, source string, table *normalizer.Table, req AnalysisRequest) (*efficiency.Report, error) {
	_, span := s.tracer.Start(ctx, "charging.Analyze",
		trace.WithAttributes(attribute.String("analysis.source", source), attribute.Int("analysis.sessions", table.Len())))
	defer span.End()

	analysis, err := s.engine.Analyze(table)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "analysis failed", "source", source, "error", err)
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if !req.IncludeRecommendations {
		analysis.Recommendations = []string{}
	}
	span.SetAttributes(attribute.String("analysis.rating", string(analysis.Overall.Rating)))

	s.logger.InfoContext(ctx, "analysis complete",
		"source", source,
		"sessions", analysis.Sessions,
		"rating", analysis.Overall.Rating,
		"recommendations", len(analysis.Recommendations),
	)
	return efficiency.FormatReport(analysis, s.opts.Currency), nil
}

// roundTrip stages the upload in temporary storage and reads it back. The
// staged file is removed before returning.
func (s *Service) roundTrip(ctx context.Context, name string, data []byte) ([]byte, error) {
	if s.store == nil {
		return data, nil
	}
	info, err := s.store.Save(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	defer func() {
		if err := s.store.Remove(context.WithoutCancel(ctx), info); err != nil {
			s.logger.Warn("temp file cleanup failed", "path", info.Path, "error", err)
		}
	}()

	rc, err := s.store.Open(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged upload: %w", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to read staged upload: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) observe(source string, success bool, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveAnalysis(source, success, s.now().Sub(start))
	}
}

func hasAllowedExtension(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, ext := range allowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsClientError reports whether err was caused by the request rather than the
// service.
func IsClientError(err error) bool {
	var (
		processing *ProcessingError
		quality    *QualityError
		validation *ValidationError
	)
	return errors.Is(err, ErrInvalidUpload) ||
		errors.Is(err, ErrNoSessions) ||
		errors.Is(err, ErrNoDataAfterFilters) ||
		errors.As(err, &processing) ||
		errors.As(err, &quality) ||
		errors.As(err, &validation)
}
