package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/FACorreiaa/charge-analytics/internal/domain/charging"
	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/charge-analytics/internal/domain/import/sniffer"
	"github.com/FACorreiaa/charge-analytics/pkg/httperr"
)

const (
	uploadField = "file"
	// Room for multipart boundaries and headers on top of the file limit.
	multipartOverhead = 1 << 20
	maxSessionsBody   = 10 << 20

	msgNoUploadData   = "No data after applying filters"
	msgNoSessionsData = "No sessions after applying filters"
)

// ChargingHandler serves the charging analysis API.
type ChargingHandler struct {
	svc    *charging.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewChargingHandler creates a new charging handler
func NewChargingHandler(svc *charging.Service, logger *slog.Logger) *ChargingHandler {
	return &ChargingHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "charging_handler")),
		now:    time.Now,
	}
}

// Routes mounts the handler under /api/charging.
func (h *ChargingHandler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Post("/analyze-sessions", h.AnalyzeSessions)
	r.Post("/normalize", h.Normalize)
	r.Get("/supported-formats", h.SupportedFormats)
	r.Get("/health", h.Health)
}

// Upload analyzes a multipart CSV upload.
func (h *ChargingHandler) Upload(w http.ResponseWriter, r *http.Request) {
	req, apiErr := ParseAnalysisRequest(r)
	if apiErr != nil {
		httperr.Write(w, r, apiErr)
		return
	}

	name, data, apiErr := h.readUpload(w, r)
	if apiErr != nil {
		httperr.Write(w, r, apiErr)
		return
	}

	report, err := h.svc.AnalyzeUpload(r.Context(), name, data, req)
	if err != nil {
		h.fail(w, r, err, msgNoUploadData)
		return
	}
	render.JSON(w, r, report)
}

// AnalyzeSessions analyzes a JSON array of sessions.
func (h *ChargingHandler) AnalyzeSessions(w http.ResponseWriter, r *http.Request) {
	req, apiErr := ParseAnalysisRequest(r)
	if apiErr != nil {
		httperr.Write(w, r, apiErr)
		return
	}

	var sessions []charging.SessionInput
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSessionsBody)).Decode(&sessions); err != nil {
		httperr.Write(w, r, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidRequest,
			"Invalid request format", err.Error()))
		return
	}

	result, err := h.svc.AnalyzeSessions(r.Context(), sessions, req)
	if err != nil {
		h.fail(w, r, err, msgNoSessionsData)
		return
	}
	render.JSON(w, r, result)
}

// Normalize returns the cleaned sessions of an upload as canonical CSV.
func (h *ChargingHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	layout, apiErr := parseLayout(r)
	if apiErr != nil {
		httperr.Write(w, r, apiErr)
		return
	}

	name, data, apiErr := h.readUpload(w, r)
	if apiErr != nil {
		httperr.Write(w, r, apiErr)
		return
	}

	out, err := h.svc.Normalize(r.Context(), name, data, layout)
	if err != nil {
		h.fail(w, r, err, msgNoUploadData)
		return
	}

	base := strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".csv")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_normalized.csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// SupportedFormats describes the accepted exports.
func (h *ChargingHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, charging.SupportedFormats(h.svc.MaxUploadBytes()))
}

// Health is the liveness probe.
func (h *ChargingHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"status":    "healthy",
		"service":   "charging-analysis",
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// readUpload reads the multipart file field. Size and name rules are left to
// the service so both endpoints report them the same way. A limit of zero
// or less reads the upload whole.
func (h *ChargingHandler) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, *httperr.APIError) {
	limit := h.svc.MaxUploadBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, uploadError(h.svc.CheckUpload("upload.csv", limit+1))
		}
		return "", nil, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidRequest,
			"Multipart field 'file' is required", err.Error())
	}
	defer file.Close()

	var src io.Reader = file
	if limit > 0 {
		src = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", nil, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidUpload,
			"Cannot read upload", err.Error())
	}
	return header.Filename, data, nil
}

func uploadError(err error) *httperr.APIError {
	return httperr.New(http.StatusBadRequest, httperr.CodeInvalidUpload, err.Error())
}

// fail maps service errors to API errors. noData is the message used when
// the filters removed every session.
func (h *ChargingHandler) fail(w http.ResponseWriter, r *http.Request, err error, noData string) {
	var (
		processing *charging.ProcessingError
		quality    *charging.QualityError
		validation *charging.ValidationError
	)

	var apiErr *httperr.APIError
	switch {
	case errors.Is(err, charging.ErrInvalidUpload):
		apiErr = uploadError(err)
	case errors.Is(err, charging.ErrNoSessions):
		apiErr = httperr.New(http.StatusBadRequest, httperr.CodeInvalidRequest, "No charging sessions provided")
	case errors.As(err, &validation):
		apiErr = httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeValidationFailed,
			"Request validation failed", map[string]any{"errors": validation.Fields})
	case errors.As(err, &processing):
		apiErr = httperr.NewWithDetails(http.StatusUnprocessableEntity, httperr.CodeProcessingFailed,
			"Failed to process CSV data", map[string]any{"issues": processing.Issues, "metadata": processing.Metadata})
	case errors.As(err, &quality):
		apiErr = httperr.NewWithDetails(http.StatusUnprocessableEntity, httperr.CodePoorDataQuality,
			"Data quality too poor for reliable analysis", map[string]any{
				"quality":     quality.Quality,
				"issues":      quality.Issues,
				"suggestions": quality.Suggestions,
			})
	case errors.Is(err, charging.ErrNoDataAfterFilters):
		apiErr = httperr.New(http.StatusUnprocessableEntity, httperr.CodeNoData, noData)
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
		)
		apiErr = httperr.Internal()
	}

	if apiErr.StatusCode < http.StatusInternalServerError {
		h.logger.InfoContext(r.Context(), "request rejected",
			slog.String("error_code", apiErr.ErrorCode),
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
	}
	httperr.Write(w, r, apiErr)
}

// ParseAnalysisRequest reads the analysis options from the query string.
func ParseAnalysisRequest(r *http.Request) (charging.AnalysisRequest, *httperr.APIError) {
	q := r.URL.Query()
	req := charging.DefaultRequest()

	if v := q.Get("include_recommendations"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, httperr.InvalidParameter("include_recommendations", err)
		}
		req.IncludeRecommendations = b
	}
	if v := strings.TrimSpace(q.Get("rate_structure")); v != "" {
		req.RateStructure = &v
	}
	for _, v := range q["location_filter"] {
		if v = strings.TrimSpace(v); v != "" {
			req.LocationFilter = append(req.LocationFilter, v)
		}
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
	}{
		{"date_range_start", &req.DateRangeStart},
		{"date_range_end", &req.DateRangeEnd},
	} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := charging.ParseDate(v)
		if err != nil {
			return req, httperr.InvalidParameter(p.name, err)
		}
		*p.dst = &t
	}

	layout, apiErr := parseLayout(r)
	if apiErr != nil {
		return req, apiErr
	}
	req.Layout = layout
	return req, nil
}

func parseLayout(r *http.Request) (*sniffer.DetectOptions, *httperr.APIError) {
	layout, param, err := importservice.ParseLayout(r.URL.Query())
	if err != nil {
		return nil, httperr.InvalidParameter(param, err)
	}
	return layout, nil
}
