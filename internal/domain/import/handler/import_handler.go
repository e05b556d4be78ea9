package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	importservice "github.com/FACorreiaa/charge-analytics/internal/domain/import/service"
	"github.com/FACorreiaa/charge-analytics/pkg/httperr"
)

// ImportHandler exposes export inspection ahead of a full analysis.
type ImportHandler struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(maxBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "import_handler")),
	}
}

// Routes mounts the handler under /api/import.
func (h *ImportHandler) Routes(r chi.Router) {
	r.Post("/inspect", h.Inspect)
}

// Inspect reports the detected layout, column mapping and a sample of rows.
// header_row and delimiter override detection.
func (h *ImportHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	layout, param, err := importservice.ParseLayout(r.URL.Query())
	if err != nil {
		httperr.Write(w, r, httperr.InvalidParameter(param, err))
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httperr.Write(w, r, httperr.New(http.StatusBadRequest, httperr.CodeInvalidUpload, "File too large"))
			return
		}
		httperr.Write(w, r, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidRequest,
			"Multipart field 'file' is required", err.Error()))
		return
	}
	defer file.Close()

	var src io.Reader = file
	if h.maxBytes > 0 {
		src = io.LimitReader(file, h.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		httperr.Write(w, r, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidUpload,
			"Cannot read upload", err.Error()))
		return
	}
	if h.maxBytes > 0 && int64(len(data)) > h.maxBytes {
		httperr.Write(w, r, httperr.New(http.StatusBadRequest, httperr.CodeInvalidUpload, "File too large"))
		return
	}

	result, err := importservice.Inspect(importservice.Source{Name: header.Filename, Data: data, Layout: layout})
	if err != nil {
		h.logger.InfoContext(r.Context(), "failed to inspect upload",
			slog.String("file", header.Filename),
			slog.Any("error", err),
		)
		httperr.Write(w, r, httperr.NewWithDetails(http.StatusBadRequest, httperr.CodeInvalidUpload,
			"Invalid CSV", err.Error()))
		return
	}

	render.JSON(w, r, result)
}
