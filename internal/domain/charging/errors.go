package charging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/FACorreiaa/charge-analytics/internal/domain/import/normalizer"
)

var (
	// ErrInvalidUpload is matched by every *UploadError.
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrNoSessions         = errors.New("no charging sessions provided")
	ErrNoDataAfterFilters = errors.New("no data after applying filters")
)

// UploadError rejects an upload before processing starts. Message is shown
// to the client as is.
type UploadError struct {
	Message string
}

func (e *UploadError) Error() string { return e.Message }

func (e *UploadError) Is(target error) bool { return target == ErrInvalidUpload }

// ProcessingError carries an unsuccessful processing result.
type ProcessingError struct {
	Issues   []string
	Metadata map[string]any
}

func (e *ProcessingError) Error() string {
	return "failed to process CSV data: " + strings.Join(e.Issues, "; ")
}

// QualityError rejects data that processed but scored below the accepted
// minimum.
type QualityError struct {
	Quality     normalizer.Quality
	Issues      []string
	Suggestions []string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("data quality too poor for reliable analysis: %s", e.Quality)
}

var qualitySuggestions = []string{
	"Ensure CSV contains complete session rows",
	"Verify date, energy, and cost columns are present",
	"Check for consistent formatting (decimal separator, currency, etc.)",
}

// FieldError names one invalid field of a request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
