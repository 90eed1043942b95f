package extract

import (
	"errors"
	"fmt"
)

// ReadErrorMessage replaces the recovered text whenever extraction fails.
const ReadErrorMessage = "Error reading file. Please try a different format."

// Common extraction errors
var (
	// ErrUnsupportedKind is returned for files that are not pdf, png, jpg, jpeg or txt.
	ErrUnsupportedKind = errors.New("unsupported file kind")

	// ErrUnreadableFile is returned when the file cannot be opened or decoded.
	ErrUnreadableFile = errors.New("unreadable file")

	// ErrCorruptPDF is returned when the PDF structure or its text layer cannot be parsed.
	ErrCorruptPDF = errors.New("invalid or corrupted PDF document")

	// ErrRasterizeFailed is returned when PDF pages cannot be converted to images.
	ErrRasterizeFailed = errors.New("PDF rasterization failed")

	// ErrOCRUnavailable is returned when OCR is needed but no engine is configured.
	ErrOCRUnavailable = errors.New("no OCR engine configured")

	// ErrExtractionPanic is returned when a backend panics outside PDF parsing.
	ErrExtractionPanic = errors.New("extraction backend panicked")
)

// ExtractionError wraps errors with the file and operation that failed.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "extractPDF", "Rasterize").
	Op string

	// Path is the file being read.
	Path string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s %s failed: %s: %v", e.Op, e.Path, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op, path string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		return err
	}

	return &ExtractionError{Op: op, Path: path, Err: err, Details: details}
}
