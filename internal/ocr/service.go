// Package ocr provides optical character recognition for page images and photos.
//
// Two engines are available:
//   - tesseract (subpackage ocr/tesseract): local recognition through libtesseract,
//     the default engine. Requires tesseract and its language data on the host.
//   - vision: Google Cloud Vision document text detection. Requires
//     GOOGLE_APPLICATION_CREDENTIALS (path) or GOOGLE_CREDENTIALS (inline JSON).
//
// Engines recognize one image file at a time. Multi-page PDFs are rasterized by the
// caller and fed page by page, in page order.
package ocr

import (
	"context"
	"time"
)

// Engine recognizes text in a single image file.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string

	// RecognizeImage returns the text found in the image at imagePath.
	RecognizeImage(ctx context.Context, imagePath string) (*Result, error)

	// Close releases engine resources.
	Close() error
}

// Result contains the text recognized in one image with metadata.
type Result struct {
	// Text is the recognized text in reading order.
	Text string `json:"text"`

	// Confidence is the average confidence score (0.0 to 1.0), 0 when the engine
	// does not report one.
	Confidence float32 `json:"confidence"`

	// LanguageCodes contains the detected languages, if the engine reports them.
	LanguageCodes []string `json:"language_codes,omitempty"`

	// ProcessedAt is the timestamp when recognition completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long recognition took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}
