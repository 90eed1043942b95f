// Package extract recovers plain text from submitted documents.
//
// PDFs are read from their embedded text layer first. Scanned PDFs often carry an
// empty or near-empty text layer, so when fewer than Config.MinTextLayerChars
// characters survive trimming, every page is rasterized and run through OCR instead.
// Images always go through OCR and .txt files are read verbatim.
//
// Extract reports failures as typed errors; ExtractText is the total variant that
// returns ReadErrorMessage instead, so callers always get some text.
package extract

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"studynotes/internal/logger"
	"studynotes/internal/ocr"
	"studynotes/pkg/models"
)

// DefaultMinTextLayerChars is the trimmed text-layer length below which a PDF is OCRed.
const DefaultMinTextLayerChars = 10

// Method records how the text was recovered.
type Method string

const (
	MethodTextLayer   Method = "text-layer"
	MethodOCRFallback Method = "ocr-fallback"
	MethodOCR         Method = "ocr"
	MethodDirect      Method = "direct"
)

// Config configures the extractor.
type Config struct {
	// MinTextLayerChars is compared against the rune count of the trimmed text layer.
	MinTextLayerChars int
}

// DefaultConfig returns a Config with the standard fallback threshold.
func DefaultConfig() Config {
	return Config{MinTextLayerChars: DefaultMinTextLayerChars}
}

// Result is the recovered text of one document with metadata.
type Result struct {
	Text      string        `json:"text"`
	Kind      models.Kind   `json:"kind"`
	Method    Method        `json:"method"`
	PageCount int           `json:"page_count,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Extractor chooses between text layer, OCR fallback, OCR and direct read.
type Extractor struct {
	engine     ocr.Engine
	textLayer  TextLayerReader
	rasterizer Rasterizer
	config     Config
	log        zerolog.Logger
}

// NewExtractor creates an extractor with explicit dependencies. engine may be nil,
// in which case images and scanned PDFs fail with ErrOCRUnavailable.
func NewExtractor(engine ocr.Engine, textLayer TextLayerReader, rasterizer Rasterizer, config Config) *Extractor {
	return &Extractor{
		engine:     engine,
		textLayer:  textLayer,
		rasterizer: rasterizer,
		config:     config,
		log:        logger.WithComponent("extract"),
	}
}

// Extract recovers the text of doc. On error no partial text is returned.
func (e *Extractor) Extract(ctx context.Context, doc models.Document) (result *Result, err error) {
	const op = "Extract"
	startTime := time.Now()

	kind := doc.Kind
	if kind == "" {
		kind = models.KindFromFilename(doc.Filename)
		if doc.Filename == "" {
			kind = models.KindFromFilename(doc.Path)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("file", doc.Path).Str("kind", string(kind)).Interface("panic", r).Msg("Extraction panicked")
			result = nil
			err = &ExtractionError{Op: op, Path: doc.Path, Err: ErrExtractionPanic, Details: fmt.Sprintf("panic: %v", r)}
		}
	}()

	switch kind {
	case models.KindPDF:
		result, err = e.extractPDF(ctx, doc.Path)
	case models.KindImage:
		e.log.Info().Str("file", doc.Path).Msg("Reading image with OCR")
		var text string
		text, err = e.recognize(ctx, doc.Path)
		result = &Result{Text: text, Method: MethodOCR, PageCount: 1}
	case models.KindPlainText:
		result, err = readPlainText(doc.Path)
	default:
		err = &ExtractionError{Op: op, Path: doc.Path, Err: ErrUnsupportedKind, Details: fmt.Sprintf("kind %q", kind)}
	}

	if err != nil {
		e.log.Error().
			Err(err).
			Str("file", doc.Path).
			Str("kind", string(kind)).
			Msg("Extraction failed")
		return nil, WrapExtractionError(op, doc.Path, err, "")
	}

	result.Kind = kind
	result.Duration = time.Since(startTime)

	e.log.Info().
		Str("file", doc.Path).
		Str("kind", string(kind)).
		Str("method", string(result.Method)).
		Int("page_count", result.PageCount).
		Int("text_length", len(result.Text)).
		Dur("duration", result.Duration).
		Msg("Extraction completed")

	return result, nil
}

// ExtractText is the total form of Extract: any failure becomes ReadErrorMessage.
func (e *Extractor) ExtractText(ctx context.Context, doc models.Document) string {
	result, err := e.Extract(ctx, doc)
	if err != nil {
		return ReadErrorMessage
	}
	return result.Text
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (*Result, error) {
	const op = "extractPDF"

	e.log.Info().Str("file", path).Msg("Reading PDF text layer")

	pages, err := e.readPages(ctx, path)
	if err != nil {
		return nil, WrapExtractionError(op, path, err, "read text layer")
	}

	var text strings.Builder
	for _, page := range pages {
		if page != "" {
			text.WriteString(page)
			text.WriteString("\n")
		}
	}

	trimmedChars := utf8.RuneCountInString(strings.TrimSpace(text.String()))
	if trimmedChars >= e.config.MinTextLayerChars {
		return &Result{Text: text.String(), Method: MethodTextLayer, PageCount: len(pages)}, nil
	}

	e.log.Warn().
		Str("file", path).
		Int("text_layer_chars", trimmedChars).
		Int("threshold", e.config.MinTextLayerChars).
		Msg("No text layer found. Switching to OCR")

	if e.engine == nil {
		return nil, WrapExtractionError(op, path, ErrOCRUnavailable, "")
	}
	if e.rasterizer == nil {
		return nil, WrapExtractionError(op, path, ErrRasterizeFailed, "no rasterizer configured")
	}

	images, cleanup, err := e.rasterizer.Rasterize(ctx, path)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return nil, WrapExtractionError(op, path, err, "rasterize pages")
	}

	var ocrText strings.Builder
	for i, image := range images {
		pageText, err := e.recognize(ctx, image)
		if err != nil {
			return nil, WrapExtractionError(op, path, err, fmt.Sprintf("OCR page %d", i+1))
		}
		ocrText.WriteString(pageText)
		ocrText.WriteString("\n")
	}

	return &Result{Text: ocrText.String(), Method: MethodOCRFallback, PageCount: len(images)}, nil
}

// readPages reads the text layer. PDF parsers panic on some malformed files;
// those count as corrupt input.
func (e *Extractor) readPages(ctx context.Context, path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = WrapExtractionError("readPages", path, ErrCorruptPDF, fmt.Sprintf("parser panic: %v", r))
		}
	}()
	return e.textLayer.ReadPages(ctx, path)
}

func (e *Extractor) recognize(ctx context.Context, imagePath string) (string, error) {
	if e.engine == nil {
		return "", ErrOCRUnavailable
	}
	res, err := e.engine.RecognizeImage(ctx, imagePath)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func readPlainText(path string) (*Result, error) {
	const op = "readPlainText"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExtractionError(op, path, ErrUnreadableFile, err.Error())
	}
	if !utf8.Valid(data) {
		return nil, WrapExtractionError(op, path, ErrUnreadableFile, "content is not valid UTF-8 text")
	}
	return &Result{Text: string(data), Method: MethodDirect}, nil
}
