// Package tesseract implements ocr.Engine on top of libtesseract via gosseract.
// It is kept apart from package ocr because it links against the native library.
package tesseract

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"studynotes/internal/logger"
	"studynotes/internal/ocr"
)

// recognizer is the subset of *gosseract.Client the engine uses.
type recognizer interface {
	SetLanguage(langs ...string) error
	SetImage(imagepath string) error
	Text() (string, error)
	Close() error
}

// Engine recognizes images with a fresh gosseract client per call.
type Engine struct {
	clientFactory func() recognizer
	languages     []string
	log           zerolog.Logger
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine(languages []string) *Engine {
	return &Engine{
		clientFactory: func() recognizer { return gosseract.NewClient() },
		languages:     append([]string(nil), languages...),
		log:           logger.WithComponent("ocr-tesseract"),
	}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "tesseract" }

// RecognizeImage runs tesseract once on the image file. Tesseract calls cannot be
// interrupted, so the context is only checked before the work starts.
// Confidence is not reported.
func (e *Engine) RecognizeImage(ctx context.Context, imagePath string) (*ocr.Result, error) {
	const op = "RecognizeImage"
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, ocr.WrapOCRError(op, err, "canceled before recognition")
	}
	if _, err := os.Stat(imagePath); err != nil {
		return nil, ocr.WrapOCRError(op, ocr.ErrUnreadableImage, err.Error())
	}

	client := e.clientFactory()
	defer client.Close()

	if len(e.languages) > 0 {
		if err := client.SetLanguage(e.languages...); err != nil {
			return nil, ocr.WrapOCRError(op, ocr.ErrEngineUnavailable, fmt.Sprintf("set languages: %v", err))
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, ocr.WrapOCRError(op, ocr.ErrUnreadableImage, fmt.Sprintf("set image: %v", err))
	}

	text, err := client.Text()
	if err != nil {
		return nil, ocr.WrapOCRError(op, ocr.ErrOCRFailed, fmt.Sprintf("recognize text: %v", err))
	}

	result := &ocr.Result{Text: text}
	if len(e.languages) > 0 {
		result.LanguageCodes = e.languages
	}
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	e.log.Debug().
		Str("image", imagePath).
		Int("text_length", len(text)).
		Dur("duration", result.ProcessingDuration).
		Msg("Tesseract recognition completed")

	return result, nil
}

// Close implements ocr.Engine. Clients are per call, so there is nothing to release.
func (e *Engine) Close() error { return nil }
