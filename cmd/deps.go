package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"studynotes/internal/cache"
	"studynotes/internal/config"
	"studynotes/internal/extract"
	"studynotes/internal/ocr"
	"studynotes/internal/ocr/tesseract"
	"studynotes/internal/study"
)

// loadConfig reads the environment and the --config file, if given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// createContextWithTimeout creates a context with timeout and signal handling.
// A zero timeout only cancels on signals.
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// newOCREngine creates the engine selected by OCR_ENGINE.
func newOCREngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case "vision":
		engine, err := ocr.NewVisionEngine(ctx, cfg.Languages())
		if err != nil {
			if errors.Is(err, ocr.ErrMissingCredentials) {
				return nil, fmt.Errorf("Google Cloud credentials not configured. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS, or use OCR_ENGINE=tesseract: %w", err)
			}
			return nil, fmt.Errorf("failed to create Vision OCR engine: %w", err)
		}
		return engine, nil
	default:
		return tesseract.NewEngine(cfg.Languages()), nil
	}
}

// newExtractor wires the OCR engine, PDF reader and rasterizer from configuration.
func newExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Extractor, ocr.Engine, error) {
	engine, err := newOCREngine(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("ocr_engine", engine.Name()).Msg("OCR engine ready")

	rasterizer := &extract.PdftoppmRasterizer{
		Binary: cfg.PdftoppmPath,
		DPI:    cfg.RasterDPI,
	}
	return extract.NewExtractor(engine, extract.LedongthucReader{}, rasterizer, cfg.GetExtractConfig()), engine, nil
}

// newGenerator creates the study generator for the configured inference endpoint.
func newGenerator(cfg *config.Config) (*study.Generator, error) {
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingToken) {
			return nil, fmt.Errorf("HF_TOKEN is not set. Create an access token at https://huggingface.co/settings/tokens and export HF_TOKEN or add it to .env")
		}
		return nil, err
	}
	client := study.NewOpenAIClient(cfg.HFToken, cfg.InferenceBaseURL, cfg.InferenceTimeout)
	return study.NewGenerator(client, cfg.GetStudyConfig()), nil
}

// newCache connects to Redis when REDIS_URL is set. A failed connection disables caching.
func newCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) cache.Cache {
	if cfg.RedisURL == "" {
		return nil
	}
	c, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, continuing without artifact cache")
		return nil
	}
	return c
}

// handleExtractError provides user-friendly error messages for extraction failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, extract.ErrUnsupportedKind):
		return fmt.Errorf("unsupported file type. Use a .pdf, .png, .jpg, .jpeg or .txt file")
	case errors.Is(err, extract.ErrCorruptPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, extract.ErrRasterizeFailed):
		return fmt.Errorf("could not render PDF pages for OCR. Install poppler-utils (pdftoppm) or set PDFTOPPM_PATH: %w", err)
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return fmt.Errorf("OCR engine is not available. Install tesseract or set OCR_ENGINE=vision: %w", err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured for Vision OCR: %w", err)
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large for OCR. Try a smaller or compressed image")
	case errors.Is(err, extract.ErrUnreadableFile), errors.Is(err, ocr.ErrUnreadableImage):
		return fmt.Errorf("%s (%v)", extract.ReadErrorMessage, err)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, path string, log zerolog.Logger) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Error().Err(err).Str("output_file", path).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", path).Int("bytes", len(data)).Msg("Output written to file")
	return nil
}
