package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"studynotes/internal/logger"
	"studynotes/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Recover the text of a PDF, image or text file",
	Long: `Recover the plain text of a document without calling the language model.

PDFs are read from their embedded text layer. When the text layer holds fewer
than MIN_TEXT_LAYER_CHARS characters (default 10), every page is rendered with
pdftoppm and read with OCR instead. Images (.png, .jpg, .jpeg) always go through
OCR and .txt files are printed verbatim.

OCR uses Tesseract by default. Set OCR_ENGINE=vision to use Google Cloud Vision
(requires GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS).`,
	Example: `  # Print the text of a scanned PDF
  studynotes extract lecture-3.pdf

  # Save the text of a photo of the whiteboard
  studynotes extract board.jpg -o board.txt

  # Include extraction metadata as JSON
  studynotes extract lecture-3.pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON output of the extract command.
type ExtractOutput struct {
	Text               string      `json:"text"`
	Kind               models.Kind `json:"kind"`
	Method             string      `json:"method"`
	PageCount          int         `json:"page_count,omitempty"`
	ProcessingDuration string      `json:"processing_duration"`
	FileName           string      `json:"file_name"`
	FileSize           int64       `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON with metadata")
	extractCmd.Flags().Duration("timeout", 5*time.Minute, "Processing timeout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract-cmd")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	path := args[0]
	fileInfo, err := validateInputFile(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	extractor, engine, err := newExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := extractor.Extract(ctx, models.NewDocument(path, ""))
	if err != nil {
		return handleExtractError(err, log)
	}

	if !jsonOutput {
		return writeOutput([]byte(result.Text), outputPath, log)
	}

	data, err := json.MarshalIndent(ExtractOutput{
		Text:               result.Text,
		Kind:               result.Kind,
		Method:             string(result.Method),
		PageCount:          result.PageCount,
		ProcessingDuration: result.Duration.String(),
		FileName:           filepath.Base(path),
		FileSize:           fileInfo.Size(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(data, outputPath, log)
}

// validateInputFile checks that path is a readable regular file of a supported kind.
func validateInputFile(path string) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if models.KindFromFilename(path) == models.KindUnknown {
		return nil, fmt.Errorf("unsupported file type %q. Use a .pdf, .png, .jpg, .jpeg or .txt file", filepath.Ext(path))
	}
	return fileInfo, nil
}
