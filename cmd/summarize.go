package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"studynotes/internal/logger"
	"studynotes/internal/pipeline"
	"studynotes/internal/store"
	"studynotes/internal/study"
	"studynotes/pkg/models"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [file]",
	Short: "Generate a summary and self-check quiz from a notes file",
	Long: `Recover the text of a notes file and ask the language model for a corrected
summary followed by a three-question multiple-choice quiz.

The model is reached through an OpenAI-compatible endpoint, by default the
Hugging Face router (INFERENCE_BASE_URL) with HF_TOKEN. Only the first
MAX_INPUT_CHARS characters (default 6000) of the text are sent.

Output formats:
  html      the artifact as returned by the model (default)
  markdown  the artifact converted to Markdown
  json      text, artifact and processing metadata

With --save the note is also stored in the history database (DATABASE_PATH).
When REDIS_URL is set, artifacts are cached by model and prompt.`,
	Example: `  # Summarize typed notes
  studynotes summarize os-notes.txt

  # Summarize a scanned PDF into a Markdown file and keep it in the history
  studynotes summarize networks.pdf --format markdown -o networks.md --save`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	summarizeCmd.Flags().StringP("format", "f", "html", "Output format: html, markdown or json")
	summarizeCmd.Flags().Bool("save", false, "Store the note in the history database")
	summarizeCmd.Flags().Duration("timeout", 10*time.Minute, "Overall processing timeout")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("summarize-cmd")

	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	switch format {
	case "html", "markdown", "json":
	default:
		return fmt.Errorf("invalid --format %q: use html, markdown or json", format)
	}

	path := args[0]
	if _, err := validateInputFile(path); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	generator, err := newGenerator(cfg)
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

	opts := []pipeline.Option{}
	if c := newCache(ctx, cfg, log); c != nil {
		defer c.Close()
		opts = append(opts, pipeline.WithCache(c))
	}
	if save {
		st, err := store.Open(ctx, cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, pipeline.WithSaver(st))
	}

	out, err := pipeline.New(extractor, generator, opts...).Process(ctx, models.NewDocument(path, ""))
	if err != nil {
		return err
	}

	if out.ExtractErr != nil {
		reportExtractFailure(os.Stderr, out.ExtractErr, log)
	}
	if out.Note.Truncated {
		log.Warn().Int("max_input_chars", cfg.MaxInputChars).Msg("Only the beginning of the text was summarized")
	}

	data, err := formatOutcome(out, format)
	if err != nil {
		return err
	}
	return writeOutput(data, outputPath, log)
}

// reportExtractFailure logs err once and prints the user-facing hint to w.
func reportExtractFailure(w io.Writer, err error, log zerolog.Logger) {
	fmt.Fprintf(w, "Warning: %v\n", handleExtractError(err, log))
}

// formatOutcome renders the outcome in the requested output format.
func formatOutcome(out *pipeline.Outcome, format string) ([]byte, error) {
	switch format {
	case "markdown":
		if out.GenerateErr != nil {
			return []byte(out.Note.Summary), nil
		}
		md, err := study.ToMarkdown(out.Note.Summary)
		if err != nil {
			return nil, err
		}
		return []byte(md), nil
	case "json":
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to create JSON output: %w", err)
		}
		return data, nil
	default:
		return []byte(out.Note.Summary), nil
	}
}
