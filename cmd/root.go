package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"studynotes/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "studynotes",
	Short: "Study Notes - turn handwritten notes into summaries and quizzes",
	Long: `Study Notes reads lecture notes from PDF, image or text files, recovers
their text (falling back to OCR for scanned pages) and asks a language model
to produce a corrected HTML summary with a three-question self-check quiz.

Run "studynotes serve" for the web interface or use the extract and
summarize commands directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides STUDYNOTES_CONFIG)")
}
