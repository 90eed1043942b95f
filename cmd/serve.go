package cmd

import (
	"github.com/spf13/cobra"

	"studynotes/internal/logger"
	"studynotes/internal/metrics"
	"studynotes/internal/pipeline"
	"studynotes/internal/server"
	"studynotes/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Start the HTTP server with the upload page, the history API and Prometheus
metrics. Uploaded files are kept in UPLOAD_DIR and notes in DATABASE_PATH.`,
	Example: `  studynotes serve
  studynotes serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: LISTEN_ADDR or :5000)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve-cmd")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.ListenAddr = addr
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	extractor, engine, err := newExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	opts := []pipeline.Option{pipeline.WithSaver(st), pipeline.WithMetrics(m)}
	if c := newCache(ctx, cfg, log); c != nil {
		defer c.Close()
		opts = append(opts, pipeline.WithCache(c))
	}

	srv, err := server.New(server.Config{
		Addr:           cfg.ListenAddr,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, pipeline.New(extractor, generator, opts...), st, m)
	if err != nil {
		return err
	}

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("model", cfg.InferenceModel).
		Str("ocr_engine", engine.Name()).
		Msg("Starting study notes server")

	return srv.Run(ctx)
}
