// Package pipeline runs one submitted document through extraction and generation and
// packages the result as a note.
//
// Processing is sequential: extraction completes before generation starts. Failures in
// either stage never abort the run; they are recorded in the note as the fixed
// messages a reader sees in place of text or an artifact.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studynotes/internal/cache"
	"studynotes/internal/extract"
	"studynotes/internal/logger"
	"studynotes/internal/metrics"
	"studynotes/internal/study"
	"studynotes/pkg/models"
)

// NoteSaver persists processed notes.
type NoteSaver interface {
	Save(ctx context.Context, note *models.Note) error
}

// Outcome is the result of one run.
type Outcome struct {
	RunID    string               `json:"run_id"`
	Note     models.Note          `json:"note"`
	Method   extract.Method       `json:"method,omitempty"`
	CacheHit bool                 `json:"cache_hit"`
	Report   study.ArtifactReport `json:"report"`
	Duration time.Duration        `json:"duration"`

	// ExtractErr and GenerateErr keep the typed causes behind the fixed messages.
	ExtractErr  error `json:"-"`
	GenerateErr error `json:"-"`
}

// Pipeline sequences the extractor and the generator.
type Pipeline struct {
	extractor *extract.Extractor
	generator *study.Generator
	cache     cache.Cache
	saver     NoteSaver
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithCache reuses artifacts for prompts that were already answered.
func WithCache(c cache.Cache) Option { return func(p *Pipeline) { p.cache = c } }

// WithSaver persists every processed note.
func WithSaver(s NoteSaver) Option { return func(p *Pipeline) { p.saver = s } }

// WithMetrics records stage metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// New creates a pipeline.
func New(extractor *extract.Extractor, generator *study.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		generator: generator,
		log:       logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process reads doc, generates its study artifact and, when a saver is configured,
// stores the note. The only error returned is a failure to save.
func (p *Pipeline) Process(ctx context.Context, doc models.Document) (*Outcome, error) {
	const op = "Process"
	startTime := time.Now()

	out := &Outcome{
		RunID: uuid.NewString(),
		Note: models.Note{
			Filename: doc.Filename,
			Kind:     doc.Kind,
		},
	}
	log := p.log.With().Str("run_id", out.RunID).Str("file", doc.Filename).Logger()
	log.Info().Str("kind", string(doc.Kind)).Msg("Processing document")

	extractStart := time.Now()
	extracted, err := p.extractor.Extract(ctx, doc)
	p.metrics.ObserveStage("extract", time.Since(extractStart))
	if err != nil {
		out.ExtractErr = err
		out.Note.OriginalText = extract.ReadErrorMessage
		p.metrics.ExtractionFailed(string(doc.Kind))
	} else {
		out.Method = extracted.Method
		out.Note.Kind = extracted.Kind
		out.Note.OriginalText = extracted.Text
		p.metrics.DocumentProcessed(string(extracted.Kind), string(extracted.Method))
	}

	out.Note.Summary = p.summarize(ctx, log, out, extracted)
	out.Report = study.Inspect(out.Note.Summary)
	if out.GenerateErr == nil && !out.Report.WellFormed() {
		log.Warn().
			Bool("has_summary", out.Report.HasSummary).
			Int("questions", out.Report.Questions).
			Msg("Artifact does not follow the summary and quiz layout")
	}

	if p.saver != nil {
		if err := p.saver.Save(ctx, &out.Note); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	out.Duration = time.Since(startTime)
	log.Info().
		Int64("note_id", out.Note.ID).
		Str("method", string(out.Method)).
		Bool("cache_hit", out.CacheHit).
		Bool("truncated", out.Note.Truncated).
		Dur("duration", out.Duration).
		Msg("Document processed")

	return out, nil
}

// summarize produces the artifact text. Unreadable documents get NoTextMessage
// without an inference call, as there is no recovered text to send.
func (p *Pipeline) summarize(ctx context.Context, log zerolog.Logger, out *Outcome, extracted *extract.Result) string {
	if extracted == nil || strings.TrimSpace(extracted.Text) == "" {
		out.GenerateErr = study.ErrNoText
		p.metrics.Inference("skipped")
		return study.NoTextMessage
	}

	cfg := p.generator.Config()
	prompt, truncated := study.Truncate(extracted.Text, cfg.MaxInputChars)
	out.Note.Truncated = truncated

	key := cache.Key(cfg.Model, prompt)
	if artifact, ok := p.cachedArtifact(ctx, log, key); ok {
		out.CacheHit = true
		p.metrics.Inference("cached")
		return artifact
	}

	generateStart := time.Now()
	gen, err := p.generator.Generate(ctx, extracted.Text)
	p.metrics.ObserveStage("generate", time.Since(generateStart))
	if err != nil {
		out.GenerateErr = err
		if errors.Is(err, study.ErrNoText) {
			p.metrics.Inference("skipped")
		} else {
			p.metrics.Inference("error")
		}
		return study.ArtifactOrMessage(gen, err)
	}
	p.metrics.Inference("success")

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, gen.Artifact); err != nil {
			log.Warn().Err(err).Msg("Failed to cache artifact")
		}
	}
	return gen.Artifact
}

func (p *Pipeline) cachedArtifact(ctx context.Context, log zerolog.Logger, key string) (string, bool) {
	if p.cache == nil {
		return "", false
	}
	artifact, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Cache lookup failed")
		return "", false
	}
	if !ok {
		p.metrics.CacheMiss()
		return "", false
	}
	p.metrics.CacheHit()
	log.Info().Msg("Artifact served from cache")
	return artifact, true
}
