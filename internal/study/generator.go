// Package study turns recovered note text into an HTML study artifact: a corrected
// summary followed by a three-question self-check quiz.
//
// The text is sent to an OpenAI-compatible chat completion endpoint. By default this is
// the Hugging Face inference router, authenticated with HF_TOKEN.
//
// Input handling:
//   - Blank input short-circuits with ErrNoText and never reaches the backend
//   - Only the first Config.MaxInputChars characters are sent; Generation.Truncated reports the cut
//   - Code fences around the answer are removed and the result is trimmed
//
// Generate returns typed errors. Artifact is the total variant used by the pipeline:
// it always returns a string, substituting NoTextMessage or an "AI Service Error: ..."
// message on failure.
package study

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"studynotes/internal/logger"
)

const (
	DefaultBaseURL       = "https://router.huggingface.co/v1"
	DefaultModel         = "Qwen/Qwen2.5-72B-Instruct"
	DefaultMaxTokens     = 2000
	DefaultTemperature   = float32(0.3)
	DefaultTimeout       = 120 * time.Second
	DefaultMaxInputChars = 6000
)

// ChatCompleter is the part of *openai.Client the generator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures the generator.
type Config struct {
	// Model is the chat model identifier sent with each request.
	Model string

	// MaxTokens bounds the completion length.
	MaxTokens int

	// Temperature is kept low so corrections stay factual.
	Temperature float32

	// MaxInputChars is the number of characters of input included in the prompt.
	MaxInputChars int

	// Timeout bounds a single request. Zero disables the per-request deadline.
	Timeout time.Duration

	// Attempts is the number of requests made before giving up. Default: 1.
	Attempts int
}

// DefaultConfig returns the standard generation settings.
func DefaultConfig() Config {
	return Config{
		Model:         DefaultModel,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   DefaultTemperature,
		MaxInputChars: DefaultMaxInputChars,
		Timeout:       DefaultTimeout,
		Attempts:      1,
	}
}

// Generation is one produced artifact with its request metadata.
type Generation struct {
	Artifact   string        `json:"artifact"`
	Truncated  bool          `json:"truncated"`
	Model      string        `json:"model"`
	InputChars int           `json:"input_chars"`
	Duration   time.Duration `json:"duration"`
}

// Generator produces study artifacts through a chat completion backend.
type Generator struct {
	client ChatCompleter
	config Config
	log    zerolog.Logger
}

// NewOpenAIClient creates a go-openai client for an OpenAI-compatible endpoint.
func NewOpenAIClient(token, baseURL string, timeout time.Duration) *openai.Client {
	clientConfig := openai.DefaultConfig(token)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(clientConfig)
}

// NewGenerator creates a generator. Zero fields in config fall back to DefaultConfig.
func NewGenerator(client ChatCompleter, config Config) *Generator {
	defaults := DefaultConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}
	// go-openai omits a zero temperature, which leaves the choice to the backend.
	if config.Temperature <= 0 {
		config.Temperature = defaults.Temperature
	}
	if config.MaxInputChars <= 0 {
		config.MaxInputChars = defaults.MaxInputChars
	}
	if config.Attempts < 1 {
		config.Attempts = defaults.Attempts
	}

	return &Generator{
		client: client,
		config: config,
		log:    logger.WithComponent("study"),
	}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.config
}

// Generate summarizes text into a study artifact.
func (g *Generator) Generate(ctx context.Context, text string) (*Generation, error) {
	const op = "Generate"
	startTime := time.Now()

	if strings.TrimSpace(text) == "" {
		g.log.Warn().Msg("No text to summarize, skipping inference")
		return nil, ErrNoText
	}

	prompt, truncated := Truncate(text, g.config.MaxInputChars)
	if truncated {
		g.log.Warn().
			Int("input_chars", utf8.RuneCountInString(text)).
			Int("max_input_chars", g.config.MaxInputChars).
			Msg("Input truncated before inference")
	}

	g.log.Info().
		Str("model", g.config.Model).
		Int("prompt_chars", utf8.RuneCountInString(prompt)).
		Msgf("Sending request to %s", g.config.Model)

	artifact, err := g.complete(ctx, prompt)
	if err != nil {
		g.log.Error().Err(err).Str("model", g.config.Model).Msg("Inference failed")
		return nil, &InferenceError{Op: op, Model: g.config.Model, Err: err}
	}

	gen := &Generation{
		Artifact:   artifact,
		Truncated:  truncated,
		Model:      g.config.Model,
		InputChars: utf8.RuneCountInString(prompt),
		Duration:   time.Since(startTime),
	}

	g.log.Info().
		Str("model", gen.Model).
		Int("artifact_length", len(gen.Artifact)).
		Bool("truncated", gen.Truncated).
		Dur("duration", gen.Duration).
		Msg("Study artifact generated")

	return gen, nil
}

// Artifact is the total form of Generate.
func (g *Generator) Artifact(ctx context.Context, text string) string {
	gen, err := g.Generate(ctx, text)
	return ArtifactOrMessage(gen, err)
}

// ArtifactOrMessage returns the artifact of gen, or the message that stands in for err.
func ArtifactOrMessage(gen *Generation, err error) string {
	switch {
	case errors.Is(err, ErrNoText):
		return NoTextMessage
	case err != nil:
		return ServiceErrorMessage(err)
	default:
		return gen.Artifact
	}
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.config.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		content, err := g.request(ctx, prompt)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && (apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden) {
			break
		}

		if attempt < g.config.Attempts {
			g.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", g.config.Attempts).
				Msg("Inference request failed, retrying")
		}
	}

	if g.config.Attempts > 1 {
		return "", fmt.Errorf("all %d attempts failed, last error: %w", g.config.Attempts, lastErr)
	}
	return "", lastErr
}

func (g *Generator) request(ctx context.Context, prompt string) (string, error) {
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.config.Model,
		Messages:    BuildMessages(prompt),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrEmptyCompletion)
	}

	content := Normalize(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: finish reason %q", ErrEmptyCompletion, resp.Choices[0].FinishReason)
	}
	return content, nil
}

// Normalize removes ```html and ``` fences and surrounding whitespace from a completion.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "```html", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}
