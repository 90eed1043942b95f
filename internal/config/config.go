package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"studynotes/internal/extract"
	"studynotes/internal/logger"
	"studynotes/internal/study"
)

// ErrMissingToken is returned by Validate when no inference token is configured.
var ErrMissingToken = errors.New("HF_TOKEN is required for inference")

type Config struct {
	// Inference Configuration
	HFToken            string        `yaml:"hf_token"`
	InferenceBaseURL   string        `yaml:"inference_base_url"`
	InferenceModel     string        `yaml:"inference_model"`
	InferenceMaxTokens int           `yaml:"inference_max_tokens"`
	InferenceTemp      float32       `yaml:"inference_temperature"`
	InferenceTimeout   time.Duration `yaml:"inference_timeout"`
	InferenceAttempts  int           `yaml:"inference_attempts"`
	MaxInputChars      int           `yaml:"max_input_chars"`

	// Extraction Configuration
	MinTextLayerChars int    `yaml:"min_text_layer_chars"`
	OCREngine         string `yaml:"ocr_engine"`
	OCRLanguages      string `yaml:"ocr_languages"`
	PdftoppmPath      string `yaml:"pdftoppm_path"`
	RasterDPI         int    `yaml:"raster_dpi"`

	// Server and Storage Configuration
	ListenAddr     string        `yaml:"listen_addr"`
	UploadDir      string        `yaml:"upload_dir"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	DatabasePath   string        `yaml:"database_path"`
	RedisURL       string        `yaml:"redis_url"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`

	// Logging Configuration
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

// Load reads the configuration from the environment. When STUDYNOTES_CONFIG names a
// YAML file, its keys override the environment values.
func Load() (*Config, error) {
	config := &Config{
		HFToken:            getEnv("HF_TOKEN", ""),
		InferenceBaseURL:   getEnv("INFERENCE_BASE_URL", study.DefaultBaseURL),
		InferenceModel:     getEnv("INFERENCE_MODEL", study.DefaultModel),
		InferenceMaxTokens: getIntEnv("INFERENCE_MAX_TOKENS", study.DefaultMaxTokens),
		InferenceTemp:      getFloatEnv("INFERENCE_TEMPERATURE", study.DefaultTemperature),
		InferenceTimeout:   getDurationEnv("INFERENCE_TIMEOUT", study.DefaultTimeout),
		InferenceAttempts:  getIntEnv("INFERENCE_ATTEMPTS", 1),
		MaxInputChars:      getIntEnv("MAX_INPUT_CHARS", study.DefaultMaxInputChars),
		MinTextLayerChars:  getIntEnv("MIN_TEXT_LAYER_CHARS", extract.DefaultMinTextLayerChars),
		OCREngine:          getEnv("OCR_ENGINE", "tesseract"),
		OCRLanguages:       getEnv("OCR_LANGUAGES", "eng"),
		PdftoppmPath:       getEnv("PDFTOPPM_PATH", "pdftoppm"),
		RasterDPI:          getIntEnv("RASTER_DPI", 300),
		ListenAddr:         getEnv("LISTEN_ADDR", ":5000"),
		UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:     int64(getIntEnv("MAX_UPLOAD_BYTES", 16*1024*1024)),
		DatabasePath:       getEnv("DATABASE_PATH", "database.db"),
		RedisURL:           getEnv("REDIS_URL", ""),
		CacheTTL:           getDurationEnv("CACHE_TTL", 24*time.Hour),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:      getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:          getEnv("LOG_OUTPUT", "stderr"),
	}

	if path := os.Getenv("STUDYNOTES_CONFIG"); path != "" {
		if err := config.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.validateBasics(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadFile overlays the keys present in a YAML file onto the configuration.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validateBasics() error {
	if c.MaxInputChars <= 0 {
		return fmt.Errorf("MAX_INPUT_CHARS must be positive, got %d", c.MaxInputChars)
	}
	if c.InferenceTemp <= 0 || c.InferenceTemp > 2 {
		return fmt.Errorf("INFERENCE_TEMPERATURE must be in (0, 2], got %v", c.InferenceTemp)
	}
	if c.MinTextLayerChars < 0 {
		return fmt.Errorf("MIN_TEXT_LAYER_CHARS must not be negative, got %d", c.MinTextLayerChars)
	}
	switch c.OCREngine {
	case "tesseract", "vision":
	default:
		return fmt.Errorf("OCR_ENGINE must be tesseract or vision, got %q", c.OCREngine)
	}
	return nil
}

// Validate checks the settings needed by commands that call the inference backend.
func (c *Config) Validate() error {
	if c.HFToken == "" {
		return ErrMissingToken
	}
	if c.InferenceModel == "" {
		return fmt.Errorf("INFERENCE_MODEL is required")
	}
	if c.InferenceAttempts < 1 {
		return fmt.Errorf("INFERENCE_ATTEMPTS must be at least 1, got %d", c.InferenceAttempts)
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetStudyConfig returns the generator settings.
func (c *Config) GetStudyConfig() study.Config {
	return study.Config{
		Model:         c.InferenceModel,
		MaxTokens:     c.InferenceMaxTokens,
		Temperature:   c.InferenceTemp,
		MaxInputChars: c.MaxInputChars,
		Timeout:       c.InferenceTimeout,
		Attempts:      c.InferenceAttempts,
	}
}

// GetExtractConfig returns the extractor settings.
func (c *Config) GetExtractConfig() extract.Config {
	return extract.Config{
		MinTextLayerChars: c.MinTextLayerChars,
	}
}

// Languages splits OCR_LANGUAGES into tesseract language codes.
func (c *Config) Languages() []string {
	var langs []string
	for _, l := range strings.Split(c.OCRLanguages, "+") {
		for _, part := range strings.Split(l, ",") {
			if part = strings.TrimSpace(part); part != "" {
				langs = append(langs, part)
			}
		}
	}
	return langs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(parsed)
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
