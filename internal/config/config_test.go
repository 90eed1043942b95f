package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HF_TOKEN", "INFERENCE_BASE_URL", "INFERENCE_MODEL", "INFERENCE_MAX_TOKENS",
		"INFERENCE_TEMPERATURE", "INFERENCE_TIMEOUT", "INFERENCE_ATTEMPTS", "MAX_INPUT_CHARS",
		"MIN_TEXT_LAYER_CHARS", "OCR_ENGINE", "OCR_LANGUAGES", "REDIS_URL", "STUDYNOTES_CONFIG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InferenceBaseURL != "https://router.huggingface.co/v1" {
		t.Errorf("InferenceBaseURL = %q", cfg.InferenceBaseURL)
	}
	if cfg.InferenceModel != "Qwen/Qwen2.5-72B-Instruct" {
		t.Errorf("InferenceModel = %q", cfg.InferenceModel)
	}
	if cfg.InferenceMaxTokens != 2000 || cfg.InferenceTemp != 0.3 {
		t.Errorf("MaxTokens/Temperature = %d/%v", cfg.InferenceMaxTokens, cfg.InferenceTemp)
	}
	if cfg.InferenceTimeout != 120*time.Second {
		t.Errorf("InferenceTimeout = %v", cfg.InferenceTimeout)
	}
	if cfg.MaxInputChars != 6000 || cfg.MinTextLayerChars != 10 {
		t.Errorf("MaxInputChars/MinTextLayerChars = %d/%d", cfg.MaxInputChars, cfg.MinTextLayerChars)
	}
	if cfg.MaxUploadBytes != 16*1024*1024 || cfg.ListenAddr != ":5000" {
		t.Errorf("MaxUploadBytes/ListenAddr = %d/%q", cfg.MaxUploadBytes, cfg.ListenAddr)
	}
	if !errors.Is(cfg.Validate(), ErrMissingToken) {
		t.Errorf("Validate() without token = %v, want ErrMissingToken", cfg.Validate())
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("HF_TOKEN", "hf_test")
	t.Setenv("INFERENCE_MODEL", "meta-llama/Llama-3.1-8B-Instruct")
	t.Setenv("INFERENCE_TEMPERATURE", "0.1")
	t.Setenv("INFERENCE_TIMEOUT", "45s")
	t.Setenv("MAX_INPUT_CHARS", "8000")
	t.Setenv("OCR_ENGINE", "vision")
	t.Setenv("OCR_LANGUAGES", "eng+deu, fra")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	study := cfg.GetStudyConfig()
	if study.Model != "meta-llama/Llama-3.1-8B-Instruct" || study.Temperature != 0.1 ||
		study.Timeout != 45*time.Second || study.MaxInputChars != 8000 {
		t.Errorf("GetStudyConfig() = %+v", study)
	}
	if cfg.OCREngine != "vision" {
		t.Errorf("OCREngine = %q", cfg.OCREngine)
	}
	if got := cfg.Languages(); !reflect.DeepEqual(got, []string{"eng", "deu", "fra"}) {
		t.Errorf("Languages() = %v", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"OCR_ENGINE", "easyocr"},
		{"MAX_INPUT_CHARS", "-5"},
		{"MIN_TEXT_LAYER_CHARS", "-1"},
		{"INFERENCE_TEMPERATURE", "0"},
		{"INFERENCE_TEMPERATURE", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s: want error", tt.key, tt.value)
			}
		})
	}
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "studynotes.yaml")
	content := `hf_token: hf_from_file
inference_model: Qwen/Qwen2.5-7B-Instruct
inference_timeout: 30s
min_text_layer_chars: 25
redis_url: redis://localhost:6379/1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDYNOTES_CONFIG", path)
	t.Setenv("INFERENCE_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HFToken != "hf_from_file" || cfg.InferenceModel != "Qwen/Qwen2.5-7B-Instruct" {
		t.Errorf("token/model = %q/%q, want file values", cfg.HFToken, cfg.InferenceModel)
	}
	if cfg.InferenceTimeout != 30*time.Second {
		t.Errorf("InferenceTimeout = %v", cfg.InferenceTimeout)
	}
	if cfg.GetExtractConfig().MinTextLayerChars != 25 {
		t.Errorf("MinTextLayerChars = %d", cfg.MinTextLayerChars)
	}
	if cfg.RedisURL != "redis://localhost:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.InferenceMaxTokens != 2000 {
		t.Errorf("keys absent from the file changed: InferenceMaxTokens = %d", cfg.InferenceMaxTokens)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile() with missing file: want error")
	}
}
