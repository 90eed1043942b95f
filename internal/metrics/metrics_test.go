package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"studynotes/internal/metrics"
)

func TestHandlerExposesRecordedMetrics(t *testing.T) {
	m := metrics.New()
	m.DocumentProcessed("pdf", "ocr-fallback")
	m.ExtractionFailed("image")
	m.Inference("success")
	m.CacheHit()
	m.ObserveStage("extract", 1500*time.Millisecond)
	m.ObserveRequest("POST", "/upload", "200", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`studynotes_documents_total{kind="pdf",method="ocr-fallback"} 1`,
		`studynotes_extraction_failures_total{kind="image"} 1`,
		`studynotes_inference_requests_total{status="success"} 1`,
		`studynotes_cache_hits_total 1`,
		`studynotes_http_requests_total{method="POST",route="/upload",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.DocumentProcessed("txt", "direct")
	m.CacheMiss()
	m.ObserveRequest("GET", "/", "200", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil Handler() status = %d, want 404", rec.Code)
	}
}
