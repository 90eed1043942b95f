package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"studynotes/internal/extract"
	"studynotes/internal/metrics"
	"studynotes/internal/pipeline"
	"studynotes/internal/server"
	"studynotes/internal/store"
	"studynotes/internal/study"
)

type stubCompleter struct {
	content string
	calls   int
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}

type testServer struct {
	srv    *server.Server
	client *stubCompleter
}

func newTestServer(t *testing.T, artifact string, maxUpload int64) *testServer {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(context.Background(), filepath.Join(dir, "notes.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	client := &stubCompleter{content: artifact}
	m := metrics.New()
	ex := extract.NewExtractor(nil, extract.LedongthucReader{}, nil, extract.DefaultConfig())
	p := pipeline.New(ex, study.NewGenerator(client, study.DefaultConfig()),
		pipeline.WithSaver(st), pipeline.WithMetrics(m))

	srv, err := server.New(server.Config{UploadDir: filepath.Join(dir, "uploads"), MaxUploadBytes: maxUpload}, p, st, m)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	return &testServer{srv: srv, client: client}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("other", "value")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestUploadHistoryDelete(t *testing.T) {
	ts := newTestServer(t, "<h3>Summary</h3><ul><li>Hello</li></ul>", 0)

	rec := ts.do(uploadRequest(t, "file", "../../My Notes.txt", []byte("Hello world")))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	up := decode[map[string]any](t, rec)
	if up["filename"] != "My_Notes.txt" {
		t.Errorf("filename = %v, want My_Notes.txt", up["filename"])
	}
	if up["text"] != "Hello world" {
		t.Errorf("text = %v", up["text"])
	}
	if up["result"] != "<h3>Summary</h3><ul><li>Hello</li></ul>" {
		t.Errorf("result = %v", up["result"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/history", nil))
	history := decode[[]map[string]any](t, rec)
	if len(history) != 1 {
		t.Fatalf("history has %d notes, want 1", len(history))
	}
	if history[0]["quiz"] != "Included" || history[0]["original_text"] != "Hello world" {
		t.Errorf("history[0] = %v", history[0])
	}

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/delete/1", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("delete = %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/delete/1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/delete/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete with bad id status = %d, want 400", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/history", nil))
	if got := decode[[]map[string]any](t, rec); len(got) != 0 {
		t.Errorf("history after delete has %d notes", len(got))
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name       string
		req        func(t *testing.T) *http.Request
		wantStatus int
		wantError  string
	}{
		{
			name:       "no file part",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "", "", nil) },
			wantStatus: http.StatusBadRequest,
			wantError:  "No file part",
		},
		{
			name:       "not multipart",
			req:        func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("x")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "No file part",
		},
		{
			name:       "unsupported kind",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "slides.docx", []byte("PK")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "Unsupported file type. Upload a PDF, PNG, JPG or TXT file.",
		},
		{
			name:       "name without safe characters",
			req:        func(t *testing.T) *http.Request { return uploadRequest(t, "file", "日本語", []byte("x")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid file name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "<h3>Summary</h3>", 0)
			rec := ts.do(tt.req(t))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decode[map[string]string](t, rec)["error"]; got != tt.wantError {
				t.Errorf("error = %q, want %q", got, tt.wantError)
			}
			if ts.client.calls != 0 {
				t.Errorf("inference called %d times", ts.client.calls)
			}
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	ts := newTestServer(t, "<h3>Summary</h3>", 1024)

	rec := ts.do(uploadRequest(t, "file", "big.txt", bytes.Repeat([]byte("a"), 64*1024)))
	if rec.Code == http.StatusOK {
		t.Fatalf("oversized upload accepted: %s", rec.Body.String())
	}
	if ts.client.calls != 0 {
		t.Errorf("inference called for oversized upload")
	}
}

func TestUploadSanitizesArtifact(t *testing.T) {
	ts := newTestServer(t, `<h3>Summary</h3><script>alert("x")</script><ul><li onclick="steal()">TCP</li></ul>`, 0)

	rec := ts.do(uploadRequest(t, "file", "notes.txt", []byte("TCP notes")))
	result := decode[map[string]any](t, rec)["result"].(string)

	if strings.Contains(result, "<script") || strings.Contains(result, "onclick") {
		t.Errorf("result not sanitized: %s", result)
	}
	if !strings.Contains(result, "<li>TCP</li>") {
		t.Errorf("result lost content: %s", result)
	}
}

func TestIndexHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, "<h3>Summary</h3>", 0)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="file"`) {
		t.Errorf("index = %d", rec.Code)
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `studynotes_http_requests_total{method="GET",route="/healthz",status="200"} 1`) {
		t.Errorf("metrics missing healthz request:\n%s", rec.Body.String())
	}
}
