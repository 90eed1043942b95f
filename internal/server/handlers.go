package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studynotes/internal/store"
	"studynotes/pkg/models"
)

const (
	msgNoFilePart      = "No file part"
	msgNoSelectedFile  = "No selected file"
	msgInvalidFilename = "Invalid file name"
	msgUnsupported     = "Unsupported file type. Upload a PDF, PNG, JPG or TXT file."
	msgTooLarge        = "File too large"
)

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Text      string `json:"text"`
	Result    string `json:"result"`
	Truncated bool   `json:"truncated"`
	CacheHit  bool   `json:"cache_hit"`
}

type historyItem struct {
	ID           int64       `json:"id"`
	Filename     string      `json:"filename"`
	OriginalText string      `json:"original_text"`
	Summary      string      `json:"summary"`
	Quiz         string      `json:"quiz"`
	Kind         models.Kind `json:"kind"`
	Truncated    bool        `json:"truncated"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, indexPage)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := requestLog(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: msgTooLarge})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgNoFilePart})
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgNoSelectedFile})
		return
	}

	filename := SecureFilename(header.Filename)
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgInvalidFilename})
		return
	}
	if models.KindFromFilename(filename) == models.KindUnknown {
		log.Warn().Str("filename", filename).Msg("Rejected unsupported upload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgUnsupported})
		return
	}

	path := filepath.Join(s.config.UploadDir, uuid.NewString()[:8]+"-"+filename)
	if err := saveUpload(path, file); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to save upload")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to save file"})
		return
	}
	log.Info().Str("filename", filename).Str("path", path).Int64("size", header.Size).Msg("Upload saved")

	out, err := s.pipeline.Process(r.Context(), models.NewDocument(path, filename))
	if err != nil {
		log.Error().Err(err).Msg("Failed to process upload")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to save note"})
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		ID:        out.Note.ID,
		Filename:  out.Note.Filename,
		Text:      out.Note.OriginalText,
		Result:    s.policy.Sanitize(out.Note.Summary),
		Truncated: out.Note.Truncated,
		CacheHit:  out.CacheHit,
	})
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.List(r.Context())
	if err != nil {
		log := requestLog(r)
		log.Error().Err(err).Msg("Failed to list notes")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to load history"})
		return
	}

	items := make([]historyItem, 0, len(notes))
	for _, n := range notes {
		items = append(items, historyItem{
			ID:           n.ID,
			Filename:     n.Filename,
			OriginalText: n.OriginalText,
			Summary:      s.policy.Sanitize(n.Summary),
			Quiz:         store.QuizColumnValue,
			Kind:         n.Kind,
			Truncated:    n.Truncated,
			CreatedAt:    n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid note id"})
		return
	}

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Note not found"})
			return
		}
		log := requestLog(r)
		log.Error().Err(err).Int64("note_id", id).Msg("Failed to delete note")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to delete note"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Study Notes</title>
</head>
<body>
<h1>Study Notes</h1>
<form id="upload">
  <input type="file" name="file" accept=".pdf,.png,.jpg,.jpeg,.txt">
  <button type="submit">Upload</button>
</form>
<div id="result"></div>
<h2>History</h2>
<ul id="history"></ul>
<script>
async function loadHistory() {
  const notes = await (await fetch('/history')).json();
  const list = document.getElementById('history');
  list.innerHTML = '';
  for (const n of notes) {
    const li = document.createElement('li');
    li.textContent = n.filename + ' ';
    const del = document.createElement('button');
    del.textContent = 'Delete';
    del.onclick = async () => { await fetch('/delete/' + n.id, {method: 'DELETE'}); loadHistory(); };
    li.appendChild(del);
    list.appendChild(li);
  }
}
document.getElementById('upload').onsubmit = async (e) => {
  e.preventDefault();
  const out = document.getElementById('result');
  out.textContent = 'Processing...';
  const data = await (await fetch('/upload', {method: 'POST', body: new FormData(e.target)})).json();
  if (data.error) { out.textContent = data.error; return; }
  out.innerHTML = data.result;
  loadHistory();
};
loadHistory();
</script>
</body>
</html>
`
