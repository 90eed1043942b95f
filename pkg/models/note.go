package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind identifies how a submitted document is read.
type Kind string

const (
	KindPDF       Kind = "pdf"
	KindImage     Kind = "image"
	KindPlainText Kind = "plain-text"
	KindUnknown   Kind = "unknown"
)

// KindFromFilename derives the document kind from the file extension (case-insensitive).
func KindFromFilename(name string) Kind {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "pdf":
		return KindPDF
	case "png", "jpg", "jpeg":
		return KindImage
	case "txt":
		return KindPlainText
	default:
		return KindUnknown
	}
}

// Document is a submitted file waiting to be read.
type Document struct {
	Path     string // Location of the saved file
	Filename string // Original (sanitized) upload name
	Kind     Kind   // Derived from Filename, or Path when Filename is empty
}

// NewDocument builds a Document and derives its kind from the filename.
func NewDocument(path, filename string) Document {
	if filename == "" {
		filename = filepath.Base(path)
	}
	return Document{
		Path:     path,
		Filename: filename,
		Kind:     KindFromFilename(filename),
	}
}

// Note is a processed document as persisted by the store.
type Note struct {
	ID           int64     `json:"id"`            // Store-assigned identifier
	Filename     string    `json:"filename"`      // Original file name
	Kind         Kind      `json:"kind"`          // Document kind
	OriginalText string    `json:"original_text"` // Recovered text (or the extraction sentinel)
	Summary      string    `json:"summary"`       // Study artifact HTML (or a generation message)
	Truncated    bool      `json:"truncated"`     // Recovered text exceeded the prompt input cap
	CreatedAt    time.Time `json:"created_at"`    // Record creation timestamp
}
