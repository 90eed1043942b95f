package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// TextLayerReader returns the embedded text of each PDF page, in page order.
// Pages without a text layer yield an empty string.
type TextLayerReader interface {
	ReadPages(ctx context.Context, path string) ([]string, error)
}

// LedongthucReader reads PDF text layers with github.com/ledongthuc/pdf.
type LedongthucReader struct{}

// ReadPages implements TextLayerReader.
func (LedongthucReader) ReadPages(ctx context.Context, path string) ([]string, error) {
	const op = "ReadPages"

	if _, err := os.Stat(path); err != nil {
		return nil, WrapExtractionError(op, path, ErrUnreadableFile, err.Error())
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, WrapExtractionError(op, path, ErrCorruptPDF, err.Error())
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, WrapExtractionError(op, path, err, fmt.Sprintf("canceled at page %d", i))
		}

		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, WrapExtractionError(op, path, ErrCorruptPDF, fmt.Sprintf("page %d: %v", i, err))
		}
		pages = append(pages, text)
	}

	return pages, nil
}
