package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rasterizer renders every page of a PDF to an image file. The returned cleanup
// removes the images and is always safe to call, even on error.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string) (images []string, cleanup func(), err error)
}

// PdftoppmRasterizer renders pages with poppler's pdftoppm into a temporary directory.
type PdftoppmRasterizer struct {
	// Binary is the pdftoppm executable name or path. Default: "pdftoppm".
	Binary string

	// DPI is the render resolution. Default: 300.
	DPI int

	// TempDir is the parent of the per-call directory. Default: os.TempDir().
	TempDir string
}

var pageNumberPattern = regexp.MustCompile(`-(\d+)\.png$`)

// Rasterize implements Rasterizer.
func (r *PdftoppmRasterizer) Rasterize(ctx context.Context, pdfPath string) ([]string, func(), error) {
	const op = "Rasterize"
	noop := func() {}

	binary := r.Binary
	if binary == "" {
		binary = "pdftoppm"
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}

	bin, err := exec.LookPath(binary)
	if err != nil {
		return nil, noop, WrapExtractionError(op, pdfPath, ErrRasterizeFailed, fmt.Sprintf("%s not found: install poppler-utils", binary))
	}

	tmpDir, err := os.MkdirTemp(r.TempDir, "studynotes-pages-*")
	if err != nil {
		return nil, noop, WrapExtractionError(op, pdfPath, err, "create temp dir")
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		cleanup()
		return nil, noop, WrapExtractionError(op, pdfPath, ErrRasterizeFailed, strings.TrimSpace(fmt.Sprintf("%v: %s", err, stderr.String())))
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(images) == 0 {
		cleanup()
		return nil, noop, WrapExtractionError(op, pdfPath, ErrRasterizeFailed, "no page images generated")
	}
	sortByPageNumber(images)

	return images, cleanup, nil
}

// sortByPageNumber orders pdftoppm outputs (page-1.png, page-02.png, ...) numerically.
func sortByPageNumber(images []string) {
	sort.SliceStable(images, func(i, j int) bool {
		return pageNumber(images[i]) < pageNumber(images[j])
	})
}

func pageNumber(path string) int {
	m := pageNumberPattern.FindStringSubmatch(filepath.Base(path))
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
