package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PopplerRasterizer shells out to poppler's pdftoppm, the same engine the
// common PDF-to-image toolchains wrap.
type PopplerRasterizer struct {
	bin string
	dpi int
}

func NewPopplerRasterizer(bin string, dpi int) *PopplerRasterizer {
	return &PopplerRasterizer{bin: bin, dpi: dpi}
}

func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	prefix := filepath.Join(outDir, "page")

	cmd := exec.CommandContext(ctx, r.bin, "-r", strconv.Itoa(r.dpi), "-png", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("collect page images: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no pages for %s", filepath.Base(pdfPath))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	sort.Strings(pages)
	return pages, nil
}

// TesseractRecognizer shells out to the tesseract binary for per-page text
// recognition.
type TesseractRecognizer struct {
	bin string
}

func NewTesseractRecognizer(bin string) *TesseractRecognizer {
	return &TesseractRecognizer{bin: bin}
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.bin, imagePath, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
