package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// PageSeparator is appended after every page's recognized text, so "page N"
// references in the extracted text survive the splice into the prompt.
const PageSeparator = " [NEW PAGE] "

// Rasterizer converts a PDF into one image per page, written into outDir.
// The returned paths are in document page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// Recognizer runs text recognition on a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Service extracts text from uploaded PDFs by rasterizing each page and
// running recognition over the images.
type Service struct {
	rasterizer Rasterizer
	recognizer Recognizer
}

func NewService(rasterizer Rasterizer, recognizer Recognizer) *Service {
	return &Service{
		rasterizer: rasterizer,
		recognizer: recognizer,
	}
}

// ExtractText OCRs a whole PDF. Pages are processed strictly in document
// order and each page's trimmed text is followed by PageSeparator. Any
// rasterization or recognition failure fails the whole document; there is no
// partial result.
func (s *Service) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	dir, err := os.MkdirTemp("", "hemassist-ocr-")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	pages, err := s.rasterizer.Rasterize(ctx, pdfPath, dir)
	if err != nil {
		return "", fmt.Errorf("rasterize %s: %w", filepath.Base(pdfPath), err)
	}

	log.Debug().
		Str("file", filepath.Base(pdfPath)).
		Int("pages", len(pages)).
		Msg("Rasterized PDF for recognition")

	var text strings.Builder
	for i, page := range pages {
		recognized, err := s.recognizer.Recognize(ctx, page)
		if err != nil {
			return "", fmt.Errorf("recognize page %d of %s: %w", i+1, filepath.Base(pdfPath), err)
		}
		text.WriteString(strings.TrimSpace(recognized))
		text.WriteString(PageSeparator)
	}

	return text.String(), nil
}
