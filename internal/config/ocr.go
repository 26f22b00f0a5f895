package config

import (
	"strconv"

	"github.com/rs/zerolog/log"
)

// GetPdftoppmPath returns the poppler pdftoppm binary used for PDF rasterization
func GetPdftoppmPath() string {
	return GetEnvOrDefault("OCR_PDFTOPPM_PATH", "pdftoppm")
}

// GetTesseractPath returns the tesseract binary used for text recognition
func GetTesseractPath() string {
	return GetEnvOrDefault("OCR_TESSERACT_PATH", "tesseract")
}

// GetOCRDPI returns the rasterization resolution in dots per inch
func GetOCRDPI() int {
	raw := GetEnvOrDefault("OCR_DPI", "200")
	dpi, err := strconv.Atoi(raw)
	if err != nil || dpi <= 0 {
		log.Warn().Str("value", raw).Msg("Invalid OCR_DPI value, using 200")
		return 200
	}
	return dpi
}
