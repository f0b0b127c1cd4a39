package ingest

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFResult describes one extracted PDF.
type PDFResult struct {
	PDFPath       string
	OutputPath    string
	Pages         int
	ContentLength int
}

// PDFExtractor pulls plain text out of local PDF files.
type PDFExtractor struct {
	outputDir string
	logger    *slog.Logger
}

// NewPDFExtractor creates an extractor writing into <dataDir>/pdf.
func NewPDFExtractor(dataDir string, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &PDFExtractor{
		outputDir: filepath.Join(dataDir, "pdf"),
		logger:    logger,
	}
}

// Extract converts each PDF to a labeled text file. Missing or unreadable
// files are logged and skipped.
func (e *PDFExtractor) Extract(paths []string) ([]PDFResult, error) {
	if err := os.MkdirAll(e.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	var results []PDFResult

	for _, pdfPath := range paths {
		if _, err := os.Stat(pdfPath); err != nil {
			e.logger.Warn("PDF not found, skipping", "path", pdfPath)
			continue
		}

		e.logger.Info("extracting text", "path", pdfPath)

		text, pages, err := extractPDFText(pdfPath)
		if err != nil {
			e.logger.Error("extracting PDF failed, skipping", "path", pdfPath, "error", err)
			continue
		}

		base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		outputPath := filepath.Join(e.outputDir, base+".txt")
		if err := writeLabeled(outputPath, pdfPath, text); err != nil {
			e.logger.Error("writing extracted text failed, skipping", "path", pdfPath, "error", err)
			continue
		}

		results = append(results, PDFResult{
			PDFPath:       pdfPath,
			OutputPath:    outputPath,
			Pages:         pages,
			ContentLength: len(text),
		})
	}

	return results, nil
}

// extractPDFText reads the whole PDF as plain text.
func extractPDFText(path string) (string, int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("reading PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", 0, fmt.Errorf("copying PDF text: %w", err)
	}

	return buf.String(), reader.NumPage(), nil
}
