package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth = 277.0
	pdfMinCol    = 12.0
)

// PDFExporter renders sections as consecutive tables in one landscape
// document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and one table per
// section.
func (e *PDFExporter) Render(sections []Section, title string) ([]byte, error) {
	if len(sections) == 0 {
		return nil, fmt.Errorf("pdf requires at least one section")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(title)), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	for i, section := range sections {
		if len(section.Data.Headers) == 0 {
			return nil, fmt.Errorf("section %s has no headers", section.Name)
		}
		if i > 0 {
			pdf.Ln(6)
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, tr(section.Name), "", 1, "L", false, 0, "")

		colWidth := pdfPageWidth / float64(len(section.Data.Headers))
		if colWidth < pdfMinCol {
			colWidth = pdfMinCol
		}
		pdf.SetFont("Arial", "B", 7)
		for _, header := range section.Data.Headers {
			pdf.CellFormat(colWidth, 6, tr(header), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 7)
		for _, row := range section.Data.Rows {
			for _, value := range section.Data.Record(row) {
				pdf.CellFormat(colWidth, 5, tr(value), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
