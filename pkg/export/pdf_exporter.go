package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Document is a one-page, letter-style PDF: header block, title, paragraphs, a table and a footer.
type Document struct {
	Landscape    bool
	Header       []string
	Title        string
	Subtitle     string
	Paragraphs   []string
	Table        Sheet
	ColumnWidths []float64
	Footer       []string
	Signature    string
}

// PDFExporter renders documents with gofpdf core fonts.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out doc and returns the PDF bytes.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	orientation := "P"
	if doc.Landscape {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Header {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	if len(doc.Header) > 0 {
		pdf.Ln(6)
	}

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 15)
		pdf.CellFormat(0, 9, tr(doc.Title), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	for _, p := range doc.Paragraphs {
		pdf.MultiCell(0, 6, tr(p), "", "L", false)
		pdf.Ln(2)
	}

	if len(doc.Table.Headers) > 0 {
		widths := columnWidths(doc.ColumnWidths, len(doc.Table.Headers), usable)
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range doc.Table.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, row := range doc.Table.Rows {
			for i := range doc.Table.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(widths[i], 7, tr(value), "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Footer {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	if doc.Signature != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(doc.Signature), "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(requested []float64, columns int, usable float64) []float64 {
	if len(requested) == columns {
		total := 0.0
		for _, w := range requested {
			total += w
		}
		if total > 0 && total <= usable {
			return requested
		}
	}
	widths := make([]float64, columns)
	for i := range widths {
		widths[i] = usable / float64(columns)
	}
	return widths
}
