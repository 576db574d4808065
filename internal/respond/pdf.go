// ABOUTME: PDF artifact rendering for document and checklist output flags

package respond

import (
	"bytes"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// renderPDF lays the content out as a simple text document.
func renderPDF(content string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 11)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, para := range strings.Split(content, "\n") {
		para = strings.TrimRight(para, " \t")
		if para == "" {
			pdf.Ln(4)
			continue
		}
		pdf.MultiCell(170, 5.5, tr(para), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderChecklist renders the content's list items as a PDF with a checkbox
// in front of each.
func renderChecklist(content string) ([]byte, error) {
	items := checklistItems(content)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.CellFormat(170, 8, "Checklist", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		x, y := pdf.GetXY()
		pdf.Rect(x, y+0.8, 4, 4, "D")
		pdf.SetX(x + 7)
		pdf.MultiCell(163, 5.5, tr(item), "", "L", false)
		pdf.Ln(1.5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
