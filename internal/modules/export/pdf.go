package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// ToPDF renders doc as an A4 PDF using the core Helvetica font (cp1252 text).
func ToPDF(doc *Document) ([]byte, error) {
	p := fpdf.New("P", "mm", "A4", "")
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.SetTitle(doc.Title, true)
	p.SetMargins(18, 18, 18)
	p.SetAutoPageBreak(true, 18)
	p.AddPage()

	p.SetFont("Helvetica", "B", 18)
	p.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	p.SetFont("Helvetica", "", 9)
	p.SetTextColor(90, 90, 90)
	for _, m := range doc.Meta {
		p.MultiCell(0, 5, tr(m.Key+": "+m.Value), "", "L", false)
	}
	p.SetTextColor(0, 0, 0)
	p.Ln(4)

	if doc.Instructions != "" {
		p.SetFont("Helvetica", "I", 11)
		p.MultiCell(0, 6, tr(doc.Instructions), "", "L", false)
		p.Ln(3)
	}

	for _, q := range doc.Questions {
		p.SetFont("Helvetica", "B", 11)
		p.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", q.Number, q.Text)), "", "L", false)
		p.SetFont("Helvetica", "", 11)
		for i, opt := range q.Options {
			p.SetX(26)
			p.MultiCell(0, 6, tr(OptionLabel(i)+") "+opt), "", "L", false)
		}
		p.Ln(2)
	}
	if hasAnswers(doc.Questions) {
		p.AddPage()
		p.SetFont("Helvetica", "B", 14)
		p.MultiCell(0, 8, tr("Answer key"), "", "L", false)
		p.SetFont("Helvetica", "", 11)
		for _, q := range doc.Questions {
			line := fmt.Sprintf("%d. %s", q.Number, q.Answer)
			if q.Explanation != "" {
				line += " - " + q.Explanation
			}
			p.MultiCell(0, 6, tr(line), "", "L", false)
		}
	}

	if doc.Summary != "" {
		p.SetFont("Helvetica", "", 11)
		p.MultiCell(0, 6, tr(doc.Summary), "", "J", false)
		p.Ln(3)
	}
	if len(doc.KeyPoints) > 0 {
		p.SetFont("Helvetica", "B", 13)
		p.MultiCell(0, 7, tr("Key points"), "", "L", false)
		p.SetFont("Helvetica", "", 11)
		for _, kp := range doc.KeyPoints {
			p.MultiCell(0, 6, tr("- "+kp), "", "L", false)
		}
	}

	for _, f := range doc.Fields {
		p.SetFont("Helvetica", "B", 10)
		p.MultiCell(0, 5, tr(f.Key), "", "L", false)
		p.SetFont("Helvetica", "", 11)
		p.MultiCell(0, 6, tr(f.Value), "", "L", false)
		p.Ln(1)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
