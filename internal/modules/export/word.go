package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// ToWord renders doc as a .docx file.
func ToWord(doc *Document) ([]byte, error) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText(doc.Title).Size("36").Bold()
	for _, m := range doc.Meta {
		w.AddParagraph().AddText(m.Key + ": " + m.Value).Size("20").Color("595959")
	}
	if doc.Instructions != "" {
		w.AddParagraph().AddText(doc.Instructions).Italic()
	}

	for _, q := range doc.Questions {
		w.AddParagraph().AddText(fmt.Sprintf("%d. %s", q.Number, q.Text)).Bold()
		for i, opt := range q.Options {
			w.AddParagraph().AddText(fmt.Sprintf("    %s) %s", OptionLabel(i), opt))
		}
	}
	if len(doc.Questions) > 0 && hasAnswers(doc.Questions) {
		w.AddParagraph().AddText("Answer key").Size("28").Bold()
		for _, q := range doc.Questions {
			line := fmt.Sprintf("%d. %s", q.Number, q.Answer)
			if q.Explanation != "" {
				line += " (" + q.Explanation + ")"
			}
			w.AddParagraph().AddText(line)
		}
	}

	if doc.Summary != "" {
		for _, para := range strings.Split(doc.Summary, "\n") {
			if strings.TrimSpace(para) != "" {
				w.AddParagraph().AddText(para)
			}
		}
	}
	if len(doc.KeyPoints) > 0 {
		w.AddParagraph().AddText("Key points").Size("28").Bold()
		for _, kp := range doc.KeyPoints {
			w.AddParagraph().AddText("• " + kp)
		}
	}

	for _, f := range doc.Fields {
		p := w.AddParagraph()
		p.AddText(f.Key + ": ").Bold()
		p.AddText(f.Value)
	}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("export: write docx: %w", err)
	}
	return buf.Bytes(), nil
}

func hasAnswers(qs []Question) bool {
	for _, q := range qs {
		if q.Answer != "" {
			return true
		}
	}
	return false
}
