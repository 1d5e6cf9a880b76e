package export

import (
	"regexp"
	"strings"
)

type Format string

const (
	FormatWord  Format = "word"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

func ParseFormat(s string) (Format, bool) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatWord, FormatExcel, FormatPDF:
		return f, true
	}
	return "", false
}

func (f Format) Extension() string {
	switch f {
	case FormatWord:
		return ".docx"
	case FormatExcel:
		return ".xlsx"
	default:
		return ".pdf"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatWord:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/pdf"
	}
}

// Render dispatches to the renderer for f.
func (f Format) Render(doc *Document) ([]byte, error) {
	switch f {
	case FormatWord:
		return ToWord(doc)
	case FormatExcel:
		return ToExcel(doc)
	default:
		return ToPDF(doc)
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName builds an ASCII attachment name from the document title.
func FileName(title string, f Format) string {
	base := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(title), "_"), "_.")
	if base == "" {
		base = "activity"
	}
	if len(base) > 80 {
		base = base[:80]
	}
	return base + f.Extension()
}
