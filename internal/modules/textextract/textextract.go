// Package textextract turns uploaded reference documents into plain text for prompts.
// Supported: PDF, DOCX, PPTX, plain text/markdown, HTML.
package textextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pdf "github.com/ledongthuc/pdf"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

var (
	ErrEmpty       = errors.New("textextract: empty file")
	ErrUnsupported = errors.New("textextract: unsupported file type")
	ErrNoText      = errors.New("textextract: no text found")
	ErrTooLarge    = errors.New("textextract: document expands past size limit")
)

// maxXMLBytes caps the uncompressed bytes read from a DOCX/PPTX package, across all parts.
var maxXMLBytes int64 = 32 << 20

// Extract sniffs data and returns its text with whitespace collapsed.
// The declared name is only consulted when the bytes are ambiguous.
func Extract(name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	ext := strings.ToLower(filepath.Ext(name))
	mt := mimetype.Detect(data)

	var (
		text string
		err  error
	)
	switch {
	case mt.Is("application/pdf"):
		text, err = extractPDF(data)
	case mt.Is(mimeDOCX):
		text, err = openXMLText(data, func(n string) bool { return n == "word/document.xml" })
	case mt.Is(mimePPTX):
		text, err = openXMLText(data, func(n string) bool {
			return strings.HasPrefix(n, "ppt/slides/") && strings.HasSuffix(n, ".xml")
		})
	case mt.Is("application/zip") && (ext == ".docx" || ext == ".pptx"):
		text, err = openXMLByEntries(data)
	case mt.Is("text/html") || ext == ".html" || ext == ".htm":
		text = stripHTML(string(data))
	case strings.HasPrefix(mt.String(), "text/") || ext == ".txt" || ext == ".md" || ext == ".markdown":
		text = collapseWhitespace(string(data))
	default:
		return "", fmt.Errorf("%w: name=%s detected=%s", ErrUnsupported, name, mt.String())
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

// openXMLByEntries handles containers mimetype reports as a bare zip.
func openXMLByEntries(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("zip: %w", err)
	}
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
			return openXMLText(data, func(n string) bool { return n == "word/document.xml" })
		case strings.HasPrefix(f.Name, "ppt/slides/"):
			return openXMLText(data, func(n string) bool {
				return strings.HasPrefix(n, "ppt/slides/") && strings.HasSuffix(n, ".xml")
			})
		}
	}
	return "", fmt.Errorf("%w: zip is not docx or pptx", ErrUnsupported)
}

func openXMLText(data []byte, want func(name string) bool) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("zip: %w", err)
	}
	var out strings.Builder
	budget := maxXMLBytes
	for _, f := range zr.File {
		if !want(f.Name) {
			continue
		}
		if f.UncompressedSize64 > uint64(budget) {
			return "", fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
		}
		b, err := readPart(f, budget)
		if err != nil {
			return "", err
		}
		budget -= int64(len(b))
		out.WriteString(textRuns(b))
		out.WriteString("\n")
	}
	return collapseWhitespace(out.String()), nil
}

// readPart reads one zip entry, failing once it exceeds limit regardless of the declared size.
func readPart(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return b, nil
}

// textRuns gathers the character data of every <t> element (w:t in Word, a:t in slides).
func textRuns(xmlBytes []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var out strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var v string
		_ = dec.DecodeElement(&v, &se)
		if v != "" {
			out.WriteString(v)
			out.WriteString(" ")
		}
	}
	return out.String()
}

var tagRe = regexp.MustCompile(`(?s)<[^>]*>`)

func stripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return collapseWhitespace(s)
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
