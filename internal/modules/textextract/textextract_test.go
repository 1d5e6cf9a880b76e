package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func TestExtractPlainText(t *testing.T) {
	got, err := Extract("notes.md", []byte("# Photosynthesis\n\n  plants   make sugar\n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# Photosynthesis plants make sugar" {
		t.Fatalf("Extract: got=%q", got)
	}
}

func TestExtractHTML(t *testing.T) {
	got, err := Extract("page.html", []byte("<!DOCTYPE html><html><body><p>Hello&nbsp;<b>class</b></p></body></html>"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Hello class" {
		t.Fatalf("Extract: got=%q", got)
	}
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("[Content_Types].xml")
	_, _ = w.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`))
	w, _ = zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>The cell</w:t></w:r><w:r><w:t>is alive</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip: %v", err)
	}
	got, err := Extract("lesson.docx", buf.Bytes())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "The cell is alive" {
		t.Fatalf("Extract: got=%q", got)
	}
}

func TestExtractDOCXRejectsOversizedPart(t *testing.T) {
	prev := maxXMLBytes
	maxXMLBytes = 1 << 10
	t.Cleanup(func() { maxXMLBytes = prev })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>`))
	_, _ = w.Write(bytes.Repeat([]byte(" "), 64<<10))
	_, _ = w.Write([]byte(`x</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip: %v", err)
	}
	if buf.Len() > 4<<10 {
		t.Fatalf("compressed fixture: want<=4096 got=%d", buf.Len())
	}
	if _, err := Extract("bomb.docx", buf.Bytes()); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("oversized part: want ErrTooLarge got=%v", err)
	}
}

func TestExtractRejectsEmptyAndBinary(t *testing.T) {
	if _, err := Extract("x.txt", nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: want ErrEmpty got=%v", err)
	}
	bin := []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0x00, 0x10}
	if _, err := Extract("x.bin", bin); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("binary: want ErrUnsupported got=%v", err)
	}
}
